// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
	"github.com/ezrec/chip8/internal/frontend"
	"github.com/ezrec/chip8/translate"
)

// options are the command line settings.
type options struct {
	config      string
	legacy      bool
	rate        int
	seed        uint64
	coupled     bool
	assemble    bool
	disassemble bool
	dumpConfig  bool
	mute        bool
	lang        string
	verbose     bool
}

func main() {
	var opt options

	flag.StringVar(&opt.config, "config", "", ".toml configuration file")
	flag.BoolVar(&opt.legacy, "legacy", false, "Legacy shift and load/store quirks")
	flag.IntVar(&opt.rate, "rate", emulator.DEFAULT_RATE, "Instructions per second")
	flag.Uint64Var(&opt.seed, "seed", 0, "Random number seed")
	flag.BoolVar(&opt.coupled, "coupled", false, "Gate the sound timer on the delay timer")
	flag.BoolVar(&opt.assemble, "asm", false, "Input is assembly source, not a ROM image")
	flag.BoolVar(&opt.disassemble, "dis", false, "Disassemble the program, do not execute")
	flag.BoolVar(&opt.dumpConfig, "dump-config", false, "Write the configuration as TOML, do not execute")
	flag.BoolVar(&opt.mute, "mute", false, "Disable sound")
	flag.StringVar(&opt.lang, "lang", "", "Message language (BCP 47 tag)")
	flag.BoolVar(&opt.verbose, "v", false, "Verbose mode")

	flag.Parse()

	if len(opt.lang) != 0 {
		err := translate.SetLanguage(opt.lang)
		if err != nil {
			log.Fatalf("%v: %v", opt.lang, err)
		}
	}

	config := emulator.DefaultConfig()
	if len(opt.config) != 0 {
		var err error
		config, err = emulator.LoadConfig(opt.config)
		if err != nil {
			log.Fatalf("%v: %v", opt.config, err)
		}
	}

	// Flags given on the command line override the configuration file.
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "legacy":
			config.Legacy = opt.legacy
		case "rate":
			config.Rate = opt.rate
		case "seed":
			config.Seed = opt.seed
		case "coupled":
			config.CoupledTimers = opt.coupled
		}
	})

	err := config.Validate()
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	if opt.dumpConfig {
		err = config.Write(os.Stdout)
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	if flag.NArg() != 1 {
		log.Fatalf("%v: expected a single program file, got %v", os.Args[0], flag.Args())
	}

	err = run(opt, config, flag.Arg(0))
	if err != nil {
		log.Fatalf("%v: %v", flag.Arg(0), err)
	}
}

// run loads and executes or disassembles the program.
func run(opt options, config emulator.Config, name string) (err error) {
	emu, err := emulator.NewEmulator(config, nil)
	if err != nil {
		return
	}
	emu.Verbose = opt.verbose

	var image []byte
	if opt.assemble {
		var inf *os.File
		inf, err = os.Open(name)
		if err != nil {
			return
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: opt.verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}

		var prog *cpu.Program
		prog, err = asm.Parse(inf)
		if err != nil {
			return
		}

		image = prog.Binary()
		err = emu.LoadProgram(prog)
	} else {
		image, err = os.ReadFile(name)
		if err != nil {
			return
		}

		err = emu.Load(image)
	}
	if err != nil {
		return
	}

	if opt.disassemble {
		for addr, code := range cpu.Disassemble(image, cpu.PROGRAM_START) {
			line := ""
			if emu.Program != nil {
				line = fmt.Sprintf("  ; line %d", emu.Program.LineNo(addr))
			}
			fmt.Printf("%03x: %04x  %v%v\n", addr, uint16(code), code, line)
		}
		return
	}

	return execute(opt, config, emu)
}

// execute runs the emulator on the terminal until quit, interrupt or fault.
func execute(opt options, config emulator.Config, emu *emulator.Emulator) (err error) {
	input, restore, err := frontend.RawStdin()
	if err != nil {
		return
	}
	defer restore()

	kb := frontend.NewKeyboard(config.Keymap)
	term := &frontend.Terminal{Keyboard: kb}

	if !opt.mute {
		beeper, berr := frontend.NewBeeper()
		if berr != nil {
			log.Printf("audio: %v", berr)
		} else {
			defer beeper.Close()
			term.Beeper = beeper
		}
	}

	emu.Frontend = term

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		defer cancel()
		err = emu.Run(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		return
	})

	g.Go(func() error {
		return kb.Run(ctx, input)
	})

	g.Go(func() error {
		select {
		case <-kb.Quit():
			emu.Stop()
		case <-ctx.Done():
		}
		return nil
	})

	err = g.Wait()
	if err != nil && opt.verbose {
		log.Print(emu.Cpu.String())
	}

	return
}

// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"sync"
	"time"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/internal"
	"github.com/ezrec/chip8/keypad"
)

var _emulator_defines = map[string]string{
	"FRAME_RATE":   fmt.Sprintf("%v", FRAME_RATE),
	"DEFAULT_RATE": fmt.Sprintf("%v", DEFAULT_RATE),
}

// State of the scheduler.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_STOPPED = State(0) // stopped
	STATE_RUNNING = State(1) // running
)

// Emulator state. CPU + clocks + frontend.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Listing of the loaded program, if assembled.
	Config   Config       // Machine configuration.
	Frontend Frontend     // Host video, audio and input.

	rom    []byte // Last loaded program image.
	budget int    // Instructions owed, in 1/FRAME_RATE units.

	mutex   sync.Mutex
	state   State
	stop    chan struct{}
	stopped bool // Stop was requested before Run.
}

// NewEmulator creates a new emulator. A nil frontend discards all output.
func NewEmulator(config Config, frontend Frontend) (emu *Emulator, err error) {
	err = config.Validate()
	if err != nil {
		return
	}

	if frontend == nil {
		frontend = NopFrontend{}
	}

	emu = &Emulator{
		Cpu:      cpu.NewCpu(&keypad.Keypad{}),
		Config:   config,
		Frontend: frontend,
	}

	err = emu.Reset()
	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.MergeDefines(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// State returns the scheduler state.
func (emu *Emulator) State() State {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	return emu.state
}

// Reset the machine to power-on state with the last loaded program.
func (emu *Emulator) Reset() (err error) {
	if emu.State() == STATE_RUNNING {
		err = ErrRunning
		return
	}

	err = emu.Config.Validate()
	if err != nil {
		return
	}

	emu.setVerbose()
	emu.Cpu.Legacy = emu.Config.Legacy
	emu.Cpu.Reset()
	emu.Cpu.Seed(emu.Config.Seed)
	emu.budget = 0

	err = emu.Cpu.Memory.Load(emu.rom)
	return
}

// Load resets the machine with a program image.
func (emu *Emulator) Load(rom []byte) (err error) {
	if len(rom) > cpu.PROGRAM_LIMIT {
		err = cpu.ErrProgramSize
		return
	}

	if emu.Verbose {
		log.Printf("emulator: load %d bytes", len(rom))
	}

	emu.rom = rom
	emu.Program = nil

	return emu.Reset()
}

// LoadProgram resets the machine with an assembled program, keeping
// its listing for error locations.
func (emu *Emulator) LoadProgram(prog *cpu.Program) (err error) {
	err = emu.Load(prog.Binary())
	if err != nil {
		return
	}

	emu.Program = prog
	return
}

// LineNo returns the source line of the instruction at the program counter.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	return emu.Program.LineNo(emu.Cpu.Pc)
}

// setVerbose passes the emulator verbosity down to the machine.
func (emu *Emulator) setVerbose() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Memory.Verbose = emu.Verbose
	emu.Cpu.Display.Verbose = emu.Verbose
}

// Step performs a single instruction cycle.
func (emu *Emulator) Step() (err error) {
	emu.setVerbose()

	err = emu.Cpu.Step()
	if err != nil && emu.Program != nil {
		lineno := emu.LineNo()
		var fault *cpu.ErrFault
		if errors.As(err, &fault) {
			lineno = emu.Program.LineNo(fault.Pc)
		}
		err = &ErrRuntime{LineNo: lineno, Err: err}
	}

	return
}

// endFrame runs the 60 Hz duties after a frame's instructions.
func (emu *Emulator) endFrame() {
	if emu.Cpu.TickTimers(emu.Config.CoupledTimers) {
		emu.Frontend.Play()
	}

	emu.Frontend.Render(emu.Cpu.Display.Frame())
}

// Frame runs a single frame without waiting on the wall clock: input
// is polled, one frame's share of the instruction rate is executed, then
// the timers tick and the display is rendered.
//
// A key wait ends the frame's instructions early. A fault returns before
// the timers tick.
func (emu *Emulator) Frame(ctx context.Context) (err error) {
	emu.Frontend.Poll(emu.Cpu.Keypad)

	emu.budget += emu.Config.Rate
	count := emu.budget / FRAME_RATE
	emu.budget %= FRAME_RATE

	for range count {
		err = ctx.Err()
		if err != nil {
			return
		}

		err = emu.Step()
		if err != nil {
			return
		}

		if emu.Cpu.Waiting() {
			break
		}
	}

	emu.endFrame()

	return
}

// Run the machine in real time until stopped, cancelled or faulted.
// Instructions are issued at the configured rate, and the timers,
// sound, input and display are serviced at FRAME_RATE.
//
// Stop is observed at frame boundaries, and returns nil. A Stop requested
// before Run makes the next Run return nil at once. Cancellation returns
// the context's error.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	err = emu.Config.Validate()
	if err != nil {
		return
	}

	emu.mutex.Lock()
	if emu.state == STATE_RUNNING {
		emu.mutex.Unlock()
		err = ErrRunning
		return
	}
	if emu.stopped {
		emu.stopped = false
		emu.mutex.Unlock()
		return
	}
	emu.state = STATE_RUNNING
	stop := make(chan struct{})
	emu.stop = stop
	emu.mutex.Unlock()

	if emu.Verbose {
		log.Printf("emulator: run at %d instructions/s", emu.Config.Rate)
	}

	defer func() {
		emu.mutex.Lock()
		emu.state = STATE_STOPPED
		emu.stop = nil
		emu.mutex.Unlock()

		if emu.Verbose {
			log.Printf("emulator: stopped after %d instructions: %v", emu.Cpu.Ticks, err)
		}
	}()

	// Resume a halted machine only after a Reset.
	err = emu.Cpu.Halted()
	if err != nil {
		return
	}

	inst := time.NewTicker(time.Second / time.Duration(emu.Config.Rate))
	defer inst.Stop()

	frame := time.NewTicker(time.Second / FRAME_RATE)
	defer frame.Stop()

	keys := emu.Cpu.Keypad

	for {
		var pressed <-chan struct{}
		if emu.Cpu.Waiting() {
			pressed = keys.Changed()
			// A key may already be down.
			if _, ok := keys.FirstPressed(); ok {
				pressed = closedChannel
			}
		}

		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-pressed:
			err = emu.Step()
		case <-inst.C:
			if !emu.Cpu.Waiting() {
				err = emu.Step()
			}
		case <-frame.C:
			emu.Frontend.Poll(keys)
			emu.endFrame()
			select {
			case <-stop:
				return
			default:
			}
		}

		if err != nil {
			return
		}
	}
}

// closedChannel is always ready.
var closedChannel = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Stop requests a running machine to stop at the next frame boundary.
// If the machine is not running, the next Run stops before it starts.
func (emu *Emulator) Stop() {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	switch {
	case emu.stop != nil:
		close(emu.stop)
		emu.stop = nil
	case emu.state != STATE_RUNNING:
		emu.stopped = true
	}
}

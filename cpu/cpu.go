// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"math/rand/v2"
	"strings"

	"github.com/ezrec/chip8/display"
	"github.com/ezrec/chip8/keypad"
)

var _cpu_defines = map[string]string{
	"MEMORY_SIZE":     fmt.Sprintf("0x%x", MEMORY_SIZE),
	"FONT_START":      fmt.Sprintf("0x%x", FONT_START),
	"FONT_GLYPH_SIZE": fmt.Sprintf("%d", FONT_GLYPH_SIZE),
	"PROGRAM_START":   fmt.Sprintf("0x%x", PROGRAM_START),
	"DISPLAY_WIDTH":   fmt.Sprintf("%d", display.WIDTH),
	"DISPLAY_HEIGHT":  fmt.Sprintf("%d", display.HEIGHT),
}

// Cpu is the simulation context for the CHIP-8 interpreter.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.
	Legacy  bool // Set for legacy shift and load/store quirks.

	Registers                 // Register file.
	Memory    Memory          // 4K memory.
	Display   display.Display // Framebuffer.
	Keypad    *keypad.Keypad  // Host owned keypad.
	Rand      *rand.Rand      // Source for the rnd instruction.
	Ticks     int             // Instructions executed.
	fault     error           // Set once the CPU has halted.
	waiting   bool            // Set while ld vx, k awaits a key.
	waitReg   uint8           // Register receiving the awaited key.
}

// NewCpu creates a new CPU reading the given keypad. A nil keypad
// gets a private one.
func NewCpu(keys *keypad.Keypad) (cpu *Cpu) {
	if keys == nil {
		keys = &keypad.Keypad{}
	}

	cpu = &Cpu{
		Keypad: keys,
		Rand:   rand.New(rand.NewPCG(0, 0)),
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Seed reseeds the random number source.
func (cpu *Cpu) Seed(seed uint64) {
	cpu.Rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Reset the CPU state.
// - Clears the registers, stack, and display.
// - Zeros memory and reinstalls the font.
// - Clears any halt or key wait.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Registers.Reset()
	cpu.Memory.Reset()
	cpu.Display.Clear()
	cpu.Ticks = 0
	cpu.fault = nil
	cpu.waiting = false
	cpu.waitReg = 0
}

// Halted returns the fault that stopped the CPU, or nil.
func (cpu *Cpu) Halted() error {
	return cpu.fault
}

// Waiting returns true while the CPU waits for a key press.
func (cpu *Cpu) Waiting() bool {
	return cpu.waiting
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{"pc", "i", "sp", "dt", "st", "v0-v7", "v8-vf"}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "pc":
			strval = fmt.Sprintf("0x%03X", cpu.Pc)
		case "i":
			strval = fmt.Sprintf("0x%03X", cpu.I)
		case "sp":
			strval = fmt.Sprintf("%d", cpu.Stack.Sp)
			if top, ok := cpu.Stack.Peek(); ok {
				strval += fmt.Sprintf(" (0x%03X)", top)
			}
		case "dt":
			strval = fmt.Sprintf("%02X", cpu.Dt)
		case "st":
			strval = fmt.Sprintf("%02X", cpu.St)
		case "v0-v7", "v8-vf":
			base := 0
			if reg == "v8-vf" {
				base = 8
			}
			vals := make([]string, 8)
			for n := range vals {
				vals[n] = fmt.Sprintf("%02X", cpu.V[base+n])
			}
			strval = strings.Join(vals, " ")
		}
		text += fmt.Sprintf("% 6s: %v\n", reg, strval)
	}

	return
}

// FetchCode fetches the instruction word at the program counter.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	return cpu.Memory.Word(cpu.Pc)
}

// Step executes a single instruction cycle.
//
// While waiting for a key, Step completes the wait if a key is down and
// otherwise does nothing. Once halted, Step returns the halting fault.
func (cpu *Cpu) Step() (err error) {
	if cpu.fault != nil {
		return cpu.fault
	}

	if cpu.waiting {
		cpu.awaitKey()
		return
	}

	code, err := cpu.FetchCode()
	if err != nil {
		err = &ErrFault{Pc: cpu.Pc, Err: err}
		cpu.fault = err
		return
	}

	return cpu.Execute(code)
}

// awaitKey completes a pending ld vx, k if any key is down.
func (cpu *Cpu) awaitKey() {
	key, ok := cpu.Keypad.FirstPressed()
	if !ok {
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: key 0x%x -> v%x", key, cpu.waitReg)
	}

	cpu.V[cpu.waitReg] = key
	cpu.waiting = false
}

// Execute executes a single instruction word.
//
// The program counter advances past the instruction before its effect is
// applied. A fault halts the CPU with no effect other than that advance.
// Once halted, Execute returns the halting fault.
func (cpu *Cpu) Execute(code Code) (err error) {
	if cpu.fault != nil {
		return cpu.fault
	}

	pc := cpu.Pc
	defer func() {
		if err != nil {
			err = &ErrFault{Pc: pc, Word: code, Err: err}
			cpu.fault = err
		}
	}()

	if cpu.Verbose {
		log.Printf("%03x: %v", pc, code)
	}

	cpu.Pc += 2

	inst, err := Decode(code)
	if err != nil {
		return
	}

	switch inst.Shape {
	case SHAPE_IMM:
		err = cpu.executeImm(inst)
	case SHAPE_REG_IMM:
		err = cpu.executeRegImm(inst)
	case SHAPE_REG_REG:
		err = cpu.executeRegReg(inst)
	default:
		err = ErrDecode
	}
	if err != nil {
		return
	}

	cpu.Ticks += 1

	return
}

// skipIf skips the next instruction when cond holds.
func (cpu *Cpu) skipIf(cond bool) {
	if cond {
		cpu.Pc += 2
	}
}

// executeImm executes op nnn instructions.
func (cpu *Cpu) executeImm(inst Instruction) (err error) {
	switch inst.Op {
	case 0x0:
		switch inst.Nnn {
		case 0x0E0: // cls
			cpu.Display.Clear()
		case 0x0EE: // ret
			ret, ok := cpu.Stack.Pop()
			if !ok {
				err = ErrStackUnderflow
				return
			}
			cpu.Pc = ret
		default:
			err = ErrInstruction
		}
	case 0x1: // jp nnn
		cpu.Pc = inst.Nnn
	case 0x2: // call nnn
		if !cpu.Stack.Push(cpu.Pc) {
			err = ErrStackOverflow
			return
		}
		cpu.Pc = inst.Nnn
	case 0xA: // ld i, nnn
		cpu.I = inst.Nnn
	case 0xB: // jp v0, nnn
		cpu.Pc = inst.Nnn + uint16(cpu.V[0])
	default:
		err = ErrInstruction
	}

	return
}

// executeRegImm executes op x kk instructions.
func (cpu *Cpu) executeRegImm(inst Instruction) (err error) {
	x := inst.X

	switch inst.Op {
	case 0x3: // se vx, kk
		cpu.skipIf(cpu.V[x] == inst.Kk)
	case 0x4: // sne vx, kk
		cpu.skipIf(cpu.V[x] != inst.Kk)
	case 0x6: // ld vx, kk
		cpu.V[x] = inst.Kk
	case 0x7: // add vx, kk
		cpu.V[x] += inst.Kk
	case 0xC: // rnd vx, kk
		cpu.V[x] = uint8(cpu.Rand.UintN(256)) & inst.Kk
	case 0xE:
		key := cpu.V[x]
		switch inst.Kk {
		case 0x9E: // skp vx
			if key > 0xf {
				err = ErrKeyRange
				return
			}
			cpu.skipIf(cpu.Keypad.Pressed(key))
		case 0xA1: // sknp vx
			if key > 0xf {
				err = ErrKeyRange
				return
			}
			cpu.skipIf(!cpu.Keypad.Pressed(key))
		default:
			err = ErrInstruction
		}
	case 0xF:
		err = cpu.executeMisc(inst)
	default:
		err = ErrInstruction
	}

	return
}

// executeMisc executes the Fx kk timer, key, index and memory instructions.
func (cpu *Cpu) executeMisc(inst Instruction) (err error) {
	x := inst.X

	switch inst.Kk {
	case 0x07: // ld vx, dt
		cpu.V[x] = cpu.Dt
	case 0x0A: // ld vx, k
		cpu.waiting = true
		cpu.waitReg = x
		cpu.awaitKey()
	case 0x15: // ld dt, vx
		cpu.Dt = cpu.V[x]
	case 0x18: // ld st, vx
		cpu.St = cpu.V[x]
	case 0x1E: // add i, vx
		cpu.I += uint16(cpu.V[x])
	case 0x29: // ld f, vx
		var addr uint16
		addr, err = Glyph(cpu.V[x])
		if err != nil {
			return
		}
		cpu.I = addr
	case 0x33: // ld b, vx
		var bcd []uint8
		bcd, err = cpu.Memory.Slice(cpu.I, 3)
		if err != nil {
			return
		}
		value := cpu.V[x]
		bcd[0] = value / 100
		bcd[1] = (value / 10) % 10
		bcd[2] = value % 10
	case 0x55: // ld [i], vx
		var data []uint8
		data, err = cpu.Memory.Slice(cpu.I, int(x)+1)
		if err != nil {
			return
		}
		copy(data, cpu.V[:x+1])
		if cpu.Legacy {
			cpu.I += uint16(x) + 1
		}
	case 0x65: // ld vx, [i]
		var data []uint8
		data, err = cpu.Memory.Slice(cpu.I, int(x)+1)
		if err != nil {
			return
		}
		copy(cpu.V[:x+1], data)
		if cpu.Legacy {
			cpu.I += uint16(x) + 1
		}
	default:
		err = ErrInstruction
	}

	return
}

// executeRegReg executes op x y n instructions.
func (cpu *Cpu) executeRegReg(inst Instruction) (err error) {
	x, y := inst.X, inst.Y

	switch inst.Op {
	case 0x5: // se vx, vy
		if inst.Op2 != 0 {
			err = ErrInstruction
			return
		}
		cpu.skipIf(cpu.V[x] == cpu.V[y])
	case 0x8:
		err = cpu.doAlu(inst.Op2, x, y)
	case 0x9: // sne vx, vy
		if inst.Op2 != 0 {
			err = ErrInstruction
			return
		}
		cpu.skipIf(cpu.V[x] != cpu.V[y])
	case 0xD: // drw vx, vy, n
		var sprite []uint8
		sprite, err = cpu.Memory.Slice(cpu.I, int(inst.Op2))
		if err != nil {
			return
		}
		var collision bool
		collision, err = cpu.Display.DrawSprite(sprite, cpu.V[x], cpu.V[y])
		if err != nil {
			return
		}
		cpu.setFlag(collision)
	default:
		err = ErrInstruction
	}

	return
}

// doAlu performs the 8xyN register to register operations.
// The result is written before vf, so vf wins when x is 0xf.
func (cpu *Cpu) doAlu(op uint8, x, y uint8) (err error) {
	vx, vy := cpu.V[x], cpu.V[y]

	// Shift source register.
	src := vx
	if cpu.Legacy {
		src = vy
	}

	switch op {
	case 0x0: // ld
		cpu.V[x] = vy
	case 0x1: // or
		cpu.V[x] = vx | vy
	case 0x2: // and
		cpu.V[x] = vx & vy
	case 0x3: // xor
		cpu.V[x] = vx ^ vy
	case 0x4: // add
		sum := uint16(vx) + uint16(vy)
		cpu.V[x] = uint8(sum)
		cpu.setFlag(sum > 0xff)
	case 0x5: // sub
		cpu.V[x] = vx - vy
		cpu.setFlag(vx >= vy)
	case 0x6: // shr
		cpu.V[x] = src >> 1
		cpu.setFlag(src&0x01 != 0)
	case 0x7: // subn
		cpu.V[x] = vy - vx
		cpu.setFlag(vy >= vx)
	case 0xE: // shl
		cpu.V[x] = src << 1
		cpu.setFlag(src&0x80 != 0)
	default:
		err = ErrInstruction
	}

	return
}

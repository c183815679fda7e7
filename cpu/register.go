package cpu

const (
	REGISTER_COUNT = 16  // General purpose registers v0-vf.
	REGISTER_FLAG  = 0xf // vf, the carry/borrow/collision flag.
)

// Registers is the CHIP-8 register file.
type Registers struct {
	V     [REGISTER_COUNT]uint8 // General purpose registers.
	I     uint16                // Index register.
	Pc    uint16                // Program counter.
	Stack Stack                 // Call stack and stack pointer.
	Dt    uint8                 // Delay timer.
	St    uint8                 // Sound timer.
}

// Reset the register file to its power-on state.
func (regs *Registers) Reset() {
	clear(regs.V[:])
	regs.I = 0
	regs.Pc = PROGRAM_START
	regs.Stack.Reset()
	regs.Dt = 0
	regs.St = 0
}

// setFlag sets vf to 1 or 0.
func (regs *Registers) setFlag(flag bool) {
	if flag {
		regs.V[REGISTER_FLAG] = 1
	} else {
		regs.V[REGISTER_FLAG] = 0
	}
}

// TickTimers decrements the nonzero timers once, as done every 60 Hz
// frame, and returns whether the tone should sound this frame.
//
// When coupled is set, both timers and the tone are gated on the delay
// timer instead of the sound timer gating the tone.
func (regs *Registers) TickTimers(coupled bool) (sound bool) {
	if coupled {
		if regs.Dt == 0 {
			return
		}
		regs.Dt--
		if regs.St > 0 {
			regs.St--
		}
		sound = true
		return
	}

	if regs.Dt > 0 {
		regs.Dt--
	}
	if regs.St > 0 {
		sound = true
		regs.St--
	}

	return
}

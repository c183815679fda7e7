package cpu

import (
	"fmt"
)

// Shape is the operand layout of an opcode family.
type Shape int

//go:generate go tool stringer -linecomment -type=Shape
const (
	SHAPE_IMM     = Shape(0) // imm
	SHAPE_REG_IMM = Shape(1) // reg-imm
	SHAPE_REG_REG = Shape(2) // reg-reg
)

// Code is a single 16-bit instruction word.
type Code uint16

// Instruction is a decoded instruction word. Only the fields of its
// Shape are meaningful.
type Instruction struct {
	Code  Code   // Original instruction word.
	Shape Shape  // Operand layout.
	Op    uint8  // Opcode family, the high nibble.
	Nnn   uint16 // SHAPE_IMM: 12-bit address or constant.
	X     uint8  // SHAPE_REG_IMM, SHAPE_REG_REG: first register.
	Y     uint8  // SHAPE_REG_REG: second register.
	Kk    uint8  // SHAPE_REG_IMM: 8-bit constant.
	Op2   uint8  // SHAPE_REG_REG: low nibble sub-operation.
}

// MakeCodeImm creates an op nnn instruction.
func MakeCodeImm(op uint8, nnn uint16) Code {
	return Code(uint16(op&0xf)<<12 | (nnn & 0xfff))
}

// MakeCodeRegImm creates an op x kk instruction.
func MakeCodeRegImm(op uint8, x uint8, kk uint8) Code {
	return Code(uint16(op&0xf)<<12 | uint16(x&0xf)<<8 | uint16(kk))
}

// MakeCodeRegReg creates an op x y op2 instruction.
func MakeCodeRegReg(op uint8, x uint8, y uint8, op2 uint8) Code {
	return Code(uint16(op&0xf)<<12 | uint16(x&0xf)<<8 | uint16(y&0xf)<<4 | uint16(op2&0xf))
}

// Family returns the opcode family from the instruction word.
func (code Code) Family() uint8 {
	return uint8((code >> 12) & 0xf)
}

// ImmDecode decodes and returns the family and 12-bit immediate.
func (code Code) ImmDecode() (op uint8, nnn uint16) {
	word := uint16(code)
	op = uint8((word >> 12) & 0xf)
	nnn = word & 0xfff
	return
}

// RegImmDecode decodes and returns the family, register and 8-bit immediate.
func (code Code) RegImmDecode() (op, x, kk uint8) {
	word := uint16(code)
	op = uint8((word >> 12) & 0xf)
	x = uint8((word >> 8) & 0xf)
	kk = uint8(word & 0xff)
	return
}

// RegRegDecode decodes and returns the family, both registers and the sub-operation.
func (code Code) RegRegDecode() (op, x, y, op2 uint8) {
	word := uint16(code)
	op = uint8((word >> 12) & 0xf)
	x = uint8((word >> 8) & 0xf)
	y = uint8((word >> 4) & 0xf)
	op2 = uint8(word & 0xf)
	return
}

// Decode classifies an instruction word by its family. It has no side
// effects; matching the sub-operation is left to the executor.
func Decode(code Code) (inst Instruction, err error) {
	inst = Instruction{Code: code, Op: code.Family()}

	switch inst.Op {
	case 0x0, 0x1, 0x2, 0xA, 0xB:
		inst.Shape = SHAPE_IMM
		_, inst.Nnn = code.ImmDecode()
	case 0x3, 0x4, 0x6, 0x7, 0xC, 0xE, 0xF:
		inst.Shape = SHAPE_REG_IMM
		_, inst.X, inst.Kk = code.RegImmDecode()
	case 0x5, 0x8, 0x9, 0xD:
		inst.Shape = SHAPE_REG_REG
		_, inst.X, inst.Y, inst.Op2 = code.RegRegDecode()
	default:
		err = ErrDecode
	}

	return
}

// aluMnemonic maps the 8xyN sub-operation to its mnemonic.
var aluMnemonic = map[uint8]string{
	0x0: "ld",
	0x1: "or",
	0x2: "and",
	0x3: "xor",
	0x4: "add",
	0x5: "sub",
	0x6: "shr",
	0x7: "subn",
	0xE: "shl",
}

// disassemble returns the assembly text for the word, and whether the
// word is a defined instruction.
func (code Code) disassemble() (text string, ok bool) {
	inst, err := Decode(code)
	if err != nil {
		return
	}

	ok = true
	x, y := inst.X, inst.Y

	switch inst.Shape {
	case SHAPE_IMM:
		switch inst.Op {
		case 0x0:
			switch inst.Nnn {
			case 0x0E0:
				text = "cls"
			case 0x0EE:
				text = "ret"
			default:
				ok = false
			}
		case 0x1:
			text = fmt.Sprintf("jp 0x%03x", inst.Nnn)
		case 0x2:
			text = fmt.Sprintf("call 0x%03x", inst.Nnn)
		case 0xA:
			text = fmt.Sprintf("ld i, 0x%03x", inst.Nnn)
		case 0xB:
			text = fmt.Sprintf("jp v0, 0x%03x", inst.Nnn)
		}
	case SHAPE_REG_IMM:
		switch inst.Op {
		case 0x3:
			text = fmt.Sprintf("se v%x, 0x%02x", x, inst.Kk)
		case 0x4:
			text = fmt.Sprintf("sne v%x, 0x%02x", x, inst.Kk)
		case 0x6:
			text = fmt.Sprintf("ld v%x, 0x%02x", x, inst.Kk)
		case 0x7:
			text = fmt.Sprintf("add v%x, 0x%02x", x, inst.Kk)
		case 0xC:
			text = fmt.Sprintf("rnd v%x, 0x%02x", x, inst.Kk)
		case 0xE:
			switch inst.Kk {
			case 0x9E:
				text = fmt.Sprintf("skp v%x", x)
			case 0xA1:
				text = fmt.Sprintf("sknp v%x", x)
			default:
				ok = false
			}
		case 0xF:
			switch inst.Kk {
			case 0x07:
				text = fmt.Sprintf("ld v%x, dt", x)
			case 0x0A:
				text = fmt.Sprintf("ld v%x, k", x)
			case 0x15:
				text = fmt.Sprintf("ld dt, v%x", x)
			case 0x18:
				text = fmt.Sprintf("ld st, v%x", x)
			case 0x1E:
				text = fmt.Sprintf("add i, v%x", x)
			case 0x29:
				text = fmt.Sprintf("ld f, v%x", x)
			case 0x33:
				text = fmt.Sprintf("ld b, v%x", x)
			case 0x55:
				text = fmt.Sprintf("ld [i], v%x", x)
			case 0x65:
				text = fmt.Sprintf("ld v%x, [i]", x)
			default:
				ok = false
			}
		}
	case SHAPE_REG_REG:
		switch inst.Op {
		case 0x5:
			ok = inst.Op2 == 0
			text = fmt.Sprintf("se v%x, v%x", x, y)
		case 0x8:
			var name string
			name, ok = aluMnemonic[inst.Op2]
			text = fmt.Sprintf("%v v%x, v%x", name, x, y)
		case 0x9:
			ok = inst.Op2 == 0
			text = fmt.Sprintf("sne v%x, v%x", x, y)
		case 0xD:
			text = fmt.Sprintf("drw v%x, v%x, %d", x, y, inst.Op2)
		}
	}

	return
}

// Valid returns true if the word is a defined instruction.
func (code Code) Valid() (ok bool) {
	_, ok = code.disassemble()
	return
}

// String returns the assembly language representation of this instruction.
// Undefined words are shown as data.
func (code Code) String() string {
	text, ok := code.disassemble()
	if !ok {
		text = fmt.Sprintf(".word 0x%04x", uint16(code))
	}
	return text
}

package cpu

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location and generated bytes.
type Opcode struct {
	LineNo    int      // Source line number.
	Address   int      // Load address of the first byte.
	Words     []string // Source words of the line.
	Bytes     []uint8  // Assembled bytes.
	LinkLabel string   // Label to link into the 12-bit address field.
}

// Program is an assembled listing.
type Program struct {
	Opcodes []Opcode
}

// Debug locates an address within a Program listing.
type Debug struct {
	*Opcode
	Index int // Byte offset of the address within the opcode.
}

// Debug finds the listing entry that assembled the byte at addr.
// The Opcode is nil if no entry covers addr.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(addr) >= op.Address && int(addr) < op.Address+len(op.Bytes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr) - op.Address,
			}
			break
		}
	}

	return
}

// LineNo returns the source line that assembled addr, or 0.
func (prog *Program) LineNo(addr uint16) int {
	dbg := prog.Debug(addr)
	if dbg.Opcode == nil {
		return 0
	}
	return dbg.LineNo
}

// Binary returns the program image to be loaded at PROGRAM_START.
func (prog *Program) Binary() (bin []byte) {
	end := PROGRAM_START
	for _, op := range prog.Opcodes {
		end = max(end, op.Address+len(op.Bytes))
	}

	bin = make([]byte, end-PROGRAM_START)
	for _, op := range prog.Opcodes {
		copy(bin[op.Address-PROGRAM_START:], op.Bytes)
	}

	return
}

// Disassemble iterates over the instruction words of an image loaded at origin.
// A trailing odd byte is ignored.
func Disassemble(data []byte, origin uint16) iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for n := 0; n+1 < len(data); n += 2 {
			code := Code(data[n])<<8 | Code(data[n+1])
			if !yield(origin+uint16(n), code) {
				return
			}
		}
	}
}

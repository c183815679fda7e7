package cpu

import (
	"log"
)

// Font is the hexadecimal digit glyph table, loaded at FONT_START.
var Font = [FONT_SIZE]uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory is the flat 4K byte store.
type Memory struct {
	Verbose bool // Set to enable verbose logging.
	Data    [MEMORY_SIZE]uint8
}

// Reset zeros memory and reinstalls the font.
func (mem *Memory) Reset() {
	clear(mem.Data[:])
	copy(mem.Data[FONT_START:], Font[:])
}

// Load copies a program verbatim to PROGRAM_START.
func (mem *Memory) Load(program []byte) (err error) {
	if len(program) > PROGRAM_LIMIT {
		err = ErrProgramSize
		return
	}

	if mem.Verbose {
		log.Printf("memory: load %d bytes at 0x%03x", len(program), PROGRAM_START)
	}

	copy(mem.Data[PROGRAM_START:], program)

	return
}

// Slice returns the n bytes at addr, backed by memory.
func (mem *Memory) Slice(addr uint16, n int) (data []uint8, err error) {
	if n < 0 || int(addr)+n > MEMORY_SIZE {
		err = ErrAddress
		return
	}

	data = mem.Data[int(addr) : int(addr)+n]
	return
}

// Word returns the big endian instruction word at addr.
func (mem *Memory) Word(addr uint16) (code Code, err error) {
	data, err := mem.Slice(addr, 2)
	if err != nil {
		return
	}

	code = Code(data[0])<<8 | Code(data[1])
	return
}

// Glyph returns the address of the font glyph for a hex digit.
func Glyph(digit uint8) (addr uint16, err error) {
	if digit > 0xF {
		err = ErrDigitRange
		return
	}

	addr = FONT_START + uint16(digit)*FONT_GLYPH_SIZE
	return
}

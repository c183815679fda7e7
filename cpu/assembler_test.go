package cpu

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))
	assert.Equal([]byte{}, prog.Binary())

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal("0x200", asm.Equate["PROGRAM_START"])
	assert.Equal("0xe00", asm.Equate["PROGRAM_LIMIT"])
	assert.Equal("5", asm.Equate["FONT_GLYPH_SIZE"])
	assert.Equal("64", asm.Equate["DISPLAY_WIDTH"])
}

// assemble parses the lines and returns the program binary.
func assemble(t *testing.T, lines ...string) (bin []byte) {
	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	return prog.Binary()
}

func TestAssemblerInstructions(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		line string
		code Code
	}){
		{"cls", 0x00E0},
		{"RET", 0x00EE},
		{"jp 0x345", 0x1345},
		{"call 0x345", 0x2345},
		{"se v4, 0x55", 0x3455},
		{"sne v4 0x55", 0x4455},
		{"se v4, vA", 0x54A0},
		{"ld v4, 0x55", 0x6455},
		{"ld v4, -1", 0x64FF},
		{"add v7, 1", 0x7701},
		{"add v7, ~0", 0x77FF},
		{"ld v5, v4", 0x8540},
		{"or v1, v2", 0x8121},
		{"and v1, v2", 0x8122},
		{"xor v1, v2", 0x8123},
		{"add v1, v2", 0x8124},
		{"sub v1, v2", 0x8125},
		{"shr v1, v2", 0x8126},
		{"shr v1", 0x8116},
		{"subn v1, v2", 0x8127},
		{"shl v1, v2", 0x812E},
		{"shl v3", 0x833E},
		{"sne v1, v2", 0x9120},
		{"ld i, 0x300", 0xA300},
		{"jp v0, 0x300", 0xB300},
		{"rnd v1, 0x0f", 0xC10F},
		{"drw v1, v2, 5", 0xD125},
		{"drw v1, v2, 0xf", 0xD12F},
		{"skp v1", 0xE19E},
		{"sknp v1", 0xE1A1},
		{"ld v1, dt", 0xF107},
		{"ld v1, K", 0xF10A},
		{"ld dt, v1", 0xF115},
		{"ld st, v1", 0xF118},
		{"add i, v1", 0xF11E},
		{"ld f, v1", 0xF129},
		{"ld b, v1", 0xF133},
		{"ld [i], v3", 0xF355},
		{"ld v3, [i]", 0xF365},
		{".word 0x0123", 0x0123},
		{"ld v1, 'A'", 0x6141},
		{"ld v1, FONT_GLYPH_SIZE", 0x6105},
		{"ld v1, $(DISPLAY_WIDTH // 2 - 1)", 0x611F},
		{"ld v1, 0x10 ; comment", 0x6110},
	}

	for _, entry := range table {
		bin := assemble(t, entry.line)
		assert.Equal([]byte{uint8(entry.code >> 8), uint8(entry.code)}, bin, entry.line)
	}
}

func TestAssemblerRoundTrip(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	// Every word disassembles to text that assembles back to the word.
	const chunk = 0x400
	for base := 0; base < 0x10000; base += chunk {
		var lines []string
		var expected []byte
		for word := base; word < base+chunk; word++ {
			code := Code(word)
			lines = append(lines, code.String())
			expected = append(expected, uint8(code>>8), uint8(code))
		}

		prog, err := asm.Parse(strings.NewReader(strings.Join(lines, "\n")))
		if !assert.NoError(err, "base 0x%04x", base) {
			continue
		}
		assert.Equal(expected, prog.Binary(), "base 0x%04x", base)
	}
}

func TestAssemblerData(t *testing.T) {
	assert := assert.New(t)

	bin := assemble(t,
		".byte 0xF0 0x90, 0x90",
		".byte -1",
		".word 0x1234 0xABCD",
	)
	assert.Equal([]byte{0xF0, 0x90, 0x90, 0xFF, 0x12, 0x34, 0xAB, 0xCD}, bin)
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	bin := assemble(t,
		".equ SPEED 3",
		"ld v1, SPEED",
		"ld v2, $(SPEED * 2 + 1)",
		".equ MIDDLE $(DISPLAY_HEIGHT // 2)",
		"ld v3, MIDDLE",
		"ld v4, $(PROGRAM_START >> 8)",
		"ld v5, $(LINENO)",
	)
	assert.Equal([]byte{
		0x61, 0x03,
		0x62, 0x07,
		0x63, 0x10,
		0x64, 0x02,
		0x65, 0x07,
	}, bin)
}

func TestAssemblerPredefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("SPEED", "9")
	asm.Predefine("SPEED", "8")

	prog, err := asm.Parse(strings.NewReader("ld v0, SPEED"))
	assert.NoError(err)
	assert.Equal([]byte{0x60, 0x08}, prog.Binary())
}

func TestAssemblerLabel(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		"start: cls",
		"ld i, sprite",
		"call sub",
		"jp start",
		"sub: AND_ALSO:",
		"ret",
		"",
		"sprite: .byte 0xF0 0x90",
		"jp v0, $(sprite + 2)",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if !assert.NoError(err) {
		return
	}

	assert.Equal(map[string]int{
		"start":    0x200,
		"sub":      0x208,
		"AND_ALSO": 0x208,
		"sprite":   0x20A,
	}, asm.Label)

	assert.Equal([]byte{
		0x00, 0xE0,
		0xA2, 0x0A,
		0x22, 0x08,
		0x12, 0x00,
		0x00, 0xEE,
		0xF0, 0x90,
		0xB2, 0x0C,
	}, prog.Binary())

	expected := []Opcode{
		{1, 0x200, []string{"cls"}, []uint8{0x00, 0xE0}, ""},
		{2, 0x202, []string{"ld", "i", "sprite"}, []uint8{0xA2, 0x0A}, "sprite"},
	}
	assert.Equal(expected, prog.Opcodes[:2])

	assert.Equal(8, prog.LineNo(0x20B))
}

func TestAssemblerForwardCall(t *testing.T) {
	assert := assert.New(t)

	bin := assemble(t,
		"call later",
		"jp 0x200",
		".byte 0 0 0 0",
		"later: ret",
	)
	assert.Equal([]byte{0x22, 0x08, 0x12, 0x00, 0, 0, 0, 0, 0x00, 0xEE}, bin)
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	bin := assemble(t,
		".macro DELAY reg ticks",
		"ld reg, ticks",
		"ld dt, reg",
		"@wait: ld reg, dt",
		"se reg, 0",
		"jp @wait",
		".endm",
		"DELAY v1 30",
		"DELAY v2, $(2 * 30)",
	)

	assert.Equal([]byte{
		0x61, 0x1E,
		0xF1, 0x15,
		0xF1, 0x07,
		0x31, 0x00,
		0x12, 0x04,
		0x62, 0x3C,
		0xF2, 0x15,
		0xF2, 0x07,
		0x32, 0x00,
		0x12, 0x0E,
	}, bin)
}

func TestAssemblerProgramSize(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Parse(strings.NewReader(strings.Repeat("cls\n", PROGRAM_LIMIT/2)))
	assert.NoError(err)

	_, err = asm.Parse(strings.NewReader(strings.Repeat("cls\n", PROGRAM_LIMIT/2+1)))
	assert.ErrorIs(err, ErrProgramSize)
}

func TestAssemblerErrSyntax(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	// Various syntax errors
	table := [](struct {
		prog string
		line int
		err  error
	}){
		{"DUP:\nDUP:\n", 2, ErrLabelDuplicate},
		{"ld v0, nothing", 1, ErrParseNumber("nothing")},
		{"ld v0, $(\"aaa\")", 1, ErrParseExpression("\"aaa\"")},
		{"ld v0, 0x100", 1, ErrValueRange},
		{"ld v0, -129", 1, ErrValueRange},
		{"ld vg, 1", 1, ErrOpcodeInvalid},
		{"ld [i], 5", 1, ErrOpcodeInvalid},
		{"ld v0", 1, ErrOpcodeMissing},
		{"jp 0x1000", 1, ErrValueRange},
		{"cls\njp nowhere\ncls", 2, ErrLabelMissing("nowhere")},
		{"jp v1, 0x300", 1, ErrRegisterInvalid},
		{"jp", 1, ErrOpcodeMissing},
		{"call a b", 1, ErrOpcodeExtraArgs},
		{"cls v0", 1, ErrOpcodeExtraArgs},
		{"drw v0, v1, 16", 1, ErrValueRange},
		{"drw v0, v1", 1, ErrOpcodeMissing},
		{"add i, 5", 1, ErrRegisterInvalid},
		{"add v0", 1, ErrOpcodeMissing},
		{"shr", 1, ErrOpcodeMissing},
		{"xor v0, 5", 1, ErrRegisterInvalid},
		{"se v0", 1, ErrOpcodeMissing},
		{"rnd v0, 0x100", 1, ErrValueRange},
		{"skp", 1, ErrOpcodeMissing},
		{"nop", 1, ErrInstructionInvalid},
		{".byte", 1, ErrOpcodeMissing},
		{".byte 256", 1, ErrValueRange},
		{".word 0x10000", 1, ErrValueRange},
		{".equ", 1, ErrEquateSyntax},
		{".equ A", 1, ErrEquateSyntax},
		{".equ A 1\n.equ A 2\n", 2, ErrEquateDuplicate},
		{".macro", 1, ErrMacroSyntax},
		{".macro A B C\n.endm\nA 1\n", 3, ErrMacroSyntax},
		{".macro A B\nld B, 1\n.endm\nA v1\nA x\n", 5, ErrOpcodeInvalid},
		{".macro A B\n.macro C\n.endm\n.endm", 2, ErrMacroNesting},
		{".macro A B\n.endm\n.macro A\n.endm\n", 3, ErrMacroDuplicate},
		{".macro A B\n.endm\n.endm\n", 3, ErrMacroLonelyEndm},
		{".macro A\ncls\n", 2, ErrMacroLonely},
	}

	for _, entry := range table {
		_, err := asm.Parse(strings.NewReader(entry.prog))
		var se *ErrSyntax
		assert.NotNil(err, entry.prog)
		if err != nil {
			assert.True(errors.As(err, &se), entry.prog)
			assert.Equal(entry.line, se.LineNo, entry.prog)
			assert.ErrorIs(err, entry.err, entry.prog)
		}
	}
}

func TestAssemblerErrMacro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader(".macro BAD\nnop\n.endm\nBAD\n"))

	var me *ErrMacro
	if assert.True(errors.As(err, &me)) {
		assert.Equal("BAD", me.Macro)
		assert.Equal(2, me.Line)
	}
	assert.ErrorIs(err, ErrInstructionInvalid)
	assert.Contains(err.Error(), fmt.Sprintf("line %d", 4))
}

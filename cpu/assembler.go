// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":        "0",
	"PROGRAM_LIMIT": fmt.Sprintf("%#x", PROGRAM_LIMIT),
	"STACK_LIMIT":   fmt.Sprintf("%d", STACK_LIMIT),
}

// Assembler is a single pass macro assembler for CHIP-8 programs.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	expansion int // Count of macro expansions, for @ local labels.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) > 0 && word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}
	v64, err := strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)
	if invert {
		value = ^value
	}

	return
}

// rangeOf returns the value of a word, checked against a bit width.
// Negative values down to the signed minimum are accepted and returned
// in two's complement.
func (asm *Assembler) rangeOf(word string, bits int) (value int, err error) {
	value, err = asm.valueOf(word)
	if err != nil {
		return
	}

	limit := 1 << bits
	if value >= limit || value < -(limit>>1) {
		err = ErrValueRange
		return
	}

	value &= limit - 1
	return
}

// registerOf returns the V register index named by word.
func (asm *Assembler) registerOf(word string) (x uint8, err error) {
	word = strings.ToLower(word)
	if len(word) != 2 || word[0] != 'v' {
		err = ErrRegisterInvalid
		return
	}

	v, perr := strconv.ParseUint(word[1:], 16, 4)
	if perr != nil {
		err = ErrRegisterInvalid
		return
	}

	x = uint8(v)
	return
}

// isRegister returns true if word names a V register.
func (asm *Assembler) isRegister(word string) bool {
	_, err := asm.registerOf(word)
	return err == nil
}

// isLabel returns true if word could be a label name.
func isLabel(word string) bool {
	if len(word) == 0 {
		return false
	}
	for n, r := range word {
		switch {
		case r == '_' || r == '.':
		case unicode.IsLetter(r):
		case unicode.IsDigit(r) && n > 0:
		default:
			return false
		}
	}
	return true
}

// addressOf returns a 12-bit address, or the label to link it to.
func (asm *Assembler) addressOf(word string) (nnn uint16, label string, err error) {
	value, err := asm.rangeOf(word, 12)
	if err == nil {
		nnn = uint16(value)
		return
	}

	if _, ok := err.(ErrParseNumber); ok && isLabel(word) {
		err = nil
		label = word
	}

	return
}

// parentEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v int
		v, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(v)
	}
	err = nil
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(addr)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// splitWords splits a line on whitespace and commas.
func splitWords(line string) (words []string) {
	words = strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	return
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	re := regexp.MustCompile(`'\\?[^']'`)
	line = re.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	re = regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	words = splitWords(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddress()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansion++
		local := fmt.Sprintf("%v_%v_", name, asm.expansion)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddress gets the load address of the next generated byte.
func (asm *Assembler) currentAddress() int {
	if len(asm.Opcode) == 0 {
		return PROGRAM_START
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Address + len(last.Bytes)
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.expansion = 0
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, _cpu_defines)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := splitWords(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	if err = scanner.Err(); err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	if asm.currentAddress()-PROGRAM_START > PROGRAM_LIMIT {
		err = ErrProgramSize
		return
	}

	// Final linking of address labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		lineno = op.LineNo
		line = strings.Join(op.Words, " ")
		addr, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}
		if addr > ADDRESS_MASK {
			err = ErrValueRange
			return
		}
		if len(op.Bytes) != 2 {
			log.Fatalf("Unable to link label '%s' to line %d: %v", label, op.LineNo, op.Words)
		}
		op.Bytes[0] |= uint8(addr>>8) & 0x0f
		op.Bytes[1] = uint8(addr)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// aluMap maps 8xyN mnemonics to their sub-operation.
var aluMap = map[string]uint8{
	"or":   0x1,
	"and":  0x2,
	"xor":  0x3,
	"sub":  0x5,
	"shr":  0x6,
	"subn": 0x7,
	"shl":  0xE,
}

// ldMap maps the Fx.. load forms to their sub-operation.
// The key is the destination and source, with "v" standing for Vx.
var ldMap = map[[2]string]uint8{
	{"v", "dt"}:  0x07,
	{"v", "k"}:   0x0A,
	{"dt", "v"}:  0x15,
	{"st", "v"}:  0x18,
	{"f", "v"}:   0x29,
	{"b", "v"}:   0x33,
	{"[i]", "v"}: 0x55,
	{"v", "[i]"}: 0x65,
}

// operandClass returns "v" for a V register, or the lower case operand.
func (asm *Assembler) operandClass(word string) string {
	if asm.isRegister(word) {
		return "v"
	}
	return strings.ToLower(word)
}

// argCount checks the operand count of an instruction.
func argCount(args []string, want int) (err error) {
	switch {
	case len(args) < want:
		err = ErrOpcodeMissing
	case len(args) > want:
		err = ErrOpcodeExtraArgs
	}
	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var bytes []uint8
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(bytes) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Address: asm.currentAddress(), Words: initial_words, Bytes: bytes, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	emit := func(code Code) {
		bytes = append(bytes, uint8(code>>8), uint8(code))
	}

	mnemonic := strings.ToLower(words[0])
	args := words[1:]

	switch mnemonic {
	case ".byte":
		if len(args) == 0 {
			err = ErrOpcodeMissing
			return
		}
		for _, arg := range args {
			var value int
			value, err = asm.rangeOf(arg, 8)
			if err != nil {
				return
			}
			bytes = append(bytes, uint8(value))
		}
	case ".word":
		if len(args) == 0 {
			err = ErrOpcodeMissing
			return
		}
		for _, arg := range args {
			var value int
			value, err = asm.rangeOf(arg, 16)
			if err != nil {
				return
			}
			emit(Code(value))
		}
	case "cls", "ret":
		if err = argCount(args, 0); err != nil {
			return
		}
		if mnemonic == "cls" {
			emit(MakeCodeImm(0x0, 0x0E0))
		} else {
			emit(MakeCodeImm(0x0, 0x0EE))
		}
	case "jp", "call":
		op := uint8(0x1)
		if mnemonic == "call" {
			op = 0x2
		}
		if mnemonic == "jp" && len(args) == 2 {
			// jp v0, nnn
			if x, rerr := asm.registerOf(args[0]); rerr != nil || x != 0 {
				err = ErrRegisterInvalid
				return
			}
			op = 0xB
			args = args[1:]
		}
		if err = argCount(args, 1); err != nil {
			return
		}
		var nnn uint16
		nnn, label, err = asm.addressOf(args[0])
		if err != nil {
			return
		}
		emit(MakeCodeImm(op, nnn))
	case "se", "sne":
		if err = argCount(args, 2); err != nil {
			return
		}
		var x uint8
		x, err = asm.registerOf(args[0])
		if err != nil {
			return
		}
		if asm.isRegister(args[1]) {
			y, _ := asm.registerOf(args[1])
			op := uint8(0x5)
			if mnemonic == "sne" {
				op = 0x9
			}
			emit(MakeCodeRegReg(op, x, y, 0))
			return
		}
		var kk int
		kk, err = asm.rangeOf(args[1], 8)
		if err != nil {
			return
		}
		op := uint8(0x3)
		if mnemonic == "sne" {
			op = 0x4
		}
		emit(MakeCodeRegImm(op, x, uint8(kk)))
	case "ld":
		if err = argCount(args, 2); err != nil {
			return
		}
		dst := asm.operandClass(args[0])
		src := asm.operandClass(args[1])
		switch {
		case dst == "i":
			var nnn uint16
			nnn, label, err = asm.addressOf(args[1])
			if err != nil {
				return
			}
			emit(MakeCodeImm(0xA, nnn))
		case dst == "v" && src == "v":
			x, _ := asm.registerOf(args[0])
			y, _ := asm.registerOf(args[1])
			emit(MakeCodeRegReg(0x8, x, y, 0x0))
		default:
			sub, ok := ldMap[[2]string{dst, src}]
			if ok {
				reg := args[0]
				if dst != "v" {
					reg = args[1]
				}
				x, _ := asm.registerOf(reg)
				emit(MakeCodeRegImm(0xF, x, sub))
				return
			}
			if dst != "v" {
				err = ErrOpcodeInvalid
				return
			}
			x, _ := asm.registerOf(args[0])
			var kk int
			kk, err = asm.rangeOf(args[1], 8)
			if err != nil {
				return
			}
			emit(MakeCodeRegImm(0x6, x, uint8(kk)))
		}
	case "add":
		if err = argCount(args, 2); err != nil {
			return
		}
		if strings.ToLower(args[0]) == "i" {
			var x uint8
			x, err = asm.registerOf(args[1])
			if err != nil {
				return
			}
			emit(MakeCodeRegImm(0xF, x, 0x1E))
			return
		}
		var x uint8
		x, err = asm.registerOf(args[0])
		if err != nil {
			return
		}
		if asm.isRegister(args[1]) {
			y, _ := asm.registerOf(args[1])
			emit(MakeCodeRegReg(0x8, x, y, 0x4))
			return
		}
		var kk int
		kk, err = asm.rangeOf(args[1], 8)
		if err != nil {
			return
		}
		emit(MakeCodeRegImm(0x7, x, uint8(kk)))
	case "or", "and", "xor", "sub", "subn", "shr", "shl":
		// shr vx and shl vx use vx as the source.
		if (mnemonic == "shr" || mnemonic == "shl") && len(args) == 1 {
			args = append(args, args[0])
		}
		if err = argCount(args, 2); err != nil {
			return
		}
		var x, y uint8
		x, err = asm.registerOf(args[0])
		if err != nil {
			return
		}
		y, err = asm.registerOf(args[1])
		if err != nil {
			return
		}
		emit(MakeCodeRegReg(0x8, x, y, aluMap[mnemonic]))
	case "rnd":
		if err = argCount(args, 2); err != nil {
			return
		}
		var x uint8
		x, err = asm.registerOf(args[0])
		if err != nil {
			return
		}
		var kk int
		kk, err = asm.rangeOf(args[1], 8)
		if err != nil {
			return
		}
		emit(MakeCodeRegImm(0xC, x, uint8(kk)))
	case "drw":
		if err = argCount(args, 3); err != nil {
			return
		}
		var x, y uint8
		x, err = asm.registerOf(args[0])
		if err != nil {
			return
		}
		y, err = asm.registerOf(args[1])
		if err != nil {
			return
		}
		var n int
		n, err = asm.valueOf(args[2])
		if err != nil {
			return
		}
		if n < 0 || n > 0xf {
			err = ErrValueRange
			return
		}
		emit(MakeCodeRegReg(0xD, x, y, uint8(n)))
	case "skp", "sknp":
		if err = argCount(args, 1); err != nil {
			return
		}
		var x uint8
		x, err = asm.registerOf(args[0])
		if err != nil {
			return
		}
		kk := uint8(0x9E)
		if mnemonic == "sknp" {
			kk = 0xA1
		}
		emit(MakeCodeRegImm(0xE, x, kk))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}

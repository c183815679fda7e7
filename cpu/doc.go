// Package cpu implements the CHIP-8 interpreter core and its assembler.
//
// The CPU consists of sixteen 8-bit registers (v0-vf, with vf doubling as
// the carry, borrow and collision flag), a 16-bit index register (I), a
// program counter, a sixteen entry call stack, and the delay and sound
// timers. It executes against 4K of memory whose first 80 bytes hold the
// hexadecimal digit font, a 64x32 display, and a sixteen key keypad.
//
// Every fault is fatal: the CPU halts and reports the instruction word and
// address that caused it.
//
// The assembler provides a small assembly language for the CHIP-8
// instruction set, supporting macros, labels, equates, and compile-time
// expression evaluation.
package cpu

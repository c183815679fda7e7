// Package frontend is the text terminal host for the emulator: half block
// video, a typed-key keypad and a square wave tone.
package frontend

import (
	"strings"
	"time"

	tm "github.com/buger/goterm"

	"github.com/ezrec/chip8/display"
	"github.com/ezrec/chip8/keypad"
)

// FRAME_TIME is the tone duration of a single frame.
const FRAME_TIME = time.Second / 60

// halfBlock maps a (top, bottom) pixel pair to a character cell.
var halfBlock = [2][2]string{
	{" ", "▄"},
	{"▀", "█"},
}

// FrameLines renders a frame as text, two pixel rows per line.
func FrameLines(frame display.Frame) (lines []string) {
	for row := 0; row < display.HEIGHT; row += 2 {
		var line strings.Builder
		for col := range display.WIDTH {
			top := frame.Pixel(col, row)
			bottom := frame.Pixel(col, row+1)
			line.WriteString(halfBlock[top&1][bottom&1])
		}
		lines = append(lines, line.String())
	}

	return
}

// Terminal draws the display on an ANSI terminal, and reads the keypad
// from a Keyboard. Either of Keyboard and Beeper may be nil.
type Terminal struct {
	Keyboard *Keyboard
	Beeper   *Beeper

	last  display.Frame
	drawn bool
}

// Render redraws the terminal when the frame has changed.
func (term *Terminal) Render(frame display.Frame) {
	if term.drawn && frame == term.last {
		return
	}

	if !term.drawn {
		tm.Clear()
	}

	for n, line := range FrameLines(frame) {
		tm.MoveCursor(1, n+1)
		tm.Print(line)
	}
	tm.Flush()

	term.last = frame
	term.drawn = true
}

// Play sounds the tone for one frame.
func (term *Terminal) Play() {
	if term.Beeper != nil {
		term.Beeper.Beep(2 * FRAME_TIME)
	}
}

// Poll updates the keypad from the keyboard.
func (term *Terminal) Poll(keys *keypad.Keypad) {
	if term.Keyboard != nil {
		term.Keyboard.Poll(keys)
	}
}

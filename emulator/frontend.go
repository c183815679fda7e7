package emulator

import (
	"github.com/ezrec/chip8/display"
	"github.com/ezrec/chip8/keypad"
)

// Frontend is the host side of the machine: video, audio and input.
// All methods are called from the goroutine running the emulator, once
// per frame.
type Frontend interface {
	Render(frame display.Frame) // Show a snapshot of the display.
	Play()                      // Sound the tone for this frame.
	Poll(keys *keypad.Keypad)   // Update the keypad from host input.
}

// NopFrontend discards all output and provides no input.
type NopFrontend struct{}

func (NopFrontend) Render(frame display.Frame) {}

func (NopFrontend) Play() {}

func (NopFrontend) Poll(keys *keypad.Keypad) {}

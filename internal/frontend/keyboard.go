package frontend

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ezrec/chip8/keypad"
)

const (
	DEFAULT_HOLD = 150 * time.Millisecond // How long a typed key stays down.
	READ_IDLE    = 5 * time.Millisecond   // Poll interval of an idle reader.

	KEY_INTERRUPT = 0x03 // ^C
	KEY_ESCAPE    = 0x1b // Esc
)

// Keyboard maps host key bytes onto the keypad.
//
// Terminals report typed characters, not key transitions, so each typed
// key is held down for Hold and then released.
type Keyboard struct {
	Keymap map[string]uint8 // Host key to keypad key.
	Hold   time.Duration    // Time a typed key stays down.

	mutex   sync.Mutex
	held    map[uint8]time.Time // Keypad key to release time.
	quit    chan struct{}
	quitted bool
	now     func() time.Time
}

// NewKeyboard creates a keyboard with the given keymap.
func NewKeyboard(keymap map[string]uint8) (kb *Keyboard) {
	kb = &Keyboard{
		Keymap: keymap,
		Hold:   DEFAULT_HOLD,
		held:   map[uint8]time.Time{},
		quit:   make(chan struct{}),
		now:    time.Now,
	}

	return
}

// Quit returns a channel closed when the user asks to quit.
func (kb *Keyboard) Quit() <-chan struct{} {
	return kb.quit
}

// Feed handles one byte of host input.
func (kb *Keyboard) Feed(b byte) {
	kb.mutex.Lock()
	defer kb.mutex.Unlock()

	switch b {
	case KEY_INTERRUPT, KEY_ESCAPE:
		if !kb.quitted {
			close(kb.quit)
			kb.quitted = true
		}
		return
	}

	key, ok := kb.Keymap[strings.ToLower(string(rune(b)))]
	if !ok {
		return
	}

	kb.held[key] = kb.now().Add(kb.Hold)
}

// Poll presses the held keys, and releases those whose hold has expired.
func (kb *Keyboard) Poll(keys *keypad.Keypad) {
	kb.mutex.Lock()
	defer kb.mutex.Unlock()

	now := kb.now()
	for key, until := range kb.held {
		if now.Before(until) {
			keys.Press(key)
		} else {
			keys.Release(key)
			delete(kb.held, key)
		}
	}
}

// Run feeds bytes from the reader until it ends or the context is done.
// A reader may return no data and no error when idle.
func (kb *Keyboard) Run(ctx context.Context, input io.Reader) (err error) {
	buf := make([]byte, 16)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var n int
		n, err = input.Read(buf)
		for _, b := range buf[:n] {
			kb.Feed(b)
		}

		if errors.Is(err, io.EOF) {
			err = nil
			return
		}
		if err != nil {
			return
		}

		if n == 0 {
			time.Sleep(READ_IDLE)
		}
	}
}

// Package keypad holds the sixteen key CHIP-8 hex keypad state.
//
// The keypad is owned by the host: a poller presses and releases keys,
// possibly from another goroutine, and the interpreter only reads it.
package keypad

import (
	"sync"
)

const (
	KEY_COUNT = 16 // Keys 0x0 through 0xF.
)

// Keypad is the set of pressed keys. The zero value is ready to use.
type Keypad struct {
	mutex   sync.Mutex
	keys    [KEY_COUNT]bool
	changed chan struct{}
}

// notifier returns the current press notification channel.
// Caller must hold the mutex.
func (kp *Keypad) notifier() chan struct{} {
	if kp.changed == nil {
		kp.changed = make(chan struct{})
	}
	return kp.changed
}

// Set updates the state of a key. Keys outside 0x0-0xF are ignored.
// A transition to pressed wakes every waiter on Changed().
func (kp *Keypad) Set(key uint8, pressed bool) {
	if int(key) >= KEY_COUNT {
		return
	}

	kp.mutex.Lock()
	defer kp.mutex.Unlock()

	was := kp.keys[key]
	kp.keys[key] = pressed
	if pressed && !was {
		close(kp.notifier())
		kp.changed = nil
	}
}

// Press marks a key as held down.
func (kp *Keypad) Press(key uint8) {
	kp.Set(key, true)
}

// Release marks a key as up.
func (kp *Keypad) Release(key uint8) {
	kp.Set(key, false)
}

// Reset releases all keys.
func (kp *Keypad) Reset() {
	kp.mutex.Lock()
	defer kp.mutex.Unlock()

	clear(kp.keys[:])
}

// Pressed reports whether a key is down. Keys outside 0x0-0xF are never down.
func (kp *Keypad) Pressed(key uint8) bool {
	if int(key) >= KEY_COUNT {
		return false
	}

	kp.mutex.Lock()
	defer kp.mutex.Unlock()

	return kp.keys[key]
}

// FirstPressed returns the lowest numbered key that is down.
func (kp *Keypad) FirstPressed() (key uint8, ok bool) {
	kp.mutex.Lock()
	defer kp.mutex.Unlock()

	for n, pressed := range kp.keys {
		if pressed {
			return uint8(n), true
		}
	}
	return
}

// Keys returns a snapshot of all key states.
func (kp *Keypad) Keys() (keys [KEY_COUNT]bool) {
	kp.mutex.Lock()
	defer kp.mutex.Unlock()

	return kp.keys
}

// Changed returns a channel that is closed the next time any key is pressed.
func (kp *Keypad) Changed() <-chan struct{} {
	kp.mutex.Lock()
	defer kp.mutex.Unlock()

	return kp.notifier()
}

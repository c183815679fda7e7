package emulator

import (
	"io"
	"maps"

	"github.com/BurntSushi/toml"

	"github.com/ezrec/chip8/keypad"
)

const (
	DEFAULT_RATE = 500    // Default instructions per second.
	MAX_RATE     = 100000 // Highest accepted instruction rate.
	FRAME_RATE   = 60     // Timer and redraw frames per second.
)

// Config is the machine configuration, as read from a TOML file.
type Config struct {
	Legacy        bool             `toml:"legacy"`         // Legacy shift and load/store quirks.
	Rate          int              `toml:"rate"`           // Instructions per second.
	Seed          uint64           `toml:"seed"`           // Seed of the rnd instruction source.
	CoupledTimers bool             `toml:"coupled_timers"` // Gate the sound timer on the delay timer.
	Keymap        map[string]uint8 `toml:"keymap"`         // Host key to keypad key.
}

// defaultKeymap is the conventional QWERTY layout of the hex keypad.
//
//	1 2 3 C     1 2 3 4
//	4 5 6 D     q w e r
//	7 8 9 E     a s d f
//	A 0 B F     z x c v
var defaultKeymap = map[string]uint8{
	"1": 0x1, "2": 0x2, "3": 0x3, "4": 0xC,
	"q": 0x4, "w": 0x5, "e": 0x6, "r": 0xD,
	"a": 0x7, "s": 0x8, "d": 0x9, "f": 0xE,
	"z": 0xA, "x": 0x0, "c": 0xB, "v": 0xF,
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Rate:   DEFAULT_RATE,
		Keymap: maps.Clone(defaultKeymap),
	}
}

// LoadConfig reads a TOML configuration file. Settings absent from the
// file keep their default values.
func LoadConfig(path string) (config Config, err error) {
	config = DefaultConfig()

	_, err = toml.DecodeFile(path, &config)
	if err != nil {
		return
	}

	err = config.Validate()
	return
}

// Validate checks the configuration values.
func (config Config) Validate() (err error) {
	if config.Rate < 1 || config.Rate > MAX_RATE {
		err = ErrConfigRate
		return
	}

	for _, key := range config.Keymap {
		if key >= keypad.KEY_COUNT {
			err = ErrConfigKey
			return
		}
	}

	return
}

// Write encodes the configuration as TOML.
func (config Config) Write(w io.Writer) (err error) {
	return toml.NewEncoder(w).Encode(config)
}

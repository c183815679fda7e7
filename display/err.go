package display

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	// Display errors
	ErrSpriteHeight = errors.New(f("sprite height"))
)

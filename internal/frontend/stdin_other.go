//go:build !unix

package frontend

import (
	"io"
	"os"

	"golang.org/x/term"
)

// RawStdin switches the controlling terminal to raw input. Reads block.
func RawStdin() (input io.Reader, restore func(), err error) {
	fd := int(os.Stdin.Fd())

	state, err := term.MakeRaw(fd)
	if err != nil {
		return
	}

	input = os.Stdin
	restore = func() {
		_ = term.Restore(fd, state)
	}

	return
}

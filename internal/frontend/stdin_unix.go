//go:build unix

package frontend

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// rawStdin reads a non-blocking raw mode terminal.
type rawStdin struct {
	fd int
}

// Read returns no data and no error when no input is pending.
func (rs *rawStdin) Read(p []byte) (n int, err error) {
	n, err = unix.Read(rs.fd, p)
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
		n, err = 0, nil
		return
	}
	if err == nil && n == 0 {
		err = io.EOF
	}
	n = max(n, 0)
	return
}

// RawStdin switches the controlling terminal to raw, non-blocking input.
// The restore function undoes both.
func RawStdin() (input io.Reader, restore func(), err error) {
	fd := int(os.Stdin.Fd())

	state, err := term.MakeRaw(fd)
	if err != nil {
		return
	}

	err = unix.SetNonblock(fd, true)
	if err != nil {
		_ = term.Restore(fd, state)
		return
	}

	input = &rawStdin{fd: fd}
	restore = func() {
		_ = unix.SetNonblock(fd, false)
		_ = term.Restore(fd, state)
	}

	return
}

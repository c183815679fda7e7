package frontend

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/chip8/display"
	"github.com/ezrec/chip8/keypad"
)

func TestFrameLines(t *testing.T) {
	assert := assert.New(t)

	var frame display.Frame
	frame[0][0] = 1
	frame[1][1] = 1
	frame[0][2] = 1
	frame[1][2] = 1
	frame[31][63] = 1

	lines := FrameLines(frame)
	assert.Equal(display.HEIGHT/2, len(lines))
	assert.True(strings.HasPrefix(lines[0], "▀▄█ "))
	assert.Equal(display.WIDTH, len([]rune(lines[0])))
	assert.True(strings.HasSuffix(lines[15], " ▄"))
	assert.Equal(strings.Repeat(" ", display.WIDTH), lines[7])
}

// testClock is a settable time source.
type testClock struct {
	now time.Time
}

func (tc *testClock) Now() time.Time {
	return tc.now
}

func TestKeyboard(t *testing.T) {
	assert := assert.New(t)

	clock := &testClock{now: time.Unix(1000, 0)}
	kb := NewKeyboard(map[string]uint8{"x": 0x0, "v": 0xF})
	kb.now = clock.Now

	keys := &keypad.Keypad{}

	kb.Feed('X')
	kb.Feed('p')
	kb.Poll(keys)
	assert.True(keys.Pressed(0x0))
	assert.False(keys.Pressed(0xF))

	clock.now = clock.now.Add(DEFAULT_HOLD / 2)
	kb.Feed('v')
	kb.Poll(keys)
	assert.True(keys.Pressed(0x0))
	assert.True(keys.Pressed(0xF))

	clock.now = clock.now.Add(DEFAULT_HOLD / 2)
	kb.Poll(keys)
	assert.False(keys.Pressed(0x0))
	assert.True(keys.Pressed(0xF))

	clock.now = clock.now.Add(DEFAULT_HOLD)
	kb.Poll(keys)
	assert.False(keys.Pressed(0xF))
}

func TestKeyboard_Quit(t *testing.T) {
	assert := assert.New(t)

	kb := NewKeyboard(nil)

	select {
	case <-kb.Quit():
		assert.Fail("quit too early")
	default:
	}

	kb.Feed(KEY_ESCAPE)
	kb.Feed(KEY_INTERRUPT)

	select {
	case <-kb.Quit():
	default:
		assert.Fail("no quit")
	}
}

func TestKeyboard_Run(t *testing.T) {
	assert := assert.New(t)

	kb := NewKeyboard(map[string]uint8{"1": 0x1, "q": 0x4})
	keys := &keypad.Keypad{}

	err := kb.Run(context.Background(), strings.NewReader("1q"))
	assert.NoError(err)

	kb.Poll(keys)
	assert.True(keys.Pressed(0x1))
	assert.True(keys.Pressed(0x4))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(kb.Run(ctx, strings.NewReader("never read")))
}

func TestSquareWave(t *testing.T) {
	assert := assert.New(t)

	clock := &testClock{now: time.Unix(1000, 0)}
	sw := &squareWave{
		rate:   8,
		pitch:  2,
		now:    clock.Now,
		volume: 100,
	}

	samples := func(p []byte) (out []int16) {
		for n := 0; n+2 <= len(p); n += 2 {
			out = append(out, int16(binary.LittleEndian.Uint16(p[n:])))
		}
		return
	}

	p := make([]byte, 11)
	n, err := sw.Read(p)
	assert.NoError(err)
	assert.Equal(10, n)
	assert.Equal([]int16{0, 0, 0, 0, 0}, samples(p[:n]))

	sw.phase = 0
	sw.extend(time.Second)
	n, err = sw.Read(p)
	assert.NoError(err)
	assert.Equal([]int16{100, 100, -100, -100, 100}, samples(p[:n]))

	// A shorter request does not cut the tone.
	sw.extend(time.Millisecond)
	clock.now = clock.now.Add(time.Second / 2)
	_, _ = sw.Read(p)
	assert.NotEqual([]int16{0, 0, 0, 0, 0}, samples(p[:10]))

	clock.now = clock.now.Add(time.Second)
	_, _ = sw.Read(p)
	assert.Equal([]int16{0, 0, 0, 0, 0}, samples(p[:10]))
}

func TestTerminal(t *testing.T) {
	assert := assert.New(t)

	kb := NewKeyboard(map[string]uint8{"a": 0x7})
	term := &Terminal{Keyboard: kb}
	keys := &keypad.Keypad{}

	kb.Feed('a')
	term.Poll(keys)
	assert.True(keys.Pressed(0x7))

	// Without a beeper, Play is silent.
	term.Play()

	empty := &Terminal{}
	empty.Poll(keys)
	empty.Play()
}

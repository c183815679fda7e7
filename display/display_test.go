package display

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestDisplay_Clear(t *testing.T) {
	assert := assert.New(t)

	disp := &Display{}
	for y := range HEIGHT {
		for x := range WIDTH {
			disp.Pixels[y][x] = 1
		}
	}

	disp.Clear()
	assert.Equal(0, disp.Frame().Lit())
}

func TestDisplay_DrawCollision(t *testing.T) {
	assert := assert.New(t)

	disp := &Display{}
	sprite := Sprite{0xF0, 0x90, 0x90, 0x90, 0xF0}

	collision, err := disp.DrawSprite(sprite, 10, 5)
	assert.NoError(err)
	assert.False(collision)
	assert.Equal(14, disp.Frame().Lit())

	collision, err = disp.DrawSprite(sprite, 10, 5)
	assert.NoError(err)
	assert.True(collision)
	assert.Equal(0, disp.Frame().Lit())
}

func TestDisplay_DrawNoEraseNoCollision(t *testing.T) {
	assert := assert.New(t)

	disp := &Display{}

	_, err := disp.DrawSprite(Sprite{0xF0}, 0, 0)
	assert.NoError(err)

	// Overlaps only where the target is already dark.
	collision, err := disp.DrawSprite(Sprite{0x0F}, 0, 0)
	assert.NoError(err)
	assert.False(collision)
	assert.Equal(8, disp.Frame().Lit())
}

func TestDisplay_Wrap(t *testing.T) {
	assert := assert.New(t)

	disp := &Display{}

	_, err := disp.DrawSprite(Sprite{0xFF}, 63, 31)
	assert.NoError(err)

	assert.Equal(uint8(1), disp.Pixels[31][63])
	for x := range 7 {
		assert.Equal(uint8(1), disp.Pixels[31][x], "x=%d", x)
	}
	assert.Equal(uint8(0), disp.Pixels[31][7])
	assert.Equal(0, countRow(disp.Pixels[0]))

	disp.Clear()
	_, err = disp.DrawSprite(Sprite{0x80, 0x80}, 0, 31)
	assert.NoError(err)
	assert.Equal(uint8(1), disp.Pixels[31][0])
	assert.Equal(uint8(1), disp.Pixels[0][0])
}

func TestDisplay_SpriteHeight(t *testing.T) {
	assert := assert.New(t)

	disp := &Display{}

	_, err := disp.DrawSprite(Sprite{}, 0, 0)
	assert.ErrorIs(err, ErrSpriteHeight)

	_, err = disp.DrawSprite(make(Sprite, 16), 0, 0)
	assert.ErrorIs(err, ErrSpriteHeight)
	assert.Equal(0, disp.Frame().Lit())

	_, err = disp.DrawSprite(make(Sprite, 15), 0, 0)
	assert.NoError(err)
}

func TestFrame_String(t *testing.T) {
	disp := &Display{}
	_, err := disp.DrawSprite(Sprite{0xA0}, 1, 0)
	assert.NoError(t, err)

	lines := strings.Split(disp.Frame().String(), "\n")
	want := ".#.#" + strings.Repeat(".", WIDTH-4)
	if diff := cmp.Diff(want, lines[0]); diff != "" {
		t.Errorf("row 0: (-want, +got)\n%s", diff)
	}
	assert.Len(t, lines, HEIGHT+1)
}

func FuzzDisplay_Binary(f *testing.F) {
	f.Add(uint8(0xFF), uint8(0), uint8(0))
	f.Add(uint8(0x81), uint8(60), uint8(30))

	f.Fuzz(func(t *testing.T, row, x, y uint8) {
		disp := &Display{}
		for range 3 {
			_, err := disp.DrawSprite(Sprite{row, ^row, row}, x, y)
			assert.NoError(t, err)
		}
		for _, line := range disp.Pixels {
			for _, pixel := range line {
				if pixel > 1 {
					t.Fatalf("pixel %d out of range", pixel)
				}
			}
		}
	})
}

func countRow(row [WIDTH]uint8) (count int) {
	for _, pixel := range row {
		count += int(pixel)
	}
	return
}

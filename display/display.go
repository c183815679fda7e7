// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package display models the 64x32 monochrome CHIP-8 framebuffer.
package display

import (
	"log"
	"strings"
)

const (
	WIDTH  = 64 // Columns of pixels.
	HEIGHT = 32 // Rows of pixels.
)

// Frame is a snapshot of the framebuffer. Every cell is 0 or 1.
type Frame [HEIGHT][WIDTH]uint8

// String renders the frame as text, one line per row.
func (frame Frame) String() string {
	var sb strings.Builder
	sb.Grow(HEIGHT * (WIDTH + 1))
	for y := range HEIGHT {
		for x := range WIDTH {
			if frame.Pixel(x, y) != 0 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Pixel returns the pixel at x, y, wrapping both coordinates.
func (frame Frame) Pixel(x, y int) uint8 {
	return frame[y%HEIGHT][x%WIDTH]
}

// Lit returns the count of set pixels.
func (frame Frame) Lit() (count int) {
	for _, row := range frame {
		for _, pixel := range row {
			count += int(pixel)
		}
	}
	return
}

// Display is the framebuffer state.
type Display struct {
	Verbose bool  // Set to enable verbose logging.
	Pixels  Frame // Current pixel grid.
}

// Clear sets every pixel to 0.
func (disp *Display) Clear() {
	if disp.Verbose {
		log.Printf("display: clear")
	}

	disp.Pixels = Frame{}
}

// Frame returns a copy of the current pixels.
func (disp *Display) Frame() Frame {
	return disp.Pixels
}

// DrawSprite XORs the sprite onto the framebuffer with its top left
// corner at x, y. Coordinates wrap toroidally. Collision is set if
// any pixel was turned from 1 to 0.
//
// An invalid sprite is rejected before any pixel is touched.
func (disp *Display) DrawSprite(sprite Sprite, x, y uint8) (collision bool, err error) {
	err = sprite.Valid()
	if err != nil {
		return
	}


	for row := range sprite {
		py := (int(y) + row) % HEIGHT
		for col := range SPRITE_WIDTH {
			px := (int(x) + col) % WIDTH
			old := disp.Pixels[py][px]
			pixel := old ^ sprite.Bit(row, col)
			if old == 1 && pixel == 0 {
				collision = true
			}
			disp.Pixels[py][px] = pixel
		}
	}

	if disp.Verbose {
		log.Printf("display: draw %d rows at (%d,%d), %d lit, collision %v",
			len(sprite), x, y, disp.Pixels.Lit(), collision)
	}

	return
}

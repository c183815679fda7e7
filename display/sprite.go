package display

const (
	SPRITE_WIDTH      = 8  // Pixels per sprite row.
	SPRITE_HEIGHT_MIN = 1  // Smallest legal sprite.
	SPRITE_HEIGHT_MAX = 15 // Largest legal sprite.
)

// Sprite is a sequence of 8-pixel rows, most significant bit leftmost.
// It only lives for the duration of a draw.
type Sprite []uint8

// Valid returns nil if the sprite height is in range.
func (sprite Sprite) Valid() (err error) {
	if len(sprite) < SPRITE_HEIGHT_MIN || len(sprite) > SPRITE_HEIGHT_MAX {
		err = ErrSpriteHeight
	}
	return
}

// Bit returns the pixel at row, col of the sprite.
func (sprite Sprite) Bit(row, col int) uint8 {
	return (sprite[row] >> (SPRITE_WIDTH - 1 - col)) & 1
}

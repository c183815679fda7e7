package cpu

// Memory map.
const (
	MEMORY_SIZE     = 0x1000                      // Total addressable memory.
	ADDRESS_MASK    = MEMORY_SIZE - 1             // 12 bits of address.
	FONT_START      = 0x000                       // Hex digit glyphs.
	FONT_GLYPH_SIZE = 5                           // Bytes per glyph.
	FONT_SIZE       = 16 * FONT_GLYPH_SIZE        // All sixteen glyphs.
	PROGRAM_START   = 0x200                       // Load and entry address.
	PROGRAM_LIMIT   = MEMORY_SIZE - PROGRAM_START // Largest program, 0xE00 bytes.
)

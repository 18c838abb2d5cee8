// Package display renders word-wrapped text into a fixed-size panel viewport
// and scrolls it line by line.
package display

import "github.com/mattn/go-runewidth"

// Font supplies the metrics used for wrapping.
type Font interface {
	// Advance returns the horizontal advance of r in pixels.
	Advance(r rune) int
	// LineHeight returns the vertical spacing between lines in pixels.
	LineHeight() int
}

// CellFont is a fixed-cell bitmap font. Wide runes take two cells and
// zero-width runes take none.
type CellFont struct {
	CellWidth  int
	CellHeight int
}

// TerminalFont matches the built-in 6x12 terminal font of the OLED panel.
var TerminalFont = CellFont{CellWidth: 6, CellHeight: 12}

func (f CellFont) Advance(r rune) int {
	return runewidth.RuneWidth(r) * f.CellWidth
}

func (f CellFont) LineHeight() int {
	return f.CellHeight
}

// Measure returns the pixel width of s under font.
func Measure(font Font, s string) int {
	width := 0
	for _, r := range s {
		width += font.Advance(r)
	}
	return width
}

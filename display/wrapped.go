package display

import (
	"fmt"

	"asentry/config"
)

// WrappedText owns a word-wrapped line buffer, a scroll offset and the rows
// currently shown on the panel. It is not safe for concurrent use; the poll
// loop is its only caller.
type WrappedText struct {
	panel    Panel
	font     Font
	width    int
	maxLines int

	text     string
	lines    []string
	offset   int
	rendered []string
}

// NewWrappedText sizes the viewport from the panel and font. A panel that
// cannot hold one line, or is narrower than one glyph plus a hyphen, is a
// configuration error.
func NewWrappedText(panel Panel, font Font) (*WrappedText, error) {
	width, height := panel.Size()
	lineHeight := font.LineHeight()
	if lineHeight <= 0 {
		return nil, &config.ConfigError{Field: "display.line_height", Reason: fmt.Sprintf("must be positive, got %d", lineHeight)}
	}
	maxLines := height / lineHeight
	if maxLines < 1 {
		return nil, &config.ConfigError{Field: "display.height", Reason: fmt.Sprintf("%dpx cannot hold a %dpx line", height, lineHeight)}
	}
	if width < MinWidth(font) {
		return nil, &config.ConfigError{Field: "display.width", Reason: fmt.Sprintf("%dpx is narrower than one glyph", width)}
	}
	return &WrappedText{
		panel:    panel,
		font:     font,
		width:    width,
		maxLines: maxLines,
		lines:    []string{""},
		rendered: make([]string, maxLines),
	}, nil
}

// MaxLines returns the viewport capacity in lines.
func (w *WrappedText) MaxLines() int { return w.maxLines }

// Text returns the text last passed to SetText plus everything appended
// since by AddText.
func (w *WrappedText) Text() string { return w.text }

// Offset returns the current scroll position.
func (w *WrappedText) Offset() int { return w.offset }

// Lines returns a copy of the wrapped line buffer.
func (w *WrappedText) Lines() []string {
	out := make([]string, len(w.lines))
	copy(out, w.lines)
	return out
}

// SetText replaces the buffer with text re-wrapped from scratch and scrolls to
// the top.
func (w *WrappedText) SetText(text string) {
	w.text = text
	w.lines = WrapToPixels(text, w.width, w.font)
	w.offset = 0
}

// AddText appends text to the last buffer line, which stays open for further
// appends. Only that line is re-wrapped; earlier lines are left untouched.
// The view then scrolls to the end.
func (w *WrappedText) AddText(text string) {
	last := ""
	if n := len(w.lines); n > 0 {
		last = w.lines[n-1]
		w.lines = w.lines[:n-1]
	}
	w.lines = append(w.lines, WrapToPixels(last+text, w.width, w.font)...)
	w.text += text
	w.ScrollToEnd()
}

// Show replaces the text and redraws.
func (w *WrappedText) Show(text string) error {
	w.SetText(text)
	return w.Refresh()
}

// AddShow appends text and redraws.
func (w *WrappedText) AddShow(text string) error {
	w.AddText(text)
	return w.Refresh()
}

// Clear blanks the panel.
func (w *WrappedText) Clear() error {
	return w.Show("")
}

// ScrollToEnd moves to the last scroll position.
func (w *WrappedText) ScrollToEnd() {
	w.offset = w.MaxOffset()
}

// ScrollNextLine advances one line, wrapping back to the top after the last
// position. It is a no-op when the text fits the viewport.
func (w *WrappedText) ScrollNextLine() {
	w.offset = (w.offset + 1) % (w.MaxOffset() + 1)
}

// MaxOffset returns the highest scroll position; zero when the text fits.
func (w *WrappedText) MaxOffset() int {
	return max(0, len(w.lines)-w.maxLines)
}

// OnLastLine reports whether the final page is showing.
func (w *WrappedText) OnLastLine() bool {
	return w.offset == w.MaxOffset()
}

// Refresh pushes the visible window to the panel, touching only rows whose
// text changed, then commits once.
func (w *WrappedText) Refresh() error {
	for i := 0; i < w.maxLines; i++ {
		text := ""
		if idx := w.offset + i; idx < len(w.lines) {
			text = w.lines[idx]
		}
		if text != w.rendered[i] {
			w.panel.SetRow(i, text)
			w.rendered[i] = text
		}
	}
	return w.panel.Commit()
}

package ui

import (
	"io"
	"sync"

	"asentry/config"
	"asentry/display"
)

// Surface is a display panel the monitor can draw on, plus the bell and a
// sink for the system log. Implementations are safe for concurrent use.
type Surface interface {
	display.Panel
	Beep() error
	SystemWriter() io.Writer
	WaitReady()
	Stop()
}

// Presser receives button presses from a surface's input.
type Presser interface {
	Press() bool
}

// frame stages row updates between commits. The pixel size is what the
// display controller sees; cols and rows are the character grid it maps to.
type frame struct {
	width, height int
	cols          int

	mu      sync.Mutex
	staged  []string
	commits uint64
}

func newFrame(cfg config.DisplayConfig) *frame {
	cols, rows := 1, 1
	if cfg.GlyphWidth > 0 {
		cols = max(cfg.Width/cfg.GlyphWidth, 1)
	}
	if cfg.LineHeight > 0 {
		rows = max(cfg.Height/cfg.LineHeight, 1)
	}
	return &frame{
		width:  cfg.Width,
		height: cfg.Height,
		cols:   cols,
		staged: make([]string, rows),
	}
}

func (f *frame) Size() (int, int) { return f.width, f.height }

func (f *frame) SetRow(row int, text string) {
	f.mu.Lock()
	if row >= 0 && row < len(f.staged) {
		f.staged[row] = text
	}
	f.mu.Unlock()
}

// commit returns a copy of the staged rows for rendering.
func (f *frame) commit() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	return append([]string(nil), f.staged...)
}

package ui

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
)

// panelView emulates the monochrome OLED: a fixed grid of text rows inside a
// border. Rows are staged by SetRows and drawn on the UI goroutine.
type panelView struct {
	*tview.Box

	mu   sync.Mutex
	rows []string
	cols int
	fg   tcell.Color
}

func newPanelView(title string, cols, rows int, fg tcell.Color) *panelView {
	v := &panelView{
		Box:  tview.NewBox().SetBorder(true),
		rows: make([]string, rows),
		cols: cols,
		fg:   fg,
	}
	v.SetTitle(" " + title + " ").SetTitleAlign(tview.AlignLeft)
	v.SetBackgroundColor(tcell.ColorBlack)
	return v
}

// SetRows replaces the whole frame.
func (v *panelView) SetRows(rows []string) {
	v.mu.Lock()
	copy(v.rows, rows)
	v.mu.Unlock()
}

// Rows returns a copy of the current frame.
func (v *panelView) Rows() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.rows...)
}

func (v *panelView) Draw(screen tcell.Screen) {
	v.Box.DrawForSubclass(screen, v)
	x, y, width, height := v.GetInnerRect()
	if width <= 0 || height <= 0 {
		return
	}
	width = min(width, v.cols)

	style := tcell.StyleDefault.Foreground(v.fg).Background(tcell.ColorBlack)
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, row := range v.rows {
		if i >= height {
			return
		}
		col := 0
		for _, r := range row {
			w := runewidth.RuneWidth(r)
			if w == 0 {
				continue
			}
			if col+w > width {
				break
			}
			screen.SetContent(x+col, y+i, r, nil, style)
			col += w
		}
		for ; col < width; col++ {
			screen.SetContent(x+col, y+i, ' ', nil, style)
		}
	}
}

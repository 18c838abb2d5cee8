package ui

import (
	"strconv"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// logView is the bounded system log pane. It keeps a ring of lines and draws
// only the rows that fit. Append may be called from any goroutine; Draw and
// HandleScroll run on the UI goroutine.
type logView struct {
	*tview.Box

	mu    sync.Mutex
	lines []string
	head  int
	count int
	max   int
	total uint64

	offset int
	follow bool

	renderRows []string

	cachedOverflowCount int
	cachedOverflowText  string
}

func newLogView(title string, max int) *logView {
	if max <= 0 {
		max = 1
	}
	v := &logView{
		Box:                 tview.NewBox().SetBorder(true),
		lines:               make([]string, max),
		max:                 max,
		follow:              true,
		cachedOverflowCount: -1,
	}
	v.SetTitle(" " + title + " ").SetTitleAlign(tview.AlignLeft)
	return v
}

func (v *logView) Append(line string) {
	if v == nil {
		return
	}
	v.mu.Lock()
	if v.count < v.max {
		v.lines[(v.head+v.count)%v.max] = line
		v.count++
	} else {
		v.lines[v.head] = line
		v.head = (v.head + 1) % v.max
	}
	v.total++
	v.mu.Unlock()
}

func (v *logView) Draw(screen tcell.Screen) {
	if v == nil {
		return
	}
	v.Box.DrawForSubclass(screen, v)

	x, y, width, height := v.GetInnerRect()
	if width <= 0 || height <= 0 {
		return
	}

	v.mu.Lock()
	rows := v.visibleRowsLocked(height)
	v.mu.Unlock()

	style := tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(v.GetBackgroundColor())
	for i, row := range rows {
		drawPlainLine(screen, x, y+i, width, " "+row, style)
	}
}

// HandleScroll moves through the history. Scrolling back stops following new
// lines until End or the bottom is reached again.
func (v *logView) HandleScroll(event *tcell.EventKey) bool {
	if v == nil || event == nil {
		return false
	}
	_, _, _, height := v.GetInnerRect()
	height = max(height, 1)
	page := max(height-1, 1)

	v.mu.Lock()
	defer v.mu.Unlock()

	maxOffset := max(v.totalRowsLocked()-height, 0)
	next := v.offset
	switch event.Key() {
	case tcell.KeyUp:
		next--
	case tcell.KeyDown:
		next++
	case tcell.KeyPgUp:
		next -= page
	case tcell.KeyPgDn:
		next += page
	case tcell.KeyHome:
		next = 0
	case tcell.KeyEnd:
		next = maxOffset
	default:
		return false
	}
	next = min(max(next, 0), maxOffset)
	v.follow = next == maxOffset
	v.offset = next
	return true
}

func (v *logView) SnapshotText() string {
	if v == nil {
		return ""
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	rows := make([]string, 0, v.count+1)
	for i := 0; i < v.count; i++ {
		rows = append(rows, v.lines[(v.head+i)%v.max])
	}
	if overflow := int(v.total) - v.count; overflow > 0 {
		rows = append(rows, v.overflowLineLocked(overflow))
	}
	return strings.Join(rows, "\n")
}

func (v *logView) totalRowsLocked() int {
	if int(v.total) > v.count {
		return v.count + 1
	}
	return v.count
}

func (v *logView) visibleRowsLocked(height int) []string {
	totalRows := v.totalRowsLocked()
	maxOffset := max(totalRows-height, 0)
	if v.follow {
		v.offset = maxOffset
	}
	v.offset = min(max(v.offset, 0), maxOffset)

	start := v.offset
	needed := max(min(start+height, totalRows)-start, 0)
	if cap(v.renderRows) < needed {
		v.renderRows = make([]string, needed)
	} else {
		v.renderRows = v.renderRows[:needed]
	}
	overflow := int(v.total) - v.count
	for i := 0; i < needed; i++ {
		row := start + i
		if row < v.count {
			v.renderRows[i] = v.lines[(v.head+row)%v.max]
			continue
		}
		v.renderRows[i] = v.overflowLineLocked(overflow)
	}
	return v.renderRows
}

// The overflow row sits where the evicted lines would have been counted.
func (v *logView) overflowLineLocked(overflow int) string {
	if overflow == v.cachedOverflowCount {
		return v.cachedOverflowText
	}
	v.cachedOverflowCount = overflow
	v.cachedOverflowText = "... +" + strconv.Itoa(overflow) + " more"
	return v.cachedOverflowText
}

// drawPlainLine writes text without tview markup parsing, clipped to width.
func drawPlainLine(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	col := 0
	for _, r := range text {
		if col >= width || r == '\n' || r == '\r' {
			return
		}
		if r == '\t' {
			r = ' '
		}
		screen.SetContent(x+col, y, r, nil, style)
		col++
	}
}

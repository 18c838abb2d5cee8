package ui

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"

	"asentry/config"

	"github.com/mattn/go-runewidth"
)

const (
	ansiSystemLines = 8
	clearHome       = "\x1b[2J\x1b[H"
	resetANSI       = "\x1b[0m"
	panelANSI       = "\x1b[96m"
)

// ANSIConsole redraws the panel and a short system pane with plain ANSI
// escapes on every commit. It suits terminals where tview is unwanted.
type ANSIConsole struct {
	frame *frame
	out   io.Writer
	color bool

	mu        sync.Mutex
	rows      []string
	system    ringPane
	snapSys   []string
	renderBuf bytes.Buffer
	writer    *lineWriter
}

type ringPane struct {
	lines []string
	idx   int
	count int
}

// Purpose: Construct the ANSI console renderer.
// Key aspects: Output goes to out (stdout in production); nothing is drawn
// until the first Commit.
// Upstream: surface selection in main.
// Downstream: lineWriter for system log routing.
func NewANSIConsole(displayCfg config.DisplayConfig, uiCfg config.UIConfig, out io.Writer) *ANSIConsole {
	f := newFrame(displayCfg)
	c := &ANSIConsole{
		frame:   f,
		out:     out,
		color:   uiCfg.Color,
		rows:    make([]string, len(f.staged)),
		system:  ringPane{lines: make([]string, ansiSystemLines)},
		snapSys: make([]string, ansiSystemLines),
	}
	c.writer = &lineWriter{append: c.AppendSystem}
	return c
}

func (c *ANSIConsole) Size() (int, int) { return c.frame.Size() }

func (c *ANSIConsole) SetRow(row int, text string) { c.frame.SetRow(row, text) }

// Purpose: Publish the staged frame and redraw.
// Key aspects: One full-screen render per commit.
// Upstream: display.WrappedText.Refresh.
// Downstream: render.
func (c *ANSIConsole) Commit() error {
	rows := c.frame.commit()
	c.mu.Lock()
	copy(c.rows, rows)
	c.mu.Unlock()
	return c.render()
}

func (c *ANSIConsole) Beep() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.out, "\a")
	return err
}

// Purpose: Append a system log line and redraw.
// Key aspects: Ring pane keeps only the newest ansiSystemLines lines.
// Upstream: lineWriter fed by the log fanout.
// Downstream: render.
func (c *ANSIConsole) AppendSystem(line string) {
	c.mu.Lock()
	pane := &c.system
	pane.lines[pane.idx] = line
	pane.idx = (pane.idx + 1) % len(pane.lines)
	if pane.count < len(pane.lines) {
		pane.count++
	}
	c.mu.Unlock()
	_ = c.render()
}

func (c *ANSIConsole) SystemWriter() io.Writer { return c.writer }

func (c *ANSIConsole) WaitReady() {}

func (c *ANSIConsole) Stop() {}

// Purpose: Render the panel box and system pane.
// Key aspects: Builds the whole frame in renderBuf, then a single write.
// Upstream: Commit and AppendSystem.
// Downstream: writePanel, writePane.
func (c *ANSIConsole) render() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.renderBuf.Reset()
	c.renderBuf.WriteString(clearHome)
	c.writePanel(&c.renderBuf)
	writePane(&c.renderBuf, "---- System ----", snapshotPane(&c.system, c.snapSys))
	_, err := c.renderBuf.WriteTo(c.out)
	return err
}

func (c *ANSIConsole) writePanel(b *bytes.Buffer) {
	border := "+" + strings.Repeat("-", c.frame.cols) + "+\n"
	b.WriteString(border)
	for _, row := range c.rows {
		row = runewidth.Truncate(row, c.frame.cols, "")
		b.WriteByte('|')
		if c.color {
			b.WriteString(panelANSI)
		}
		b.WriteString(runewidth.FillRight(row, c.frame.cols))
		if c.color {
			b.WriteString(resetANSI)
		}
		b.WriteString("|\n")
	}
	b.WriteString(border)
}

func writePane(b *bytes.Buffer, title string, lines []string) {
	b.WriteString(title)
	b.WriteByte('\n')
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

// snapshotPane copies a ring pane into buf in arrival order.
func snapshotPane(p *ringPane, buf []string) []string {
	if len(p.lines) == 0 || p.count == 0 || len(buf) == 0 {
		return buf[:0]
	}
	start := p.idx - p.count
	if start < 0 {
		start += len(p.lines)
	}
	limit := min(p.count, len(buf))
	for i := 0; i < limit; i++ {
		buf[i] = p.lines[(start+i)%len(p.lines)]
	}
	return buf[:limit]
}

// ReadPresses turns each line read from r (Enter on a terminal) into a
// button press. It returns when r is exhausted.
func ReadPresses(r io.Reader, p Presser) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.Press()
	}
	return scanner.Err()
}

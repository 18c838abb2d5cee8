package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"asentry/config"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const systemPaneLines = 500

// Console is the full-screen tview surface: the emulated panel on top and the
// system log below. Scroll keys move the log; any other key is a button press.
type Console struct {
	app    *tview.Application
	panel  *panelView
	log    *logView
	frame  *frame
	writer *lineWriter

	presser Presser
	onExit  func()
	queue   func(func())

	screenMu sync.Mutex
	screen   tcell.Screen

	closed    atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once
}

// NewConsole builds the layout. Run must be called to take over the terminal.
// onExit runs when the application stops on its own (Ctrl-C).
func NewConsole(displayCfg config.DisplayConfig, uiCfg config.UIConfig, presser Presser, onExit func()) *Console {
	f := newFrame(displayCfg)
	fg := tcell.ColorWhite
	if uiCfg.Color {
		fg = tcell.ColorLightCyan
	}
	panel := newPanelView("Sentry", f.cols, len(f.staged), fg)
	logPane := newLogView("System", systemPaneLines)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(panel, f.cols+2, 0, false).
			AddItem(tview.NewBox(), 0, 1, false), len(f.staged)+2, 0, false).
		AddItem(logPane, 0, 1, false)

	app := tview.NewApplication().SetRoot(layout, true).EnableMouse(false)
	c := &Console{
		app:     app,
		panel:   panel,
		log:     logPane,
		frame:   f,
		presser: presser,
		onExit:  onExit,
		ready:   make(chan struct{}),
	}
	c.queue = func(fn func()) { app.QueueUpdateDraw(fn) }
	c.writer = &lineWriter{append: c.AppendSystem}

	app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		c.screenMu.Lock()
		c.screen = screen
		c.screenMu.Unlock()
		c.markReady()
		return false
	})
	app.SetInputCapture(c.handleKey)
	return c
}

// Run starts the tview event loop in the background.
func (c *Console) Run() {
	go func() {
		if err := c.app.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "console error: %v\n", err)
		}
		c.markReady()
		if !c.closed.Swap(true) && c.onExit != nil {
			c.onExit()
		}
	}()
}

func (c *Console) markReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}

func (c *Console) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if event == nil {
		return nil
	}
	if event.Key() == tcell.KeyCtrlC {
		return event
	}
	if c.log.HandleScroll(event) {
		return nil
	}
	if c.presser != nil {
		c.presser.Press()
	}
	return nil
}

func (c *Console) Size() (int, int) { return c.frame.Size() }

func (c *Console) SetRow(row int, text string) { c.frame.SetRow(row, text) }

// Commit hands the staged frame to the UI goroutine.
func (c *Console) Commit() error {
	rows := c.frame.commit()
	if c.closed.Load() {
		return nil
	}
	c.queue(func() { c.panel.SetRows(rows) })
	return nil
}

func (c *Console) Beep() error {
	c.screenMu.Lock()
	screen := c.screen
	c.screenMu.Unlock()
	if screen == nil {
		return nil
	}
	return screen.Beep()
}

func (c *Console) AppendSystem(line string) {
	if c == nil || c.closed.Load() {
		return
	}
	c.log.Append(line)
	c.queue(func() {})
}

func (c *Console) SystemWriter() io.Writer { return c.writer }

func (c *Console) WaitReady() { <-c.ready }

func (c *Console) Stop() {
	if c.closed.Swap(true) {
		return
	}
	c.app.Stop()
}

// Package schedule implements the cooperative wait loop that multiplexes the
// button, idle scrolling, burn-in screen clearing and the re-poll timeout on
// the control goroutine.
package schedule

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultShortDwell = time.Second
	DefaultLongDwell  = 5 * time.Second
	DefaultTick       = 10 * time.Millisecond
)

// Result says why Wait returned.
type Result int

const (
	// ResultPressed means the operator pressed the button.
	ResultPressed Result = iota
	// ResultElapsed means MaxWait ran out; time to poll again.
	ResultElapsed
)

func (r Result) String() string {
	switch r {
	case ResultPressed:
		return "pressed"
	case ResultElapsed:
		return "elapsed"
	default:
		return "unknown"
	}
}

// View is the part of the display controller the wait loop drives.
type View interface {
	MaxOffset() int
	OnLastLine() bool
	ScrollNextLine()
	Refresh() error
	Clear() error
}

// Buttons is a non-blocking press queue.
type Buttons interface {
	Poll() bool
	Clear()
}

// Options bounds one Wait call. Zero durations are unset.
type Options struct {
	MaxWait          time.Duration
	ScreenClearAfter time.Duration
}

// Waiter runs the wait loop. ShortDwell is how long a scrolled page stays up;
// LongDwell applies while the last page is showing.
type Waiter struct {
	View    View
	Buttons Buttons
	Clock   Clock

	ShortDwell time.Duration
	LongDwell  time.Duration
	Tick       time.Duration
}

// NewWaiter returns a Waiter on the system clock with default dwell times.
func NewWaiter(view View, buttons Buttons) *Waiter {
	return &Waiter{
		View:       view,
		Buttons:    buttons,
		Clock:      SystemClock{},
		ShortDwell: DefaultShortDwell,
		LongDwell:  DefaultLongDwell,
		Tick:       DefaultTick,
	}
}

func (w *Waiter) dwell() time.Duration {
	if w.View.OnLastLine() {
		return w.LongDwell
	}
	return w.ShortDwell
}

// Wait polls the button every tick until it is pressed or opts.MaxWait
// elapses. Meanwhile it scrolls the view one line per dwell and, once
// opts.ScreenClearAfter has passed, blanks the view a single time. Presses
// queued before entry are discarded. A canceled ctx returns ctx.Err(); a
// failed redraw is returned as is.
func (w *Waiter) Wait(ctx context.Context, opts Options) (Result, error) {
	clock := w.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	tick := w.Tick
	if tick <= 0 {
		tick = DefaultTick
	}

	w.Buttons.Clear()
	start := clock.Now()
	scrollAt := start.Add(w.dwell())
	var maxAt, clearAt time.Time
	if opts.MaxWait > 0 {
		maxAt = start.Add(opts.MaxWait)
	}
	if opts.ScreenClearAfter > 0 {
		clearAt = start.Add(opts.ScreenClearAfter)
	}

	for {
		if w.Buttons.Poll() {
			return ResultPressed, nil
		}
		now := clock.Now()
		if !maxAt.IsZero() && !now.Before(maxAt) {
			return ResultElapsed, nil
		}
		if !clearAt.IsZero() && !now.Before(clearAt) {
			clearAt = time.Time{}
			if err := w.View.Clear(); err != nil {
				return ResultElapsed, fmt.Errorf("screen clear: %w", err)
			}
		} else if w.View.MaxOffset() > 0 && !now.Before(scrollAt) {
			w.View.ScrollNextLine()
			if err := w.View.Refresh(); err != nil {
				return ResultElapsed, fmt.Errorf("scroll refresh: %w", err)
			}
			scrollAt = scrollAt.Add(w.dwell())
			if scrollAt.Before(now) {
				scrollAt = now.Add(w.dwell())
			}
		}
		if err := clock.Sleep(ctx, tick); err != nil {
			return ResultElapsed, err
		}
	}
}

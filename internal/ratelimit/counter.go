// Package ratelimit throttles repetitive log lines.
package ratelimit

import (
	"sync/atomic"
	"time"
)

// Counter counts events and allows a log line at most once per interval.
// It is safe for concurrent use.
type Counter struct {
	interval time.Duration
	now      func() time.Time
	lastLog  atomic.Int64
	total    atomic.Uint64
}

// NewCounter constructs a Counter. A zero or negative interval logs every
// event.
func NewCounter(interval time.Duration) *Counter {
	return &Counter{interval: interval, now: time.Now}
}

// Inc records one event and reports the running total and whether this event
// may be logged. The first event is always logged.
func (c *Counter) Inc() (uint64, bool) {
	if c == nil {
		return 0, true
	}
	total := c.total.Add(1)
	if c.interval <= 0 || total == 1 {
		c.lastLog.Store(c.now().UnixNano())
		return total, true
	}
	now := c.now().UnixNano()
	last := c.lastLog.Load()
	if now-last < c.interval.Nanoseconds() {
		return total, false
	}
	return total, c.lastLog.CompareAndSwap(last, now)
}

// Reset zeroes the total so the next event logs again.
func (c *Counter) Reset() {
	if c == nil {
		return
	}
	c.total.Store(0)
	c.lastLog.Store(0)
}

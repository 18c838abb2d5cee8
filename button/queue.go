// Package button turns raw press events from any input source into a
// debounced queue that the control loop drains without blocking.
package button

import (
	"sync"
	"time"
)

// Queue counts debounced presses. Press may be called from any goroutine;
// Poll and Clear are meant for the control loop.
type Queue struct {
	mu       sync.Mutex
	debounce time.Duration
	now      func() time.Time
	last     time.Time
	pending  int
	dropped  uint64
}

// NewQueue returns a queue that ignores presses arriving within debounce of the
// previous accepted press. A zero debounce accepts every press.
func NewQueue(debounce time.Duration) *Queue {
	return &Queue{debounce: debounce, now: time.Now}
}

// Press records one press event. It reports whether the press was accepted.
func (q *Queue) Press() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	if q.debounce > 0 && !q.last.IsZero() && now.Sub(q.last) < q.debounce {
		q.dropped++
		return false
	}
	q.last = now
	q.pending++
	return true
}

// Poll consumes one pending press, if any.
func (q *Queue) Poll() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == 0 {
		return false
	}
	q.pending--
	return true
}

// Clear discards all pending presses.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.pending = 0
	q.mu.Unlock()
}

// Pending returns the number of queued presses.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Bounced returns how many presses were rejected by the debounce window.
func (q *Queue) Bounced() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

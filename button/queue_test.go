package button

import (
	"sync"
	"testing"
	"time"
)

func TestQueueDebounce(t *testing.T) {
	q := NewQueue(50 * time.Millisecond)
	base := time.Unix(1700000000, 0)
	cur := base
	q.now = func() time.Time { return cur }

	if !q.Press() {
		t.Fatalf("first press should be accepted")
	}
	cur = base.Add(20 * time.Millisecond)
	if q.Press() {
		t.Fatalf("press inside debounce window should bounce")
	}
	cur = base.Add(60 * time.Millisecond)
	if !q.Press() {
		t.Fatalf("press after debounce window should be accepted")
	}
	if q.Pending() != 2 || q.Bounced() != 1 {
		t.Fatalf("expected 2 pending and 1 bounced, got %d/%d", q.Pending(), q.Bounced())
	}
}

func TestQueuePollAndClear(t *testing.T) {
	q := NewQueue(0)
	if q.Poll() {
		t.Fatalf("empty queue should not report a press")
	}
	q.Press()
	q.Press()
	if !q.Poll() || !q.Poll() {
		t.Fatalf("expected two queued presses")
	}
	if q.Poll() {
		t.Fatalf("queue should be drained")
	}
	q.Press()
	q.Press()
	q.Clear()
	if q.Poll() {
		t.Fatalf("Clear should discard pending presses")
	}
}

func TestQueueConcurrentPress(t *testing.T) {
	q := NewQueue(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Press()
			}
		}()
	}
	wg.Wait()
	if q.Pending() != 800 {
		t.Fatalf("expected 800 presses, got %d", q.Pending())
	}
}

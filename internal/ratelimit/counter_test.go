package ratelimit

import (
	"testing"
	"time"
)

func TestCounterThrottlesWithinInterval(t *testing.T) {
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	now := base
	c := NewCounter(time.Minute)
	c.now = func() time.Time { return now }

	if total, ok := c.Inc(); !ok || total != 1 {
		t.Fatalf("first event should log, got total=%d ok=%v", total, ok)
	}
	now = base.Add(10 * time.Second)
	if total, ok := c.Inc(); ok || total != 2 {
		t.Fatalf("second event inside interval should be throttled, got total=%d ok=%v", total, ok)
	}
	now = base.Add(61 * time.Second)
	if total, ok := c.Inc(); !ok || total != 3 {
		t.Fatalf("event after interval should log, got total=%d ok=%v", total, ok)
	}
}

func TestCounterZeroIntervalAlwaysLogs(t *testing.T) {
	c := NewCounter(0)
	for i := 1; i <= 3; i++ {
		if total, ok := c.Inc(); !ok || total != uint64(i) {
			t.Fatalf("event %d: total=%d ok=%v", i, total, ok)
		}
	}
}

func TestCounterReset(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	c := NewCounter(time.Hour)
	c.now = func() time.Time { return now }
	c.Inc()
	if _, ok := c.Inc(); ok {
		t.Fatalf("expected throttled event")
	}
	c.Reset()
	if total, ok := c.Inc(); !ok || total != 1 {
		t.Fatalf("event after reset should log, got total=%d ok=%v", total, ok)
	}
}

func TestNilCounter(t *testing.T) {
	var c *Counter
	if _, ok := c.Inc(); !ok {
		t.Fatalf("nil counter should not suppress logs")
	}
	c.Reset()
}

package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps++
	c.now = c.now.Add(d)
	return nil
}

type fakeView struct {
	lines, maxLines int
	offset          int
	scrolls         int
	refreshes       int
	clears          int
	maxSeen         int
}

func (v *fakeView) MaxOffset() int { return max(0, v.lines-v.maxLines) }
func (v *fakeView) OnLastLine() bool { return v.offset == v.MaxOffset() }

func (v *fakeView) Refresh() error {
	v.refreshes++
	return nil
}

func (v *fakeView) ScrollNextLine() {
	v.scrolls++
	v.offset = (v.offset + 1) % (v.MaxOffset() + 1)
	v.maxSeen = max(v.maxSeen, v.offset)
}

func (v *fakeView) Clear() error {
	v.clears++
	v.lines, v.offset = 1, 0
	return nil
}

type fakeButtons struct {
	clock   *fakeClock
	pending int
	pressAt time.Time
	cleared int
}

func (b *fakeButtons) Poll() bool {
	if b.pending > 0 {
		b.pending--
		return true
	}
	if !b.pressAt.IsZero() && !b.clock.now.Before(b.pressAt) {
		b.pressAt = time.Time{}
		return true
	}
	return false
}

func (b *fakeButtons) Clear() {
	b.cleared++
	b.pending = 0
}

func newTestWaiter(view *fakeView) (*Waiter, *fakeClock, *fakeButtons) {
	clock := newFakeClock()
	buttons := &fakeButtons{clock: clock}
	w := NewWaiter(view, buttons)
	w.Clock = clock
	return w, clock, buttons
}

func TestWaitMaxWaitOnLastLine(t *testing.T) {
	view := &fakeView{lines: 2, maxLines: 5}
	w, clock, _ := newTestWaiter(view)
	start := clock.now

	res, err := w.Wait(context.Background(), Options{MaxWait: 5 * time.Second})
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res != ResultElapsed {
		t.Fatalf("expected elapsed, got %v", res)
	}
	if elapsed := clock.now.Sub(start); elapsed < 5*time.Second {
		t.Fatalf("returned after %s, want at least 5s", elapsed)
	}
	if view.scrolls != 0 || view.refreshes != 0 {
		t.Fatalf("fitting content should not scroll, got %d scrolls", view.scrolls)
	}
}

func TestWaitScrollsWithDwell(t *testing.T) {
	view := &fakeView{lines: 8, maxLines: 5}
	w, clock, _ := newTestWaiter(view)
	start := clock.now

	res, err := w.Wait(context.Background(), Options{MaxWait: 5 * time.Second})
	if err != nil || res != ResultElapsed {
		t.Fatalf("expected elapsed, got %v %v", res, err)
	}
	if clock.now.Sub(start) < 5*time.Second {
		t.Fatalf("returned early")
	}
	// 1s, 2s, 3s reach the last page; the long dwell then outlasts the wait.
	if view.scrolls != 3 || view.offset != 3 {
		t.Fatalf("expected 3 scrolls ending at offset 3, got %d scrolls offset %d", view.scrolls, view.offset)
	}
	if view.maxSeen > view.MaxOffset() {
		t.Fatalf("offset %d exceeded max %d", view.maxSeen, view.MaxOffset())
	}
	if view.refreshes != view.scrolls {
		t.Fatalf("expected a refresh per scroll, got %d/%d", view.refreshes, view.scrolls)
	}
}

func TestWaitLongDwellWrapsToTop(t *testing.T) {
	view := &fakeView{lines: 6, maxLines: 5}
	w, _, _ := newTestWaiter(view)

	// 1s: offset 1 (last page). 6s: back to 0. 7s: offset 1 again.
	if _, err := w.Wait(context.Background(), Options{MaxWait: 7500 * time.Millisecond}); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if view.scrolls != 3 || view.offset != 1 {
		t.Fatalf("expected 3 scrolls ending at offset 1, got %d scrolls offset %d", view.scrolls, view.offset)
	}
}

func TestWaitButtonPress(t *testing.T) {
	view := &fakeView{lines: 1, maxLines: 5}
	w, clock, buttons := newTestWaiter(view)
	start := clock.now
	buttons.pressAt = start.Add(2 * time.Second)

	res, err := w.Wait(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res != ResultPressed {
		t.Fatalf("expected pressed, got %v", res)
	}
	if got := clock.now.Sub(start); got < 2*time.Second || got > 2*time.Second+w.Tick {
		t.Fatalf("returned after %s, want about 2s", got)
	}
}

func TestWaitButtonBeatsMaxWait(t *testing.T) {
	view := &fakeView{lines: 1, maxLines: 5}
	w, clock, buttons := newTestWaiter(view)
	buttons.pressAt = clock.now.Add(time.Second)

	res, err := w.Wait(context.Background(), Options{MaxWait: time.Second})
	if err != nil || res != ResultPressed {
		t.Fatalf("expected pressed, got %v %v", res, err)
	}
}

func TestWaitDiscardsEarlierPresses(t *testing.T) {
	view := &fakeView{lines: 1, maxLines: 5}
	w, _, buttons := newTestWaiter(view)
	buttons.pending = 3

	res, err := w.Wait(context.Background(), Options{MaxWait: time.Second})
	if err != nil || res != ResultElapsed {
		t.Fatalf("expected elapsed, got %v %v", res, err)
	}
	if buttons.cleared != 1 {
		t.Fatalf("expected queue cleared once, got %d", buttons.cleared)
	}
}

func TestWaitScreenClearFiresOnce(t *testing.T) {
	view := &fakeView{lines: 8, maxLines: 5}
	w, _, _ := newTestWaiter(view)

	res, err := w.Wait(context.Background(), Options{MaxWait: 10 * time.Second, ScreenClearAfter: 2500 * time.Millisecond})
	if err != nil || res != ResultElapsed {
		t.Fatalf("expected elapsed, got %v %v", res, err)
	}
	if view.clears != 1 {
		t.Fatalf("expected one clear, got %d", view.clears)
	}
	if view.scrolls != 2 {
		t.Fatalf("scrolling should stop once the screen is blank, got %d scrolls", view.scrolls)
	}
}

func TestWaitContextCanceled(t *testing.T) {
	view := &fakeView{lines: 1, maxLines: 5}
	w, _, _ := newTestWaiter(view)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Wait(ctx, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSystemClockSleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (SystemClock{}).Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

package refresh

import (
	"context"
	"math"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/billie-coop/pqdash/internal/cache"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls []cache.Descriptor
}

func (c *countingInvalidator) Invalidate(d cache.Descriptor) *cache.Future {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, d)
	return nil
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

var targets = []cache.Descriptor{
	cache.NewDescriptor("queues", nil),
	cache.NewDescriptor("items", nil),
	cache.NewDescriptor("config", nil),
}

func targetFunc() []cache.Descriptor { return targets }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScheduler_IntervalChangeRestartsCountdown(t *testing.T) {
	clock := newFakeClock()
	inv := &countingInvalidator{}
	s := New(inv, targetFunc, WithClock(clock.Now), WithInterval(30*time.Second))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	clock.Advance(27 * time.Second)
	if p := s.Progress(); !approx(p, 0.9) {
		t.Fatalf("Progress = %v, want 0.9", p)
	}

	s.SetInterval(5 * time.Second)
	if p := s.Progress(); p != 0 {
		t.Errorf("Progress after SetInterval = %v, want 0", p)
	}
	if s.Ticks() != 0 || inv.count() != 0 {
		t.Errorf("SetInterval fired a tick (ticks=%d, invalidations=%d)", s.Ticks(), inv.count())
	}

	clock.Advance(time.Second)
	if p := s.Progress(); !approx(p, 0.2) {
		t.Errorf("Progress = %v, want 0.2 of the new interval", p)
	}
}

func TestScheduler_ProgressClampsWhenLate(t *testing.T) {
	clock := newFakeClock()
	inv := &countingInvalidator{}
	s := New(inv, targetFunc, WithClock(clock.Now), WithInterval(time.Second))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	// The host slept through ten deadlines.
	clock.Advance(10 * time.Second)
	if p := s.Progress(); p != 1 {
		t.Fatalf("Progress = %v, want clamped to 1", p)
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	s.fire(gen)

	if s.Ticks() != 1 {
		t.Errorf("Ticks = %d, want exactly one", s.Ticks())
	}
	if inv.count() != len(targets) {
		t.Errorf("invalidations = %d, want %d", inv.count(), len(targets))
	}
	if p := s.Progress(); p != 0 {
		t.Errorf("Progress after tick = %v, want 0", p)
	}

	// The timer that was superseded by the tick must not fire again.
	s.fire(gen)
	if s.Ticks() != 1 {
		t.Errorf("stale timer fired a second tick")
	}
}

func TestScheduler_TicksOnWallClock(t *testing.T) {
	inv := &countingInvalidator{}
	ticked := make(chan time.Time, 16)
	s := New(inv, targetFunc, WithInterval(20*time.Millisecond), OnTick(func(at time.Time) {
		ticked <- at
	}))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-ticked:
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d never fired", i+1)
		}
	}
	s.Stop()

	if got := inv.count(); got < 2*len(targets) {
		t.Errorf("invalidations = %d, want at least %d", got, 2*len(targets))
	}

	ticks := s.Ticks()
	time.Sleep(80 * time.Millisecond)
	if s.Ticks() != ticks {
		t.Error("scheduler ticked after Stop")
	}
	if s.Progress() != 0 {
		t.Error("stopped scheduler reports progress")
	}
}

func TestScheduler_Lifecycle(t *testing.T) {
	s := New(&countingInvalidator{}, targetFunc)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); err != ErrStarted {
		t.Errorf("second Start = %v, want ErrStarted", err)
	}
	s.Stop()
	s.Stop()
	if err := s.Start(context.Background()); err != ErrStopped {
		t.Errorf("Start after Stop = %v, want ErrStopped", err)
	}
}

func TestScheduler_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(&countingInvalidator{}, targetFunc)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for s.Running() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler still running after context cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScheduler_StopReleasesWatcher(t *testing.T) {
	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		s := New(&countingInvalidator{}, targetFunc, WithInterval(time.Hour))
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		s.Stop()
	}

	deadline := time.Now().Add(time.Second)
	for runtime.NumGoroutine() > before+5 {
		if time.Now().After(deadline) {
			t.Fatalf("goroutines = %d, started with %d", runtime.NumGoroutine(), before)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScheduler_Trigger(t *testing.T) {
	clock := newFakeClock()
	inv := &countingInvalidator{}
	s := New(inv, targetFunc, WithClock(clock.Now), WithInterval(time.Minute))
	s.Trigger()
	if inv.count() != 0 {
		t.Error("Trigger on a stopped scheduler invalidated")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	clock.Advance(30 * time.Second)
	s.Trigger()
	if inv.count() != len(targets) || s.Progress() != 0 {
		t.Errorf("Trigger: invalidations=%d progress=%v", inv.count(), s.Progress())
	}
}

func TestIntervals(t *testing.T) {
	tests := []struct {
		in, snap, next, prev time.Duration
	}{
		{5 * time.Second, 5 * time.Second, 10 * time.Second, 1 * time.Second},
		{7 * time.Second, 5 * time.Second, 10 * time.Second, 1 * time.Second},
		{300 * time.Second, 300 * time.Second, 1 * time.Second, 60 * time.Second},
		{time.Hour, 300 * time.Second, 1 * time.Second, 60 * time.Second},
		{0, 1 * time.Second, 5 * time.Second, 300 * time.Second},
	}
	for _, tt := range tests {
		if got := Snap(tt.in); got != tt.snap {
			t.Errorf("Snap(%v) = %v, want %v", tt.in, got, tt.snap)
		}
		if got := Next(tt.in); got != tt.next {
			t.Errorf("Next(%v) = %v, want %v", tt.in, got, tt.next)
		}
		if got := Prev(tt.in); got != tt.prev {
			t.Errorf("Prev(%v) = %v, want %v", tt.in, got, tt.prev)
		}
	}
}

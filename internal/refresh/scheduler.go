// Package refresh re-fetches the dashboard's data on a fixed wall-clock
// interval and reports how far along the current interval is.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/billie-coop/pqdash/internal/cache"
	"github.com/billie-coop/pqdash/internal/metrics"
	"github.com/rs/zerolog"
)

// Intervals are the refresh rates offered in the dashboard.
var Intervals = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
	300 * time.Second,
}

// DefaultInterval is the refresh rate used when none is configured.
const DefaultInterval = 5 * time.Second

var (
	ErrStarted = errors.New("refresh: scheduler already started")
	ErrStopped = errors.New("refresh: scheduler stopped")
)

// Invalidator is what the scheduler refreshes. *cache.Cache satisfies it.
type Invalidator interface {
	Invalidate(d cache.Descriptor) *cache.Future
}

// Scheduler invalidates a set of descriptors once per interval.
//
// The countdown runs on the wall clock and restarts whenever a tick fires,
// the interval changes or Trigger is called. If the process is paused past
// a deadline the scheduler fires once when it resumes; it never fires
// catch-up ticks.
type Scheduler struct {
	inv     Invalidator
	targets func() []cache.Descriptor
	now     func() time.Time
	logger  zerolog.Logger
	onTick  func(time.Time)

	mu       sync.Mutex
	interval time.Duration
	origin   time.Time
	timer    *time.Timer
	gen      uint64
	ticks    uint64
	running  bool
	stopped  bool
	done     chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the initial interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock overrides time.Now for progress and tick bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the scheduler logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// OnTick registers a callback run after each tick's invalidations.
func OnTick(fn func(time.Time)) Option {
	return func(s *Scheduler) { s.onTick = fn }
}

// New creates a stopped scheduler. targets is called on every tick, so it
// can return the item page currently on screen.
func New(inv Invalidator, targets func() []cache.Descriptor, opts ...Option) *Scheduler {
	s := &Scheduler{
		inv:      inv,
		targets:  targets,
		now:      time.Now,
		logger:   zerolog.Nop(),
		interval: DefaultInterval,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins ticking. The scheduler stops when ctx is done or Stop is
// called. It can only be started once.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.stopped:
		return ErrStopped
	case s.running:
		return ErrStarted
	}
	s.running = true
	s.restartLocked()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()

	s.logger.Debug().Dur("interval", s.interval).Msg("refresh scheduler started")
	return nil
}

// Stop releases the timer. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	s.running = false
	close(s.done)
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// SetInterval changes the interval and restarts the countdown from zero.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interval = d
	if s.running {
		s.restartLocked()
	}
}

// Interval returns the current interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Progress returns the elapsed fraction of the current interval in [0, 1].
// It is 0 when the scheduler is not running.
func (s *Scheduler) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return 0
	}
	frac := float64(s.now().Sub(s.origin)) / float64(s.interval)
	switch {
	case frac < 0:
		return 0
	case frac > 1:
		return 1
	}
	return frac
}

// Ticks returns how many ticks have fired, including triggered ones.
func (s *Scheduler) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Running reports whether the scheduler is ticking.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Trigger fires a tick now and restarts the countdown.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.fireLocked()
}

// restartLocked resets the countdown origin and re-arms the timer.
func (s *Scheduler) restartLocked() {
	s.origin = s.now()
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.interval, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if !s.running || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.fireLocked()
}

// fireLocked runs one tick. It is entered with s.mu held and releases it
// before invalidating.
func (s *Scheduler) fireLocked() {
	s.ticks++
	s.restartLocked()
	at := s.origin
	ticks := s.ticks
	s.mu.Unlock()

	targets := s.targets()
	for _, d := range targets {
		s.inv.Invalidate(d)
	}
	metrics.RefreshTick()
	s.logger.Debug().Uint64("tick", ticks).Int("targets", len(targets)).Msg("refresh tick")

	if s.onTick != nil {
		s.onTick(at)
	}
}

// Snap returns the entry of Intervals closest to d.
func Snap(d time.Duration) time.Duration {
	best := Intervals[0]
	for _, iv := range Intervals[1:] {
		if absDiff(iv, d) < absDiff(best, d) {
			best = iv
		}
	}
	return best
}

// Next returns the interval after d in Intervals, wrapping around.
func Next(d time.Duration) time.Duration {
	i := indexOf(Snap(d))
	return Intervals[(i+1)%len(Intervals)]
}

// Prev returns the interval before d in Intervals, wrapping around.
func Prev(d time.Duration) time.Duration {
	i := indexOf(Snap(d))
	return Intervals[(i+len(Intervals)-1)%len(Intervals)]
}

func indexOf(d time.Duration) int {
	for i, iv := range Intervals {
		if iv == d {
			return i
		}
	}
	return 0
}

func absDiff(a, b time.Duration) time.Duration {
	if a > b {
		return a - b
	}
	return b - a
}

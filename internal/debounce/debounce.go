// Package debounce holds back a fast-changing value until it has been
// stable for a quiet period.
//
// The dashboard feeds every search keystroke into a Gate and only builds a
// new item query when the gate settles. Settlement is trailing-edge only:
// the first change of a burst never settles on its own.
//
//	gate := debounce.New(500*time.Millisecond, "", func(q string) {
//	    fmt.Println("search for", q)
//	})
//	defer gate.Stop()
//	gate.Observe("b")
//	gate.Observe("bo")
//	gate.Observe("bob") // one settlement, with "bob"
package debounce

import (
	"sync"
	"time"
)

// DefaultQuiet is the quiet period the dashboard uses for search input.
const DefaultQuiet = 500 * time.Millisecond

// Gate debounces values of type T.
type Gate[T comparable] struct {
	quiet    time.Duration
	onSettle func(T)

	mu      sync.Mutex
	raw     T
	settled T
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// New creates a gate whose raw and settled values start at initial.
// onSettle, if set, runs on the timer goroutine after each settlement.
func New[T comparable](quiet time.Duration, initial T, onSettle func(T)) *Gate[T] {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Gate[T]{
		quiet:    quiet,
		onSettle: onSettle,
		raw:      initial,
		settled:  initial,
	}
}

// Observe records v as the latest raw value and restarts the quiet period.
// It returns the value settled so far. Observing the current raw value
// again does not restart the timer.
func (g *Gate[T]) Observe(v T) T {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return g.settled
	}
	if v == g.raw && (g.timer != nil || v == g.settled) {
		return g.settled
	}

	g.raw = v
	if g.timer != nil {
		g.timer.Stop()
	}
	g.gen++
	gen := g.gen
	g.timer = time.AfterFunc(g.quiet, func() { g.fire(gen) })

	return g.settled
}

// Raw returns the most recently observed value.
func (g *Gate[T]) Raw() T {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.raw
}

// Settled returns the value of the last settlement.
func (g *Gate[T]) Settled() T {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settled
}

// Pending reports whether a settlement is scheduled.
func (g *Gate[T]) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timer != nil
}

// Flush settles the pending value now. It is a no-op if nothing is pending.
func (g *Gate[T]) Flush() {
	g.mu.Lock()
	if g.timer == nil || g.stopped {
		g.mu.Unlock()
		return
	}
	g.timer.Stop()
	gen := g.gen
	g.mu.Unlock()

	g.fire(gen)
}

// Stop cancels any pending settlement. No settlement starts after Stop
// returns, and later Observe calls are ignored.
func (g *Gate[T]) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopped = true
	g.gen++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// fire settles the raw value unless a newer Observe or Stop superseded the
// timer that scheduled it.
func (g *Gate[T]) fire(gen uint64) {
	g.mu.Lock()
	if g.stopped || gen != g.gen {
		g.mu.Unlock()
		return
	}
	g.settled = g.raw
	g.timer = nil
	g.gen++
	v, cb := g.settled, g.onSettle
	g.mu.Unlock()

	// Outside the lock
	if cb != nil {
		cb(v)
	}
}

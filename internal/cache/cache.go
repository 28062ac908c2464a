package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/billie-coop/pqdash/internal/api"
	"github.com/billie-coop/pqdash/internal/metrics"
	"github.com/rs/zerolog"
)

// Fetcher loads the data for a descriptor.
type Fetcher interface {
	Fetch(ctx context.Context, d Descriptor) (any, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, d Descriptor) (any, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, d Descriptor) (any, error) {
	return f(ctx, d)
}

// Entry is a snapshot of what the cache knows about one descriptor.
type Entry struct {
	Descriptor     Descriptor
	Data           any
	Err            error
	FetchStartedAt time.Time
	// Settled is false until the first fetch completes and again after an
	// optimistic write.
	Settled  bool
	Fetching bool
	// Version counts settlements.
	Version uint64
}

// Loading reports whether nothing has arrived yet.
func (e Entry) Loading() bool {
	return e.Data == nil && e.Err == nil
}

// Unavailable reports whether the last fetch hit the database-unavailable
// condition.
func (e Entry) Unavailable() bool {
	return errors.Is(e.Err, api.ErrUnavailable)
}

// Future resolves when a particular fetch settles.
type Future struct {
	done  chan struct{}
	entry Entry
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func resolved(e Entry) *Future {
	f := &Future{done: make(chan struct{}), entry: e}
	close(f.done)
	return f
}

// Done is closed once the fetch has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Entry returns the entry as of settlement. Only valid after Done.
func (f *Future) Entry() Entry {
	<-f.done
	return f.entry
}

// Wait blocks until the fetch settles or ctx is done.
func (f *Future) Wait(ctx context.Context) (Entry, error) {
	select {
	case <-f.done:
		return f.entry, nil
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	}
}

type record struct {
	entry    Entry
	inflight *Future
	// next is a fetch queued behind inflight by Revalidate.
	next *Future
	// fetched is set once any fetch has started for the record.
	fetched bool
}

// Cache maps descriptors to entries.
type Cache struct {
	fetcher Fetcher
	logger  zerolog.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	records map[Descriptor]*record
	subs    map[*Subscription]struct{}
	closed  bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithClock overrides time.Now for FetchStartedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithContext sets the parent context of every fetch.
func WithContext(ctx context.Context) Option {
	return func(c *Cache) { c.ctx = ctx }
}

// New creates an empty cache backed by f.
func New(f Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher: f,
		logger:  zerolog.Nop(),
		now:     time.Now,
		ctx:     context.Background(),
		records: make(map[Descriptor]*record),
		subs:    make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(c.ctx)
	return c
}

// Get returns the cached entry for d, starting a fetch if d has never been
// fetched. A record created by OptimisticWrite alone counts as unfetched.
func (c *Cache) Get(d Descriptor) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.recordLocked(d)
	if !r.fetched && !c.closed {
		c.startLocked(d, r, newFuture())
	}
	return r.entry
}

// Peek returns the cached entry for d without fetching.
func (c *Cache) Peek(d Descriptor) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.records[d]
	if !ok {
		return Entry{Descriptor: d}, false
	}
	return r.entry, true
}

// Invalidate re-fetches d. If a fetch is already in flight the call joins
// it. The returned future resolves when that fetch settles.
func (c *Cache) Invalidate(d Descriptor) *Future {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.recordLocked(d)
	if c.closed {
		return resolved(r.entry)
	}
	if r.inflight != nil {
		metrics.FetchCoalesced(d.Resource)
		return r.inflight
	}
	f := newFuture()
	c.startLocked(d, r, f)
	return f
}

// Revalidate is Invalidate for callers that need data newer than the
// call: if a fetch is in flight, one more is queued to start when it
// settles. Concurrent Revalidate calls share the queued fetch.
func (c *Cache) Revalidate(d Descriptor) *Future {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.recordLocked(d)
	switch {
	case c.closed:
		return resolved(r.entry)
	case r.inflight == nil:
		f := newFuture()
		c.startLocked(d, r, f)
		return f
	case r.next != nil:
		metrics.FetchCoalesced(d.Resource)
		return r.next
	default:
		r.next = newFuture()
		return r.next
	}
}

// OptimisticWrite replaces d's data with transform(data) until the next
// settlement. An in-flight fetch is left alone and overwrites the result
// when it lands.
func (c *Cache) OptimisticWrite(d Descriptor, transform func(any) any) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.recordLocked(d)
	r.entry.Data = transform(r.entry.Data)
	r.entry.Settled = false
	c.notifyLocked(r.entry)
	return r.entry
}

// Subscribe returns a subscription to settlements of ds, or of every
// descriptor when ds is empty.
func (c *Cache) Subscribe(ds ...Descriptor) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Subscription{cache: c, ch: make(chan Entry, subscriptionBuffer)}
	if len(ds) > 0 {
		s.filter = make(map[Descriptor]struct{}, len(ds))
		for _, d := range ds {
			s.filter[d] = struct{}{}
		}
	}
	if c.closed {
		close(s.ch)
		s.closed = true
		return s
	}
	c.subs[s] = struct{}{}
	return s
}

// Close cancels in-flight fetches and closes all subscriptions. Pending
// futures still resolve.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for s := range c.subs {
		s.closeLocked()
	}
	c.mu.Unlock()

	c.cancel()
}

func (c *Cache) recordLocked(d Descriptor) *record {
	r, ok := c.records[d]
	if !ok {
		r = &record{entry: Entry{Descriptor: d}}
		c.records[d] = r
	}
	return r
}

func (c *Cache) startLocked(d Descriptor, r *record, f *Future) {
	r.inflight = f
	r.fetched = true
	r.entry.Fetching = true
	r.entry.FetchStartedAt = c.now()
	metrics.FetchStarted(d.Resource)

	go c.run(d, f)
}

func (c *Cache) run(d Descriptor, f *Future) {
	start := time.Now()
	data, err := c.fetcher.Fetch(c.ctx, d)

	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.records[d]
	r.inflight = nil
	if c.closed {
		metrics.FetchSettled(d.Resource, "cancelled")
		r.entry.Fetching = false
		f.entry = r.entry
		close(f.done)
		if r.next != nil {
			r.next.entry = r.entry
			close(r.next.done)
			r.next = nil
		}
		return
	}

	outcome := settle(&r.entry, data, err)
	metrics.FetchSettled(d.Resource, outcome)

	log := c.logger.Debug()
	if err != nil {
		log = c.logger.Warn().Err(err)
	}
	log.Str("descriptor", d.String()).
		Str("outcome", outcome).
		Dur("took", time.Since(start)).
		Uint64("version", r.entry.Version).
		Msg("fetch settled")

	// Subscribers hear about the settlement before waiters wake up.
	c.notifyLocked(r.entry)
	f.entry = r.entry
	close(f.done)

	if r.next != nil {
		next := r.next
		r.next = nil
		c.startLocked(d, r, next)
	}
}

// settle applies a fetch result to e and returns its outcome label.
func settle(e *Entry, data any, err error) string {
	e.Fetching = false
	e.Settled = true
	e.Version++

	switch {
	case err == nil:
		e.Data = data
		e.Err = nil
		return "ok"
	case errors.Is(err, api.ErrUnavailable):
		e.Err = err
		return "unavailable"
	default:
		e.Data = nil
		e.Err = err
		return "failed"
	}
}

func (c *Cache) notifyLocked(e Entry) {
	for s := range c.subs {
		s.sendLocked(e)
	}
}

const subscriptionBuffer = 16

// Subscription delivers entries as they change.
type Subscription struct {
	cache  *Cache
	ch     chan Entry
	filter map[Descriptor]struct{}
	closed bool
}

// C returns the delivery channel. It is closed by Close.
func (s *Subscription) C() <-chan Entry {
	return s.ch
}

// Close stops delivery. Entries settled after Close are dropped.
func (s *Subscription) Close() {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	delete(s.cache.subs, s)
	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (s *Subscription) sendLocked(e Entry) {
	if s.closed {
		return
	}
	if s.filter != nil {
		if _, ok := s.filter[e.Descriptor]; !ok {
			return
		}
	}
	select {
	case s.ch <- e:
		return
	default:
	}
	// Full: drop the oldest so the newest always gets through.
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- e:
	default:
	}
}

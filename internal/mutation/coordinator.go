// Package mutation issues delete and requeue requests against the API and
// reconciles the cache afterwards.
//
// Every operation has two phases. The request is issued (an item delete
// first removes the item from the cached page so the table updates at
// once), then each affected descriptor is revalidated whatever the request
// returned. There is no rollback: the revalidation overwrites any
// optimistic data with the server's view.
package mutation

import (
	"context"
	"fmt"
	"strconv"

	"github.com/billie-coop/pqdash/internal/cache"
	"github.com/billie-coop/pqdash/internal/events"
	"github.com/billie-coop/pqdash/internal/metrics"
	"github.com/billie-coop/pqdash/internal/resource"
	"github.com/rs/zerolog"
)

// Op names a mutation.
type Op string

const (
	OpDeleteItem      Op = "delete-item"
	OpRequeueItem     Op = "requeue-item"
	OpDeleteQueued    Op = "delete-queued"
	OpDeleteProcessed Op = "delete-processed"
)

// Mutator is the write half of the API client.
type Mutator interface {
	DeleteItem(ctx context.Context, id int64) error
	RequeueItem(ctx context.Context, id int64) error
	DeleteQueued(ctx context.Context, queue string) error
	DeleteProcessed(ctx context.Context, queue string) error
}

// Store is the part of the cache a mutation touches.
type Store interface {
	OptimisticWrite(d cache.Descriptor, transform func(any) any) cache.Entry
	Revalidate(d cache.Descriptor) *cache.Future
}

// Publisher receives notifications. *events.Broker satisfies it.
type Publisher interface {
	PublishAsync(event events.Event)
}

// Outcome reports a finished request. Reconciled holds one future per
// revalidated descriptor, in the order they were passed.
type Outcome struct {
	Op         Op
	Target     string
	Err        error
	Reconciled []*cache.Future
}

// Wait blocks until every revalidation has settled or ctx is done.
func (o Outcome) Wait(ctx context.Context) error {
	for _, f := range o.Reconciled {
		if _, err := f.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Coordinator runs mutations.
type Coordinator struct {
	api    Mutator
	store  Store
	pub    Publisher
	logger zerolog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New creates a coordinator. pub may be nil, in which case nothing is
// announced.
func New(api Mutator, store Store, pub Publisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:    api,
		store:  store,
		pub:    pub,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DeleteItem removes item id from the page cached at items, deletes it on
// the server and revalidates items and also.
func (c *Coordinator) DeleteItem(ctx context.Context, id int64, items cache.Descriptor, also ...cache.Descriptor) Outcome {
	c.store.OptimisticWrite(items, resource.WithoutItem(id))

	err := c.api.DeleteItem(ctx, id)
	return c.finish(OpDeleteItem, strconv.FormatInt(id, 10), err,
		fmt.Sprintf("Item %d deleted", id),
		fmt.Sprintf("Failed to delete item %d", id),
		append([]cache.Descriptor{items}, also...))
}

// RequeueItem requeues item id and revalidates items and also.
func (c *Coordinator) RequeueItem(ctx context.Context, id int64, items cache.Descriptor, also ...cache.Descriptor) Outcome {
	err := c.api.RequeueItem(ctx, id)
	return c.finish(OpRequeueItem, strconv.FormatInt(id, 10), err,
		fmt.Sprintf("Item %d requeued", id),
		fmt.Sprintf("Failed to requeue item %d", id),
		append([]cache.Descriptor{items}, also...))
}

// DeleteQueued drops every queued item of queue and revalidates ds.
func (c *Coordinator) DeleteQueued(ctx context.Context, queue string, ds ...cache.Descriptor) Outcome {
	err := c.api.DeleteQueued(ctx, queue)
	return c.finish(OpDeleteQueued, queue, err,
		fmt.Sprintf("Deleted queued items in queue %s", queue),
		fmt.Sprintf("Failed to delete queued items in queue %s", queue),
		ds)
}

// DeleteProcessed drops every processed item of queue and revalidates ds.
func (c *Coordinator) DeleteProcessed(ctx context.Context, queue string, ds ...cache.Descriptor) Outcome {
	err := c.api.DeleteProcessed(ctx, queue)
	return c.finish(OpDeleteProcessed, queue, err,
		fmt.Sprintf("Deleted processed items in queue %s", queue),
		fmt.Sprintf("Failed to delete processed items in queue %s", queue),
		ds)
}

func (c *Coordinator) finish(op Op, target string, err error, okMsg, failMsg string, ds []cache.Descriptor) Outcome {
	out := Outcome{Op: op, Target: target, Err: err}
	for _, d := range ds {
		out.Reconciled = append(out.Reconciled, c.store.Revalidate(d))
	}

	metrics.Mutation(string(op), err)
	if err != nil {
		c.logger.Warn().Err(err).Str("op", string(op)).Str("target", target).Msg("mutation failed")
		c.notify(events.LevelError, fmt.Sprintf("%s: %v", failMsg, err))
		return out
	}
	c.logger.Info().Str("op", string(op)).Str("target", target).Msg("mutation applied")
	c.notify(events.LevelInfo, okMsg)
	return out
}

func (c *Coordinator) notify(level events.Level, msg string) {
	if c.pub == nil {
		return
	}
	c.pub.PublishAsync(events.Notify(level, msg))
}

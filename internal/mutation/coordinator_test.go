package mutation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/billie-coop/pqdash/internal/api"
	"github.com/billie-coop/pqdash/internal/cache"
	"github.com/billie-coop/pqdash/internal/events"
	"github.com/billie-coop/pqdash/internal/resource"
)

// fakeAPI records calls. When release is set every call blocks on it.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []string
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeAPI) call(name string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.err
}

func (f *fakeAPI) DeleteItem(ctx context.Context, id int64) error  { return f.call("delete-item") }
func (f *fakeAPI) RequeueItem(ctx context.Context, id int64) error { return f.call("requeue-item") }
func (f *fakeAPI) DeleteQueued(ctx context.Context, q string) error {
	return f.call("delete-queued:" + q)
}
func (f *fakeAPI) DeleteProcessed(ctx context.Context, q string) error {
	return f.call("delete-processed:" + q)
}

// pageServer serves a three item page and counts fetches per resource.
type pageServer struct {
	mu      sync.Mutex
	fetches map[string]int
}

func (s *pageServer) Fetch(ctx context.Context, d cache.Descriptor) (any, error) {
	s.mu.Lock()
	s.fetches[d.Resource]++
	s.mu.Unlock()
	switch d.Resource {
	case resource.Queues:
		return []api.Queue{{Name: "emails", Queued: 3, Total: 3}}, nil
	default:
		return &api.ItemPage{Records: []api.Item{{ID: 1}, {ID: 2}, {ID: 3}}, Total: 3, Limit: 10}, nil
	}
}

func (s *pageServer) count(resource string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[resource]
}

func setup(t *testing.T) (*cache.Cache, *pageServer, cache.Descriptor) {
	t.Helper()
	srv := &pageServer{fetches: make(map[string]int)}
	c := cache.New(srv)
	t.Cleanup(c.Close)

	items := resource.ItemsDescriptor(api.ItemQuery{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.Invalidate(items).Wait(ctx); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	return c, srv, items
}

func waitOutcome(t *testing.T, o Outcome) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.Wait(ctx); err != nil {
		t.Fatalf("revalidation did not settle: %v", err)
	}
}

func nextNotification(t *testing.T, ch <-chan events.Event) events.Notification {
	t.Helper()
	select {
	case e := <-ch:
		return e.Payload.(events.Notification)
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}
	return events.Notification{}
}

func recordIDs(e cache.Entry) []int64 {
	page := resource.PageOf(e)
	if page == nil {
		return nil
	}
	ids := make([]int64, 0, len(page.Records))
	for _, r := range page.Records {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestDeleteItem_OptimisticThenRevalidates(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		level   events.Level
		message string
	}{
		{"success", nil, events.LevelInfo, "Item 2 deleted"},
		{"failure", &api.RequestError{Method: "DELETE", Path: "/api/v1/items/2", Status: 500}, events.LevelError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv, items := setup(t)
			queues := resource.QueuesDescriptor()
			fake := &fakeAPI{err: tt.err, started: make(chan struct{}, 1), release: make(chan struct{})}
			broker := events.NewBroker()
			defer broker.Close()
			notes := broker.Subscribe(events.NotificationEvent)

			coord := New(fake, c, broker)
			done := make(chan Outcome, 1)
			go func() { done <- coord.DeleteItem(context.Background(), 2, items, queues) }()

			<-fake.started
			e, _ := c.Peek(items)
			if ids := recordIDs(e); len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
				t.Fatalf("while request in flight ids = %v, want [1 3]", ids)
			}
			if resource.PageOf(e).Total != 3 {
				t.Errorf("optimistic write changed total to %d", resource.PageOf(e).Total)
			}
			if e.Settled {
				t.Error("optimistic entry reports Settled")
			}

			close(fake.release)
			out := <-done
			if !errors.Is(out.Err, tt.err) {
				t.Errorf("Err = %v, want %v", out.Err, tt.err)
			}
			if len(out.Reconciled) != 2 {
				t.Fatalf("Reconciled = %d futures, want 2", len(out.Reconciled))
			}
			waitOutcome(t, out)

			if n := srv.count(resource.Items); n != 2 {
				t.Errorf("item fetches = %d, want seed plus one revalidation", n)
			}
			if n := srv.count(resource.Queues); n != 1 {
				t.Errorf("queue fetches = %d, want 1", n)
			}
			if e := out.Reconciled[0].Entry(); !e.Settled || len(recordIDs(e)) != 3 {
				t.Errorf("reconciled entry = %+v, want server data", e)
			}

			n := nextNotification(t, notes)
			if n.Level != tt.level {
				t.Errorf("level = %q, want %q", n.Level, tt.level)
			}
			if tt.message != "" && n.Message != tt.message {
				t.Errorf("message = %q, want %q", n.Message, tt.message)
			}
		})
	}
}

func TestRequestFirstOperations(t *testing.T) {
	tests := []struct {
		name    string
		run     func(*Coordinator, cache.Descriptor) Outcome
		call    string
		op      Op
		message string
	}{
		{
			name:    "requeue",
			run:     func(c *Coordinator, d cache.Descriptor) Outcome { return c.RequeueItem(context.Background(), 2, d) },
			call:    "requeue-item",
			op:      OpRequeueItem,
			message: "Item 2 requeued",
		},
		{
			name: "delete queued",
			run: func(c *Coordinator, d cache.Descriptor) Outcome {
				return c.DeleteQueued(context.Background(), "emails", d)
			},
			call:    "delete-queued:emails",
			op:      OpDeleteQueued,
			message: "Deleted queued items in queue emails",
		},
		{
			name: "delete processed",
			run: func(c *Coordinator, d cache.Descriptor) Outcome {
				return c.DeleteProcessed(context.Background(), "emails", d)
			},
			call:    "delete-processed:emails",
			op:      OpDeleteProcessed,
			message: "Deleted processed items in queue emails",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv, items := setup(t)
			fake := &fakeAPI{started: make(chan struct{}, 1), release: make(chan struct{})}
			broker := events.NewBroker()
			defer broker.Close()
			notes := broker.Subscribe(events.NotificationEvent)

			coord := New(fake, c, broker)
			done := make(chan Outcome, 1)
			go func() { done <- tt.run(coord, items) }()

			<-fake.started
			e, _ := c.Peek(items)
			if len(recordIDs(e)) != 3 || !e.Settled {
				t.Errorf("cache changed before the request completed: %+v", e)
			}

			close(fake.release)
			out := <-done
			if out.Err != nil || out.Op != tt.op {
				t.Fatalf("outcome = %+v", out)
			}
			waitOutcome(t, out)
			if n := srv.count(resource.Items); n != 2 {
				t.Errorf("item fetches = %d, want 2", n)
			}
			if fake.calls[0] != tt.call {
				t.Errorf("call = %q, want %q", fake.calls[0], tt.call)
			}
			if n := nextNotification(t, notes); n.Message != tt.message || n.Level != events.LevelInfo {
				t.Errorf("notification = %+v", n)
			}
		})
	}
}

func TestUnavailableStillRevalidates(t *testing.T) {
	c, srv, items := setup(t)
	fake := &fakeAPI{err: api.ErrUnavailable}

	out := New(fake, c, nil).DeleteQueued(context.Background(), "emails", items, resource.QueuesDescriptor())
	if !api.IsUnavailable(out.Err) {
		t.Fatalf("Err = %v", out.Err)
	}
	waitOutcome(t, out)
	if srv.count(resource.Items) != 2 || srv.count(resource.Queues) != 1 {
		t.Errorf("fetches items=%d queues=%d", srv.count(resource.Items), srv.count(resource.Queues))
	}
}

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	}, opts...)
	c, err := NewClient(srv.URL, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:9182", "ftp://host", "http://"} {
		if _, err := NewClient(raw); err == nil {
			t.Errorf("NewClient(%q) = nil error, want error", raw)
		}
	}
}

func TestClient_Items(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/items/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"records":[{"id":7,"enqueued_at":"2024-01-02T03:04:05Z","dequeued_at":null,"q_name":"emails","data":{"function":"send","retried":2}}],"total":41,"limit":10,"offset":0}`))
	})

	page, err := c.Items(context.Background(), ItemQuery{Queue: "emails", Search: " bob ", OrderBy: OrderQueueDesc})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}

	want := "exclude_processed=false&limit=10&offset=0&order_by=queue_DESC&queue=emails&search=bob"
	if gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}
	if page.Total != 41 || len(page.Records) != 1 {
		t.Fatalf("page = %+v", page)
	}
	item := page.Records[0]
	if item.ID != 7 || item.QueueName != "emails" || item.Processed() {
		t.Errorf("item = %+v", item)
	}
	if item.RetryCount() != 2 {
		t.Errorf("RetryCount = %d, want 2", item.RetryCount())
	}
}

func TestClient_TeapotIsUnavailable(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTeapot)
	})

	_, err := c.Queues(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1 (418 is not retried)", n)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"name":"emails","total":3,"queued":1,"processed":2}]`))
	}, WithRetries(3))

	queues, err := c.Queues(context.Background())
	if err != nil {
		t.Fatalf("Queues: %v", err)
	}
	if len(queues) != 1 || queues[0].Processed != 2 {
		t.Errorf("queues = %+v", queues)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}, WithRetries(2))

	_, err := c.Config(context.Background())
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
	if reqErr.Status != http.StatusInternalServerError || reqErr.Body != "boom" {
		t.Errorf("reqErr = %+v", reqErr)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := c.Items(context.Background(), ItemQuery{}); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestClient_Mutations(t *testing.T) {
	tests := []struct {
		name   string
		call   func(*Client) error
		method string
		path   string
	}{
		{
			name:   "delete_item",
			call:   func(c *Client) error { return c.DeleteItem(context.Background(), 7) },
			method: http.MethodDelete,
			path:   "/api/v1/items/7",
		},
		{
			name:   "requeue_item",
			call:   func(c *Client) error { return c.RequeueItem(context.Background(), 7) },
			method: http.MethodPost,
			path:   "/api/v1/items/7/requeue",
		},
		{
			name:   "delete_queued",
			call:   func(c *Client) error { return c.DeleteQueued(context.Background(), "a b") },
			method: http.MethodPost,
			path:   "/api/v1/queues/a%20b/delete-queued",
		},
		{
			name:   "delete_processed",
			call:   func(c *Client) error { return c.DeleteProcessed(context.Background(), "emails") },
			method: http.MethodPost,
			path:   "/api/v1/queues/emails/delete-processed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMethod, gotPath string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotPath = r.URL.EscapedPath()
			})
			if err := tt.call(c); err != nil {
				t.Fatalf("call: %v", err)
			}
			if gotMethod != tt.method || gotPath != tt.path {
				t.Errorf("got %s %s, want %s %s", gotMethod, gotPath, tt.method, tt.path)
			}
		})
	}
}

func TestClient_MutationsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if err := c.DeleteItem(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(20*time.Millisecond), WithRetries(1))
	defer close(release)

	start := time.Now()
	_, err := c.Queues(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("request took %v", time.Since(start))
	}
}

func TestBackendConfig_AcceptsNumbers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"PGHOST":"db","PGPORT":5432,"QUEUE_TABLE":"queue"}`))
	})

	cfg, err := c.Config(context.Background())
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if cfg["PGPORT"] != "5432" || cfg["PGHOST"] != "db" {
		t.Errorf("cfg = %v", cfg)
	}
}

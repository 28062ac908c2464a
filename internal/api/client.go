package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/billie-coop/pqdash/internal/metrics"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

const (
	apiPrefix = "/api/v1"

	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 10 * time.Second
	// DefaultRetries is the number of attempts for idempotent requests.
	DefaultRetries = 3
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// Client talks to the dashboard HTTP API.
type Client struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	retries int
	backoff func() backoff.BackOff
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-attempt timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries sets how many attempts idempotent requests get.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n < 1 {
			n = 1
		}
		c.retries = n
	}
}

// WithBackOff sets the retry delay policy.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) { c.backoff = newBackOff }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url %q: missing host", baseURL)
	}

	c := &Client{
		client:  &http.Client{},
		baseURL: strings.TrimRight(u.String(), "/"),
		timeout: DefaultTimeout,
		retries: DefaultRetries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server address the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Queues lists every queue with its counts.
func (c *Client) Queues(ctx context.Context) ([]Queue, error) {
	var queues []Queue
	if err := c.get(ctx, "/queues/", "/queues/", nil, &queues); err != nil {
		return nil, err
	}
	return queues, nil
}

// Items fetches one page of items.
func (c *Client) Items(ctx context.Context, q ItemQuery) (*ItemPage, error) {
	var page ItemPage
	if err := c.get(ctx, "/items/", "/items/", q.Values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Config fetches the server's database settings.
func (c *Client) Config(ctx context.Context) (BackendConfig, error) {
	var cfg BackendConfig
	if err := c.get(ctx, "/health/config", "/health/config", nil, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Health checks that the server can reach its database.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health/check", "/health/check", nil, nil)
}

// DeleteItem removes one item.
func (c *Client) DeleteItem(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, "/items/{id}", "/items/"+strconv.FormatInt(id, 10))
}

// RequeueItem puts a processed item back on its queue.
func (c *Client) RequeueItem(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodPost, "/items/{id}/requeue", "/items/"+strconv.FormatInt(id, 10)+"/requeue")
}

// DeleteQueued removes every item still waiting in the queue.
func (c *Client) DeleteQueued(ctx context.Context, queue string) error {
	return c.send(ctx, http.MethodPost, "/queues/{name}/delete-queued", "/queues/"+url.PathEscape(queue)+"/delete-queued")
}

// DeleteProcessed removes every dequeued item from the queue.
func (c *Client) DeleteProcessed(ctx context.Context, queue string) error {
	return c.send(ctx, http.MethodPost, "/queues/{name}/delete-processed", "/queues/"+url.PathEscape(queue)+"/delete-processed")
}

// get performs an idempotent request, retrying temporary failures.
func (c *Client) get(ctx context.Context, route, path string, query url.Values, out any) error {
	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		err := c.do(ctx, http.MethodGet, route, path, query, out)
		if err == nil {
			return struct{}{}, nil
		}
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.Temporary() && ctx.Err() == nil {
			c.logger.Debug().Err(err).Int("attempt", attempt).Str("route", route).Msg("request failed, retrying")
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.backoff()),
		backoff.WithMaxTries(uint(c.retries)),
	)
	return err
}

// send performs a mutating request. Mutations are never retried.
func (c *Client) send(ctx context.Context, method, route, path string) error {
	return c.do(ctx, method, route, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, route, path string, query url.Values, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	fullPath := apiPrefix + path
	target := c.baseURL + fullPath
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return &RequestError{Method: method, Path: fullPath, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveRequest(method, route, 0, time.Since(start))
		return &RequestError{Method: method, Path: fullPath, Err: err}
	}
	defer resp.Body.Close()
	metrics.ObserveRequest(method, route, resp.StatusCode, time.Since(start))

	c.logger.Debug().
		Str("method", method).
		Str("path", fullPath).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("api request")

	if resp.StatusCode == http.StatusTeapot {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s %s: %w", method, fullPath, ErrUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RequestError{
			Method: method,
			Path:   fullPath,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Method: method, Path: fullPath, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

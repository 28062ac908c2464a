// Package resource names the three things the dashboard caches (the queue
// list, item pages and the server config) and loads them from the API.
package resource

import (
	"context"
	"fmt"
	"net/url"

	"github.com/billie-coop/pqdash/internal/api"
	"github.com/billie-coop/pqdash/internal/cache"
)

const (
	Queues = "queues"
	Items  = "items"
	Config = "config"
)

// Source is the subset of the API client the fetcher reads from.
type Source interface {
	Queues(ctx context.Context) ([]api.Queue, error)
	Items(ctx context.Context, q api.ItemQuery) (*api.ItemPage, error)
	Config(ctx context.Context) (api.BackendConfig, error)
}

// QueuesDescriptor identifies the queue list.
func QueuesDescriptor() cache.Descriptor {
	return cache.NewDescriptor(Queues, nil)
}

// ItemsDescriptor identifies one item page. The query is normalized first,
// so equivalent filters share a cache entry.
func ItemsDescriptor(q api.ItemQuery) cache.Descriptor {
	return cache.NewDescriptor(Items, q.Values())
}

// ConfigDescriptor identifies the server config.
func ConfigDescriptor() cache.Descriptor {
	return cache.NewDescriptor(Config, url.Values{})
}

// Fetcher loads descriptors from a Source.
type Fetcher struct {
	src Source
}

// NewFetcher returns a cache.Fetcher backed by src.
func NewFetcher(src Source) *Fetcher {
	return &Fetcher{src: src}
}

// Fetch implements cache.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, d cache.Descriptor) (any, error) {
	switch d.Resource {
	case Queues:
		return f.src.Queues(ctx)
	case Items:
		return f.src.Items(ctx, api.ParseItemQuery(d.Params()))
	case Config:
		return f.src.Config(ctx)
	default:
		return nil, fmt.Errorf("unknown resource %q", d.Resource)
	}
}

// QueuesOf returns the queue list held by e, or nil.
func QueuesOf(e cache.Entry) []api.Queue {
	queues, _ := e.Data.([]api.Queue)
	return queues
}

// PageOf returns the item page held by e, or nil.
func PageOf(e cache.Entry) *api.ItemPage {
	page, _ := e.Data.(*api.ItemPage)
	return page
}

// ConfigOf returns the server config held by e, or nil.
func ConfigOf(e cache.Entry) api.BackendConfig {
	cfg, _ := e.Data.(api.BackendConfig)
	return cfg
}

// WithoutItem is an optimistic transform that drops one item from a page.
func WithoutItem(id int64) func(any) any {
	return func(v any) any {
		page, ok := v.(*api.ItemPage)
		if !ok {
			return v
		}
		return page.Without(id)
	}
}

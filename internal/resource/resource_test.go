package resource

import (
	"context"
	"testing"

	"github.com/billie-coop/pqdash/internal/api"
	"github.com/billie-coop/pqdash/internal/cache"
)

type fakeSource struct {
	gotQuery api.ItemQuery
}

func (s *fakeSource) Queues(ctx context.Context) ([]api.Queue, error) {
	return []api.Queue{{Name: "emails", Total: 3}}, nil
}

func (s *fakeSource) Items(ctx context.Context, q api.ItemQuery) (*api.ItemPage, error) {
	s.gotQuery = q
	return &api.ItemPage{Records: []api.Item{{ID: 1}}, Total: 1, Limit: q.Limit, Offset: q.Offset}, nil
}

func (s *fakeSource) Config(ctx context.Context) (api.BackendConfig, error) {
	return api.BackendConfig{"PGHOST": "db"}, nil
}

func TestItemsDescriptor_Normalizes(t *testing.T) {
	a := ItemsDescriptor(api.ItemQuery{Queue: "emails ", OrderBy: "", Limit: 0})
	b := ItemsDescriptor(api.ItemQuery{Queue: "emails", OrderBy: api.DefaultOrder, Limit: api.DefaultLimit})
	if a != b {
		t.Errorf("%v != %v", a, b)
	}
	if c := ItemsDescriptor(api.ItemQuery{Queue: "emails", Offset: 10}); c == b {
		t.Error("different offsets produced equal descriptors")
	}
}

func TestFetcher_Routes(t *testing.T) {
	src := &fakeSource{}
	f := NewFetcher(src)
	ctx := context.Background()

	v, err := f.Fetch(ctx, QueuesDescriptor())
	if err != nil || len(QueuesOf(cache.Entry{Data: v})) != 1 {
		t.Errorf("queues = %v, %v", v, err)
	}

	q := api.ItemQuery{Limit: 20, Offset: 40, Queue: "emails", Search: "bob", ExcludeProcessed: true, OrderBy: api.OrderQueueAsc}
	v, err = f.Fetch(ctx, ItemsDescriptor(q))
	if err != nil || PageOf(cache.Entry{Data: v}) == nil {
		t.Fatalf("items = %v, %v", v, err)
	}
	if src.gotQuery != q {
		t.Errorf("query = %+v, want %+v", src.gotQuery, q)
	}

	v, err = f.Fetch(ctx, ConfigDescriptor())
	if err != nil || ConfigOf(cache.Entry{Data: v})["PGHOST"] != "db" {
		t.Errorf("config = %v, %v", v, err)
	}

	if _, err := f.Fetch(ctx, cache.NewDescriptor("nope", nil)); err == nil {
		t.Error("unknown resource did not fail")
	}
}

func TestWithoutItem(t *testing.T) {
	page := &api.ItemPage{Records: []api.Item{{ID: 1}, {ID: 2}}, Total: 2}
	got := WithoutItem(2)(page).(*api.ItemPage)
	if len(got.Records) != 1 || got.Records[0].ID != 1 {
		t.Errorf("records = %+v", got.Records)
	}
	if WithoutItem(2)(nil) != nil {
		t.Error("transform of empty data is not nil")
	}
}

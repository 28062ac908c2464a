package api

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Item is a single row of the queue table.
type Item struct {
	ID          int64      `json:"id"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	DequeuedAt  *time.Time `json:"dequeued_at"`
	ExpectedAt  *time.Time `json:"expected_at"`
	ScheduledAt *time.Time `json:"schedule_at"`
	QueueName   string     `json:"q_name"`
	Data        Payload    `json:"data"`
}

// Processed reports whether the item has been dequeued.
func (i Item) Processed() bool {
	return i.DequeuedAt != nil
}

// Task returns the task-mode view of the payload.
// ok is false when the payload is not a task document.
func (i Item) Task() (task Task, ok bool) {
	fn, err := i.Data.Query("$.function")
	if err != nil || fn.Kind != KindString {
		return Task{}, false
	}
	task.Function = fn.Str
	if args, err := i.Data.Query("$.args"); err == nil {
		task.Args = args
	}
	if kwargs, err := i.Data.Query("$.kwargs"); err == nil {
		task.Kwargs = kwargs
	}
	task.Retried = i.RetryCount()
	return task, true
}

// RetryCount reads the "retried" counter tasks carry in their payload.
func (i Item) RetryCount() int {
	v, err := i.Data.Query("$.retried")
	if err != nil || v.Kind != KindNumber {
		return 0
	}
	n, err := v.Num.Int64()
	if err != nil {
		return 0
	}
	return int(n)
}

// Task is the shape pq task workers store in an item's payload.
type Task struct {
	Function string
	Args     Payload
	Kwargs   Payload
	Retried  int
}

// ItemPage is one page of items plus the total matching the filter.
type ItemPage struct {
	Records []Item `json:"records"`
	Total   int    `json:"total"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
}

// Without returns a copy of the page with the given item removed.
// Total is left as reported by the server.
func (p *ItemPage) Without(id int64) *ItemPage {
	if p == nil {
		return nil
	}
	out := *p
	out.Records = make([]Item, 0, len(p.Records))
	for _, item := range p.Records {
		if item.ID != id {
			out.Records = append(out.Records, item)
		}
	}
	return &out
}

// Queue summarises one queue's item counts.
type Queue struct {
	Name      string `json:"name"`
	Total     int    `json:"total"`
	Queued    int    `json:"queued"`
	Processed int    `json:"processed"`
}

// BackendConfig is the server's connection settings, without the password.
type BackendConfig map[string]string

// UnmarshalJSON accepts numbers as well as strings (PGPORT is numeric).
func (c *BackendConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(BackendConfig, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = strings.TrimSpace(string(v))
	}
	*c = out
	return nil
}

// OrderBy is a sort order accepted by the items endpoint.
type OrderBy string

const (
	OrderEnqueuedAsc   OrderBy = "enqueuedAt_ASC"
	OrderEnqueuedDesc  OrderBy = "enqueuedAt_DESC"
	OrderDequeuedAsc   OrderBy = "dequeuedAt_ASC"
	OrderDequeuedDesc  OrderBy = "dequeuedAt_DESC"
	OrderExpectedAsc   OrderBy = "expectedAt_ASC"
	OrderExpectedDesc  OrderBy = "expectedAt_DESC"
	OrderScheduledAsc  OrderBy = "scheduledAt_ASC"
	OrderScheduledDesc OrderBy = "scheduledAt_DESC"
	OrderQueueAsc      OrderBy = "queue_ASC"
	OrderQueueDesc     OrderBy = "queue_DESC"
)

// Orders lists every sort order in display order.
var Orders = []OrderBy{
	OrderEnqueuedAsc, OrderEnqueuedDesc,
	OrderDequeuedAsc, OrderDequeuedDesc,
	OrderExpectedAsc, OrderExpectedDesc,
	OrderScheduledAsc, OrderScheduledDesc,
	OrderQueueAsc, OrderQueueDesc,
}

// DefaultOrder matches the server's fallback ordering.
const DefaultOrder = OrderEnqueuedAsc

// ParseOrderBy returns the order for s, or DefaultOrder if s is unknown.
func ParseOrderBy(s string) OrderBy {
	for _, o := range Orders {
		if string(o) == s {
			return o
		}
	}
	return DefaultOrder
}

// Field returns the sort field without its direction.
func (o OrderBy) Field() string {
	field, _, _ := strings.Cut(string(o), "_")
	return field
}

// Descending reports whether the order sorts newest/largest first.
func (o OrderBy) Descending() bool {
	return strings.HasSuffix(string(o), "_DESC")
}

// Toggle flips the direction, keeping the field.
func (o OrderBy) Toggle() OrderBy {
	if o.Descending() {
		return OrderBy(o.Field() + "_ASC")
	}
	return OrderBy(o.Field() + "_DESC")
}

// DefaultLimit is the page size used when none is given.
const DefaultLimit = 10

// ItemQuery holds the filters of the items endpoint.
type ItemQuery struct {
	Limit            int
	Offset           int
	ExcludeProcessed bool
	OrderBy          OrderBy
	Queue            string
	Search           string
}

// Normalize clamps and defaults the query so equal filters encode equally.
func (q ItemQuery) Normalize() ItemQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.OrderBy = ParseOrderBy(string(q.OrderBy))
	q.Queue = strings.TrimSpace(q.Queue)
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Values encodes the normalized query as URL parameters.
func (q ItemQuery) Values() url.Values {
	q = q.Normalize()
	v := url.Values{}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("offset", strconv.Itoa(q.Offset))
	v.Set("exclude_processed", strconv.FormatBool(q.ExcludeProcessed))
	v.Set("order_by", string(q.OrderBy))
	if q.Queue != "" {
		v.Set("queue", q.Queue)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// ParseItemQuery is the inverse of Values.
func ParseItemQuery(v url.Values) ItemQuery {
	limit, _ := strconv.Atoi(v.Get("limit"))
	offset, _ := strconv.Atoi(v.Get("offset"))
	exclude, _ := strconv.ParseBool(v.Get("exclude_processed"))
	return ItemQuery{
		Limit:            limit,
		Offset:           offset,
		ExcludeProcessed: exclude,
		OrderBy:          OrderBy(v.Get("order_by")),
		Queue:            v.Get("queue"),
		Search:           v.Get("search"),
	}.Normalize()
}

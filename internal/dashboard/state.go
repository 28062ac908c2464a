package dashboard

import (
	"github.com/billie-coop/pqdash/internal/api"
	"github.com/billie-coop/pqdash/internal/cache"
	"github.com/billie-coop/pqdash/internal/pagination"
	"github.com/billie-coop/pqdash/internal/resource"
)

// State is the part of the dashboard that decides what to fetch. It holds
// no terminal state, so every filter change can be checked without a
// program running.
//
// Any change that alters the result set (queue, search, processed filter,
// order, page size) moves back to the first page before the next
// descriptor is built.
type State struct {
	Page             pagination.PageState
	Queue            string
	Search           string
	ExcludeProcessed bool
	OrderBy          api.OrderBy
	TaskMode         bool
}

// NewState starts on the first page with the given page size and filters.
func NewState(limit int, excludeProcessed bool, order api.OrderBy) State {
	return State{
		Page:             pagination.NewPageState(limit),
		ExcludeProcessed: excludeProcessed,
		OrderBy:          api.ParseOrderBy(string(order)),
	}
}

// ItemQuery assembles the items request for the current filters.
func (s State) ItemQuery() api.ItemQuery {
	return api.ItemQuery{
		Limit:            s.Page.Limit,
		Offset:           s.Page.Offset,
		ExcludeProcessed: s.ExcludeProcessed,
		OrderBy:          s.OrderBy,
		Queue:            s.Queue,
		Search:           s.Search,
	}.Normalize()
}

// ItemsDescriptor identifies the page currently on screen.
func (s State) ItemsDescriptor() cache.Descriptor {
	return resource.ItemsDescriptor(s.ItemQuery())
}

// Targets lists everything a refresh tick re-fetches.
func (s State) Targets() []cache.Descriptor {
	return []cache.Descriptor{
		resource.QueuesDescriptor(),
		s.ItemsDescriptor(),
		resource.ConfigDescriptor(),
	}
}

// SelectQueue filters items by queue. Selecting the active queue again
// clears the filter.
func (s *State) SelectQueue(name string) {
	if name == s.Queue {
		name = ""
	}
	s.SetQueue(name)
}

// SetQueue sets the queue filter, resetting the offset when it changes.
func (s *State) SetQueue(name string) bool {
	if name == s.Queue {
		return false
	}
	s.Queue = name
	s.Page.Reset()
	return true
}

// SetSearch applies a settled search term.
func (s *State) SetSearch(term string) bool {
	if term == s.Search {
		return false
	}
	s.Search = term
	s.Page.Reset()
	return true
}

// ToggleExcludeProcessed flips the processed filter.
func (s *State) ToggleExcludeProcessed() {
	s.ExcludeProcessed = !s.ExcludeProcessed
	s.Page.Reset()
}

// CycleOrder moves to the next sort field, keeping the direction.
func (s *State) CycleOrder() {
	fields := orderFields()
	field := s.OrderBy.Field()
	next := fields[0]
	for i, f := range fields {
		if f == field {
			next = fields[(i+1)%len(fields)]
			break
		}
	}
	suffix := "_ASC"
	if s.OrderBy.Descending() {
		suffix = "_DESC"
	}
	s.OrderBy = api.ParseOrderBy(next + suffix)
	s.Page.Reset()
}

// ToggleOrderDirection flips ascending and descending.
func (s *State) ToggleOrderDirection() {
	s.OrderBy = s.OrderBy.Toggle()
	s.Page.Reset()
}

// NextLimit cycles the page size.
func (s *State) NextLimit() {
	s.Page.NextLimit()
}

// ToggleTaskMode switches how payloads are shown. It does not change the
// query.
func (s *State) ToggleTaskMode() {
	s.TaskMode = !s.TaskMode
}

func orderFields() []string {
	var fields []string
	seen := make(map[string]bool)
	for _, o := range api.Orders {
		if f := o.Field(); !seen[f] {
			seen[f] = true
			fields = append(fields, f)
		}
	}
	return fields
}

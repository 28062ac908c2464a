// Package pagination computes which page buttons to show for a result set
// and keeps the limit/offset pair the item query is built from.
package pagination

// DefaultWing is how many pages are shown on each side of the current one.
const DefaultWing = 3

// SlotKind distinguishes page numbers from gap markers.
type SlotKind int

const (
	SlotPage SlotKind = iota
	SlotEllipsis
)

// Slot is one element of a pagination bar. Page is 1-based and zero for
// ellipses.
type Slot struct {
	Kind    SlotKind
	Page    int
	Current bool
}

// Pages returns the number of pages needed for total items, at least 1.
func Pages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// Window returns the pagination bar for a result set. currentPage is
// 0-based and is clamped into range, so a stale offset past the end just
// selects the last page.
//
// The first and last pages are always present. Around the current page a
// run of up to 2*wing+1 pages is shown, shifted left when it would hit the
// last page. A gap of exactly one page is shown as that page; longer gaps
// become a single ellipsis.
func Window(total, pageSize, currentPage, wing int) []Slot {
	if wing < 0 {
		wing = DefaultWing
	}
	maxPages := Pages(total, pageSize)
	current := currentPage
	if current < 0 {
		current = 0
	}
	if current > maxPages-1 {
		current = maxPages - 1
	}

	// [start, end) in 0-based page indices, excluding the first and last page.
	start := max(1, current-wing)
	end := min(maxPages-1, start+2*wing+1)
	if end == maxPages-1 {
		if s := end - (2*wing + 1); s < start {
			start = max(1, s)
		}
	}

	slots := make([]Slot, 0, 2*wing+5)
	page := func(i int) {
		slots = append(slots, Slot{Kind: SlotPage, Page: i + 1, Current: i == current})
	}

	page(0)

	switch {
	case start == 2:
		page(1)
	case start > 2:
		slots = append(slots, Slot{Kind: SlotEllipsis})
	}

	for i := start; i < end; i++ {
		page(i)
	}

	switch {
	case end == maxPages-2:
		page(maxPages - 2)
	case end < maxPages-2:
		slots = append(slots, Slot{Kind: SlotEllipsis})
	}

	if maxPages > 1 {
		page(maxPages - 1)
	}

	return slots
}

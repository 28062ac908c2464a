package pagination

// PageSizes are the page sizes the dashboard offers.
var PageSizes = []int{10, 20, 50, 100}

// PageState is the limit/offset pair of the item query.
// Offset is never negative.
type PageState struct {
	Limit  int
	Offset int
}

// NewPageState returns the first page with the given size.
func NewPageState(limit int) PageState {
	if limit <= 0 {
		limit = PageSizes[0]
	}
	return PageState{Limit: limit}
}

// SetLimit changes the page size and goes back to the first page.
// It reports whether anything changed.
func (p *PageState) SetLimit(limit int) bool {
	if limit <= 0 {
		limit = PageSizes[0]
	}
	if limit == p.Limit && p.Offset == 0 {
		return false
	}
	p.Limit = limit
	p.Offset = 0
	return true
}

// NextLimit cycles to the next entry of PageSizes.
func (p *PageState) NextLimit() {
	for i, size := range PageSizes {
		if size == p.Limit {
			p.SetLimit(PageSizes[(i+1)%len(PageSizes)])
			return
		}
	}
	p.SetLimit(PageSizes[0])
}

// Reset goes back to the first page. Call it whenever the filter changes.
func (p *PageState) Reset() {
	p.Offset = 0
}

// CurrentPage returns the 0-based page index.
func (p PageState) CurrentPage() int {
	if p.Limit <= 0 {
		return 0
	}
	return p.Offset / p.Limit
}

// GoTo moves to the 1-based page.
func (p *PageState) GoTo(page int) {
	if page < 1 {
		page = 1
	}
	p.Offset = (page - 1) * p.Limit
}

// Next advances one page if there is one. It reports whether it moved.
func (p *PageState) Next(total int) bool {
	if p.CurrentPage() >= Pages(total, p.Limit)-1 {
		return false
	}
	p.Offset += p.Limit
	return true
}

// Prev goes back one page, stopping at the first.
func (p *PageState) Prev() bool {
	if p.Offset == 0 {
		return false
	}
	p.Offset = max(0, p.Offset-p.Limit)
	return true
}

// Range returns the 1-based first and last item numbers shown on the
// current page, for a "Showing 11 to 20 of 41" summary. Both are zero when
// the page is empty.
func (p PageState) Range(total int) (first, last int) {
	if total <= 0 || p.Offset >= total {
		return 0, 0
	}
	return p.Offset + 1, min(total, p.Offset+p.Limit)
}

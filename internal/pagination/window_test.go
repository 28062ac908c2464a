package pagination

import (
	"fmt"
	"strings"
	"testing"
)

// render turns slots into "1 2 [3] … 9" for readable failures.
func render(slots []Slot) string {
	parts := make([]string, len(slots))
	for i, s := range slots {
		switch {
		case s.Kind == SlotEllipsis:
			parts[i] = "…"
		case s.Current:
			parts[i] = fmt.Sprintf("[%d]", s.Page)
		default:
			parts[i] = fmt.Sprint(s.Page)
		}
	}
	return strings.Join(parts, " ")
}

func TestWindow_Examples(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		pageSize int
		current  int
		want     string
	}{
		{"empty", 0, 10, 0, "[1]"},
		{"single_page", 7, 10, 0, "[1]"},
		{"exact_page", 10, 10, 0, "[1]"},
		{"three_pages", 25, 10, 0, "[1] 2 3"},
		{"three_pages_last", 25, 10, 2, "1 2 [3]"},
		{"start", 200, 10, 0, "[1] 2 3 4 5 6 7 8 … 20"},
		{"gap_of_one_at_start", 200, 10, 5, "1 2 3 4 5 [6] 7 8 9 … 20"},
		{"middle", 200, 10, 10, "1 … 8 9 10 [11] 12 13 14 … 20"},
		{"gap_of_one_at_end", 100, 10, 2, "1 2 [3] 4 5 6 7 8 9 10"},
		{"two_hidden_at_end", 110, 10, 2, "1 2 [3] 4 5 6 7 8 … 11"},
		{"end", 200, 10, 19, "1 … 13 14 15 16 17 18 19 [20]"},
		{"stale_offset", 30, 10, 9, "1 2 [3]"},
		{"negative_page", 30, 10, -4, "[1] 2 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(Window(tt.total, tt.pageSize, tt.current, DefaultWing))
			if got != tt.want {
				t.Errorf("Window(%d, %d, %d) = %q, want %q", tt.total, tt.pageSize, tt.current, got, tt.want)
			}
		})
	}
}

func TestWindow_Invariants(t *testing.T) {
	for pageSize := 1; pageSize <= 12; pageSize++ {
		for total := 0; total <= 240; total++ {
			pages := Pages(total, pageSize)
			for current := -1; current <= pages+1; current++ {
				slots := Window(total, pageSize, current, DefaultWing)
				checkWindow(t, total, pageSize, current, pages, slots)
			}
		}
	}
}

func checkWindow(t *testing.T, total, pageSize, current, pages int, slots []Slot) {
	t.Helper()
	desc := fmt.Sprintf("Window(%d, %d, %d) = %s", total, pageSize, current, render(slots))

	if len(slots) == 0 || slots[0].Kind != SlotPage || slots[0].Page != 1 {
		t.Fatalf("%s: does not start with page 1", desc)
	}
	last := slots[len(slots)-1]
	if last.Kind != SlotPage || last.Page != pages {
		t.Fatalf("%s: does not end with page %d", desc, pages)
	}

	seen := map[int]bool{}
	ellipses := 0
	currentCount := 0
	prev := 0
	for i, s := range slots {
		if s.Kind == SlotEllipsis {
			ellipses++
			if slots[i-1].Kind == SlotEllipsis {
				t.Fatalf("%s: adjacent ellipses", desc)
			}
			// An ellipsis must stand for at least two hidden pages.
			if next := slots[i+1]; next.Page-slots[i-1].Page < 3 {
				t.Fatalf("%s: ellipsis hides fewer than two pages", desc)
			}
			continue
		}
		if seen[s.Page] {
			t.Fatalf("%s: duplicate page %d", desc, s.Page)
		}
		seen[s.Page] = true
		if s.Page <= prev {
			t.Fatalf("%s: pages out of order", desc)
		}
		if i > 0 && slots[i-1].Kind == SlotPage && s.Page != prev+1 {
			t.Fatalf("%s: gap between %d and %d without ellipsis", desc, prev, s.Page)
		}
		prev = s.Page
		if s.Current {
			currentCount++
		}
	}
	if ellipses > 2 {
		t.Fatalf("%s: %d ellipses", desc, ellipses)
	}
	if currentCount != 1 {
		t.Fatalf("%s: %d current pages", desc, currentCount)
	}
	if pageCount := len(slots) - ellipses; pageCount > 2*DefaultWing+5 {
		t.Fatalf("%s: %d page buttons", desc, pageCount)
	}
}

func TestPages(t *testing.T) {
	tests := []struct{ total, size, want int }{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{5, 0, 1},
	}
	for _, tt := range tests {
		if got := Pages(tt.total, tt.size); got != tt.want {
			t.Errorf("Pages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

package query

import (
	"slices"
	"strings"
)

// FilterState is the per-listing user selection. It is a plain value:
// transitions go through [FilterState.Apply].
type FilterState struct {
	Brands      []string `json:"brands,omitempty"`
	PriceRange  string   `json:"price_range,omitempty"`
	Category    string   `json:"category,omitempty"`
	Query       string   `json:"q,omitempty"`
	InStockOnly bool     `json:"in_stock_only,omitempty"`
	SortBy      SortKey  `json:"sort_by"`
	Page        int      `json:"page"`
}

// NewFilterState returns the initial state of a listing.
func NewFilterState() FilterState {
	return FilterState{SortBy: SortFeatured, Page: 1}
}

type Event interface {
	apply(FilterState) FilterState
}

type (
	ToggleBrand    struct{ Brand string }
	SetBrands      struct{ Brands []string }
	SetPriceRange  struct{ Range string }
	SetCategory    struct{ Category string }
	SetQuery       struct{ Query string }
	SetInStockOnly struct{ On bool }
	SetSort        struct{ Key SortKey }
	SetPage        struct{ Page int }
	ClearFilters   struct{}
)

// Apply returns the state after e. Filter changes reset the page to 1,
// a sort change keeps the current page.
func (s FilterState) Apply(e Event) FilterState {
	s.Brands = slices.Clone(s.Brands)
	return e.apply(s)
}

func (e ToggleBrand) apply(s FilterState) FilterState {
	if i := slices.Index(s.Brands, e.Brand); i >= 0 {
		s.Brands = slices.Delete(s.Brands, i, i+1)
	} else {
		s.Brands = append(s.Brands, e.Brand)
	}
	s.Page = 1
	return s
}

func (e SetBrands) apply(s FilterState) FilterState {
	s.Brands = normalizeBrands(e.Brands)
	s.Page = 1
	return s
}

func (e SetPriceRange) apply(s FilterState) FilterState {
	s.PriceRange = strings.TrimSpace(e.Range)
	s.Page = 1
	return s
}

func (e SetCategory) apply(s FilterState) FilterState {
	s.Category = strings.TrimSpace(e.Category)
	s.Page = 1
	return s
}

func (e SetQuery) apply(s FilterState) FilterState {
	s.Query = strings.TrimSpace(e.Query)
	s.Page = 1
	return s
}

func (e SetInStockOnly) apply(s FilterState) FilterState {
	s.InStockOnly = e.On
	s.Page = 1
	return s
}

func (e SetSort) apply(s FilterState) FilterState {
	s.SortBy = ParseSortKey(string(e.Key))
	return s
}

func (e SetPage) apply(s FilterState) FilterState {
	s.Page = max(e.Page, 1)
	return s
}

func (ClearFilters) apply(s FilterState) FilterState {
	return FilterState{SortBy: s.SortBy, Page: 1}
}

// normalizeBrands drops blanks and duplicates keeping first occurrence order.
func normalizeBrands(in []string) []string {
	var out []string
	for _, b := range in {
		b = strings.TrimSpace(b)
		if b == "" || slices.Contains(out, b) {
			continue
		}
		out = append(out, b)
	}
	return out
}

package query

import (
	"cmp"
	"slices"
	"strings"
)

type SortKey string

const (
	SortFeatured  SortKey = "featured"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortRating    SortKey = "rating"
)

// ParseSortKey maps unknown values to [SortFeatured].
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortPriceLow, SortPriceHigh, SortRating:
		return k
	default:
		return SortFeatured
	}
}

// Sort returns a stably ordered copy of items. Ties keep their input order,
// featured keeps the whole input order.
func Sort[T Listing](items []T, key SortKey) []T {
	out := slices.Clone(items)
	if out == nil {
		out = []T{}
	}

	var cmpFn func(a, b T) int
	switch key {
	case SortPriceLow:
		cmpFn = func(a, b T) int {
			return cmp.Compare(a.Facets().Price, b.Facets().Price)
		}
	case SortPriceHigh:
		cmpFn = func(a, b T) int {
			return cmp.Compare(b.Facets().Price, a.Facets().Price)
		}
	case SortRating:
		cmpFn = func(a, b T) int {
			return cmp.Compare(b.Facets().Rating, a.Facets().Rating)
		}
	default:
		return out
	}

	slices.SortStableFunc(out, cmpFn)
	return out
}

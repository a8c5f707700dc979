package query

import "slices"

// Filter returns the items satisfying every active condition of st plus
// every extra predicate. The result is a new slice.
func Filter[T Listing](items []T, st FilterState, extra ...Predicate[T]) []T {
	priceRange, hasRange := ParsePriceRange(st.PriceRange)

	out := make([]T, 0, len(items))
	for _, it := range items {
		f := it.Facets()

		if len(st.Brands) != 0 && !slices.Contains(st.Brands, f.Brand) {
			continue
		}

		if hasRange && !priceRange.Contains(f.Price) {
			continue
		}

		if !matchAll(it, extra) {
			continue
		}

		out = append(out, it)
	}
	return out
}

func matchAll[T any](it T, ps []Predicate[T]) bool {
	for _, p := range ps {
		if p != nil && !p(it) {
			return false
		}
	}
	return true
}

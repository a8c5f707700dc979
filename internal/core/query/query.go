// Package query derives the visible page of a product listing from the full
// collection and the listing's filter, sort and page state.
//
// Every function is pure: inputs are never mutated and equal inputs give
// equal outputs.
package query

// DefaultPageSize is used when a non-positive page size is requested.
const DefaultPageSize = 12

// Facets are the item attributes the pipeline filters and sorts by.
type Facets struct {
	Price  float64
	Brand  string
	Rating float64
}

// A Listing is any item shape the pipeline can work with.
type Listing interface {
	Facets() Facets
}

// A Predicate is an extra, category specific condition. All predicates
// passed to [Filter] are ANDed with the generic brand and price filters.
type Predicate[T any] func(T) bool

// Run applies filter, sort and paginate in that order.
func Run[T Listing](
	items []T, st FilterState, pageSize int, extra ...Predicate[T],
) Page[T] {
	filtered := Filter(items, st, extra...)
	sorted := Sort(filtered, st.SortBy)
	return Paginate(sorted, st.Page, pageSize)
}

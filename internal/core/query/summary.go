package query

import (
	"cmp"
	"slices"
)

type BrandCount struct {
	Brand string
	Count int
}

// Summary is the filter sidebar metadata of a listing.
type Summary struct {
	Brands   []BrandCount
	MinPrice float64
	MaxPrice float64
	Total    int
}

func Summarize[T Listing](items []T) Summary {
	s := Summary{Total: len(items), Brands: []BrandCount{}}
	if len(items) == 0 {
		return s
	}

	counts := make(map[string]int)
	s.MinPrice = items[0].Facets().Price
	s.MaxPrice = s.MinPrice
	for _, it := range items {
		f := it.Facets()
		s.MinPrice = min(s.MinPrice, f.Price)
		s.MaxPrice = max(s.MaxPrice, f.Price)
		if f.Brand != "" {
			counts[f.Brand]++
		}
	}

	for b, n := range counts {
		s.Brands = append(s.Brands, BrandCount{Brand: b, Count: n})
	}
	slices.SortFunc(s.Brands, func(a, b BrandCount) int {
		return cmp.Compare(a.Brand, b.Brand)
	})
	return s
}

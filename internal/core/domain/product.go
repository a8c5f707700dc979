package domain

import "github.com/niksmo/storefront/internal/core/query"

var _ query.Listing = Product{}

type (
	Product struct {
		ProductID     string
		Name          string
		Brand         string
		Category      string
		Subcategory   string
		Description   string
		Price         float64
		OriginalPrice float64
		Discount      int
		Currency      string
		Rating        float64
		InStock       bool
		Image         string
	}

	ProductPage struct {
		Category string
		State    query.FilterState
		Page     query.Page[Product]
		Summary  query.Summary
	}
)

func (p Product) Facets() query.Facets {
	return query.Facets{
		Price:  p.Price,
		Brand:  p.Brand,
		Rating: p.Rating,
	}
}

// Validate reports the first catalog invariant the product breaks.
func (p Product) Validate() error {
	switch {
	case p.ProductID == "":
		return ErrInvalidProduct("empty product id")
	case p.Price < 0:
		return ErrInvalidProduct("negative price")
	case p.Rating < 0 || p.Rating > 5:
		return ErrInvalidProduct("rating out of [0, 5]")
	}
	return nil
}

type ProductVisibility struct {
	ProductID string
	Hidden    bool
}

package httphandler

import (
	"github.com/niksmo/storefront/internal/core/checkout"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/query"
)

type (
	Product struct {
		ProductID     string  `json:"product_id"`
		Name          string  `json:"name"`
		Brand         string  `json:"brand"`
		Category      string  `json:"category"`
		Subcategory   string  `json:"subcategory"`
		Description   string  `json:"description"`
		Price         float64 `json:"price"`
		OriginalPrice float64 `json:"original_price"`
		Discount      int     `json:"discount"`
		Currency      string  `json:"currency"`
		Rating        float64 `json:"rating"`
		InStock       bool    `json:"in_stock"`
		Image         string  `json:"image"`
	}

	BrandCount struct {
		Brand string `json:"brand"`
		Count int    `json:"count"`
	}

	Summary struct {
		Brands   []BrandCount `json:"brands"`
		MinPrice float64      `json:"min_price"`
		MaxPrice float64      `json:"max_price"`
		Total    int          `json:"total"`
	}

	ProductPage struct {
		Category   string            `json:"category,omitempty"`
		Filters    query.FilterState `json:"filters"`
		Items      []Product         `json:"items"`
		Page       int               `json:"page"`
		PageSize   int               `json:"page_size"`
		Total      int               `json:"total"`
		TotalPages int               `json:"total_pages"`
		Start      int               `json:"start"`
		End        int               `json:"end"`
		HasNext    bool              `json:"has_next"`
		HasPrev    bool              `json:"has_prev"`
		Summary    Summary           `json:"summary"`
	}
)

type VisibilityRule struct {
	ProductID string `json:"product_id"`
	Hidden    bool   `json:"hidden"`
}

type (
	AddCartItem struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}

	Cart struct {
		Items []domain.CartItem `json:"items"`
	}
)

type (
	PaymentRequest struct {
		PaymentMethod domain.PaymentMethod `json:"payment_method"`
	}

	Redirect struct {
		To      string `json:"to"`
		AfterMs int64  `json:"after_ms"`
	}

	PaymentResponse struct {
		Checkout domain.CheckoutState `json:"checkout"`
		Order    domain.Order         `json:"order"`
		Degraded bool                 `json:"degraded"`
		Notice   string               `json:"notice,omitempty"`
		Redirect Redirect             `json:"redirect"`
	}

	LocalOrders struct {
		Orders []domain.Order `json:"orders"`
	}
)

type ErrorResponse struct {
	Error    string   `json:"error"`
	Missing  []string `json:"missing,omitempty"`
	LoginURL string   `json:"login_url,omitempty"`
}

const degradedNotice = "Your order was saved locally and will be processed " +
	"once the order service is reachable."

func fromProduct(p domain.Product) Product {
	return Product{
		ProductID:     p.ProductID,
		Name:          p.Name,
		Brand:         p.Brand,
		Category:      p.Category,
		Subcategory:   p.Subcategory,
		Description:   p.Description,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Discount:      p.Discount,
		Currency:      p.Currency,
		Rating:        p.Rating,
		InStock:       p.InStock,
		Image:         p.Image,
	}
}

func (p Product) toDomain() domain.Product {
	return domain.Product{
		ProductID:     p.ProductID,
		Name:          p.Name,
		Brand:         p.Brand,
		Category:      p.Category,
		Subcategory:   p.Subcategory,
		Description:   p.Description,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Discount:      p.Discount,
		Currency:      p.Currency,
		Rating:        p.Rating,
		InStock:       p.InStock,
		Image:         p.Image,
	}
}

func fromProductPage(pp domain.ProductPage) ProductPage {
	items := make([]Product, len(pp.Page.Items))
	for i, p := range pp.Page.Items {
		items[i] = fromProduct(p)
	}

	brands := make([]BrandCount, len(pp.Summary.Brands))
	for i, b := range pp.Summary.Brands {
		brands[i] = BrandCount{Brand: b.Brand, Count: b.Count}
	}

	return ProductPage{
		Category:   pp.Category,
		Filters:    pp.State,
		Items:      items,
		Page:       pp.Page.Page,
		PageSize:   pp.Page.PageSize,
		Total:      pp.Page.Total,
		TotalPages: pp.Page.TotalPages,
		Start:      pp.Page.Start,
		End:        pp.Page.End,
		HasNext:    pp.Page.HasNext(),
		HasPrev:    pp.Page.HasPrev(),
		Summary: Summary{
			Brands:   brands,
			MinPrice: pp.Summary.MinPrice,
			MaxPrice: pp.Summary.MaxPrice,
			Total:    pp.Summary.Total,
		},
	}
}

func fromOutcome(st domain.CheckoutState, o checkout.Outcome) PaymentResponse {
	resp := PaymentResponse{
		Checkout: st,
		Order:    o.Order,
		Degraded: o.Degraded,
		Redirect: Redirect{
			To:      o.Redirect.To,
			AfterMs: o.Redirect.After.Milliseconds(),
		},
	}
	if o.Degraded {
		resp.Notice = degradedNotice
	}
	return resp
}

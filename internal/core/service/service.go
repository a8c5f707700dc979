package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/internal/core/query"
)

type nopVisibility struct{}

func (nopVisibility) IsHidden(string) bool { return false }

// CatalogService serves category listings, search and catalog ingestion.
type CatalogService struct {
	products       port.ProductsStorage
	visibility     port.VisibilityChecker
	visibilityEmit port.VisibilityEmitter
	visibilityProc port.VisibilityProcessor
	pageSize       int
}

type CatalogOpt func(*CatalogService)

// WithVisibility enables hiding products through the visibility stream.
func WithVisibility(
	checker port.VisibilityChecker,
	emitter port.VisibilityEmitter,
	proc port.VisibilityProcessor,
) CatalogOpt {
	return func(s *CatalogService) {
		s.visibility = checker
		s.visibilityEmit = emitter
		s.visibilityProc = proc
	}
}

func NewCatalog(
	products port.ProductsStorage, pageSize int, opts ...CatalogOpt,
) CatalogService {
	s := CatalogService{
		products:   products,
		visibility: nopVisibility{},
		pageSize:   pageSize,
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// Run runs the visibility processor in a separate goroutine.
//
// Blocks current goroutine while the processor is preparing to ready state.
func (s CatalogService) Run(ctx context.Context, stopFn context.CancelFunc) {
	if s.visibilityProc == nil {
		return
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go s.visibilityProc.Run(ctx, stopFn, &wg)
	wg.Wait()
}

func (s CatalogService) Close() {
	if s.visibilityProc != nil {
		s.visibilityProc.Close()
	}
}

// QueryProducts returns the requested page of a category listing. An empty
// category lists the whole catalog, as the search page does.
func (s CatalogService) QueryProducts(
	ctx context.Context, category string, st query.FilterState,
) (domain.ProductPage, error) {
	const op = "CatalogService.QueryProducts"

	if err := ctx.Err(); err != nil {
		return domain.ProductPage{}, fmt.Errorf("%s: %w", op, err)
	}

	products, err := s.products.ListProducts(ctx, category)
	if err != nil {
		return domain.ProductPage{}, fmt.Errorf("%s: %w", op, err)
	}

	visible := query.Filter(products, query.FilterState{}, s.visible)

	page := query.Run(visible, st, s.pageSize, s.predicates(st)...)

	return domain.ProductPage{
		Category: category,
		State:    st,
		Page:     page,
		Summary:  query.Summarize(visible),
	}, nil
}

func (s CatalogService) visible(p domain.Product) bool {
	return !s.visibility.IsHidden(p.ProductID)
}

func (s CatalogService) predicates(
	st query.FilterState,
) (ps []query.Predicate[domain.Product]) {
	if st.Category != "" {
		sub := st.Category
		ps = append(ps, func(p domain.Product) bool {
			return strings.EqualFold(p.Subcategory, sub)
		})
	}

	if st.Query != "" {
		q := strings.ToLower(st.Query)
		ps = append(ps, func(p domain.Product) bool {
			return strings.Contains(strings.ToLower(p.Name), q) ||
				strings.Contains(strings.ToLower(p.Brand), q) ||
				strings.Contains(strings.ToLower(p.Category), q) ||
				strings.Contains(strings.ToLower(p.Description), q)
		})
	}

	if st.InStockOnly {
		ps = append(ps, func(p domain.Product) bool {
			return p.InStock
		})
	}
	return ps
}

func (s CatalogService) GetProduct(
	ctx context.Context, productID string,
) (domain.Product, error) {
	const op = "CatalogService.GetProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.products.ReadProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	if s.visibility.IsHidden(p.ProductID) {
		return domain.Product{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return p, nil
}

func (s CatalogService) StoreProducts(
	ctx context.Context, ps []domain.Product,
) error {
	const op = "CatalogService.StoreProducts"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.products.StoreProducts(ctx, ps); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("products stored", "nProducts", len(ps))
	return nil
}

func (s CatalogService) SetVisibility(
	ctx context.Context, v domain.ProductVisibility,
) error {
	const op = "CatalogService.SetVisibility"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.visibilityEmit == nil {
		return fmt.Errorf("%s: visibility stream: %w", op, domain.ErrUnavailable)
	}

	if v.ProductID == "" {
		return fmt.Errorf("%s: %w", op, domain.ErrInvalidProduct("empty product id"))
	}

	if err := s.visibilityEmit.EmitVisibility(ctx, v); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

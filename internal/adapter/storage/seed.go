package storage

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"gopkg.in/yaml.v3"
)

var _ port.ProductsStorage = (*SeedCatalog)(nil)

type (
	seedFile struct {
		Products []seedProduct `yaml:"products"`
	}

	seedProduct struct {
		ID            string  `yaml:"id"`
		Name          string  `yaml:"name"`
		Brand         string  `yaml:"brand"`
		Category      string  `yaml:"category"`
		Subcategory   string  `yaml:"subcategory"`
		Description   string  `yaml:"description"`
		Price         float64 `yaml:"price"`
		OriginalPrice float64 `yaml:"original_price"`
		Discount      int     `yaml:"discount"`
		Currency      string  `yaml:"currency"`
		Rating        float64 `yaml:"rating"`
		InStock       bool    `yaml:"in_stock"`
		Image         string  `yaml:"image"`
	}
)

// A SeedCatalog is an in-memory catalog loaded from a YAML file. It serves
// deployments without a database.
type SeedCatalog struct {
	mu       sync.RWMutex
	products []domain.Product
}

func NewSeedCatalog(products []domain.Product) *SeedCatalog {
	return &SeedCatalog{products: slices.Clone(products)}
}

func LoadSeedCatalog(path string) (*SeedCatalog, error) {
	const op = "LoadSeedCatalog"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	products := make([]domain.Product, len(f.Products))
	for i, p := range f.Products {
		products[i] = p.toDomain()
		if err := products[i].Validate(); err != nil {
			return nil, fmt.Errorf("%s: product #%d: %w", op, i, err)
		}
	}
	return NewSeedCatalog(products), nil
}

func (c *SeedCatalog) ListProducts(
	ctx context.Context, category string,
) ([]domain.Product, error) {
	const op = "SeedCatalog.ListProducts"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if category == "" {
		return slices.Clone(c.products), nil
	}

	var vs []domain.Product
	for _, p := range c.products {
		if p.Category == category {
			vs = append(vs, p)
		}
	}
	return vs, nil
}

func (c *SeedCatalog) ReadProduct(
	ctx context.Context, productID string,
) (domain.Product, error) {
	const op = "SeedCatalog.ReadProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.index(productID)
	if i < 0 {
		return domain.Product{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return c.products[i], nil
}

// StoreProducts replaces known products in place and appends new ones.
func (c *SeedCatalog) StoreProducts(
	ctx context.Context, vs []domain.Product,
) error {
	const op = "SeedCatalog.StoreProducts"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, v := range vs {
		if i := c.index(v.ProductID); i >= 0 {
			c.products[i] = v
			continue
		}
		c.products = append(c.products, v)
	}
	return nil
}

func (c *SeedCatalog) index(productID string) int {
	return slices.IndexFunc(c.products, func(p domain.Product) bool {
		return p.ProductID == productID
	})
}

func (p seedProduct) toDomain() domain.Product {
	return domain.Product{
		ProductID:     p.ID,
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

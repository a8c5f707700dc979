package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/niksmo/storefront/internal/core/checkout"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var ErrOutOfStock = errors.New("product is out of stock")

type CartService struct {
	carts    port.CartStore
	products port.ProductsReader
}

func NewCart(carts port.CartStore, products port.ProductsReader) CartService {
	return CartService{carts: carts, products: products}
}

func (s CartService) Items(
	ctx context.Context, user *domain.User,
) ([]domain.CartItem, error) {
	const op = "CartService.Items"

	if user == nil {
		return nil, fmt.Errorf("%s: %w", op, checkout.ErrUnauthenticated)
	}

	items, err := s.carts.Items(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// AddItem puts quantity units of the product into the cart. Adding a product
// already in the cart increases its quantity.
func (s CartService) AddItem(
	ctx context.Context, user *domain.User, productID string, quantity int,
) ([]domain.CartItem, error) {
	const op = "CartService.AddItem"

	if user == nil {
		return nil, fmt.Errorf("%s: %w", op, checkout.ErrUnauthenticated)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%s: %w quantity: %d", op, domain.ErrInvalid, quantity)
	}

	p, err := s.products.ReadProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !p.InStock {
		return nil, fmt.Errorf("%s: %w", op, ErrOutOfStock)
	}

	items, err := s.carts.Items(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idx := slices.IndexFunc(items, func(it domain.CartItem) bool {
		return it.ProductID == p.ProductID
	})
	if idx >= 0 {
		items[idx].Quantity += quantity
	} else {
		items = append(items, domain.CartItem{
			ProductID: p.ProductID,
			Name:      p.Name,
			Price:     p.Price,
			Image:     p.Image,
			Quantity:  quantity,
		})
	}

	if err := s.carts.PutItems(ctx, user.ID, items); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func (s CartService) Clear(ctx context.Context, user *domain.User) error {
	const op = "CartService.Clear"

	if user == nil {
		return fmt.Errorf("%s: %w", op, checkout.ErrUnauthenticated)
	}

	if err := s.carts.ClearCart(ctx, user.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

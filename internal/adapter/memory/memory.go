// Package memory holds process local stores for runs without Redis.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var (
	_ port.CheckoutStateStore = (*CheckoutStates)(nil)
	_ port.CartStore          = (*Carts)(nil)
	_ port.OrdersStorage      = (*Orders)(nil)
)

type CheckoutStates struct {
	mu     sync.RWMutex
	states map[string]domain.CheckoutState
}

func NewCheckoutStates() *CheckoutStates {
	return &CheckoutStates{states: make(map[string]domain.CheckoutState)}
}

func (s *CheckoutStates) LoadState(
	ctx context.Context, userID string,
) (domain.CheckoutState, error) {
	const op = "CheckoutStates.LoadState"

	if err := ctx.Err(); err != nil {
		return domain.CheckoutState{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[userID]
	if !ok {
		return domain.CheckoutState{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	st.Cart = slices.Clone(st.Cart)
	return st, nil
}

func (s *CheckoutStates) SaveState(
	ctx context.Context, st domain.CheckoutState,
) error {
	const op = "CheckoutStates.SaveState"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	st.Cart = slices.Clone(st.Cart)

	s.mu.Lock()
	s.states[st.UserID] = st
	s.mu.Unlock()
	return nil
}

func (s *CheckoutStates) DeleteState(ctx context.Context, userID string) error {
	const op = "CheckoutStates.DeleteState"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	delete(s.states, userID)
	s.mu.Unlock()
	return nil
}

type Carts struct {
	mu    sync.RWMutex
	carts map[string][]domain.CartItem
}

func NewCarts() *Carts {
	return &Carts{carts: make(map[string][]domain.CartItem)}
}

func (c *Carts) Items(
	ctx context.Context, userID string,
) ([]domain.CartItem, error) {
	const op = "Carts.Items"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	items := slices.Clone(c.carts[userID])
	if items == nil {
		items = []domain.CartItem{}
	}
	return items, nil
}

func (c *Carts) PutItems(
	ctx context.Context, userID string, items []domain.CartItem,
) error {
	const op = "Carts.PutItems"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	c.carts[userID] = slices.Clone(items)
	c.mu.Unlock()
	return nil
}

func (c *Carts) ClearCart(ctx context.Context, userID string) error {
	const op = "Carts.ClearCart"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	delete(c.carts, userID)
	c.mu.Unlock()
	return nil
}

// Orders keeps created orders when no database is configured.
type Orders struct {
	mu     sync.RWMutex
	orders []domain.Order
}

func NewOrders() *Orders {
	return &Orders{}
}

func (s *Orders) StoreOrder(ctx context.Context, o domain.Order) error {
	const op = "memory.Orders.StoreOrder"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	o.Items = slices.Clone(o.Items)
	s.mu.Lock()
	s.orders = append(s.orders, o)
	s.mu.Unlock()
	return nil
}

// List returns the stored orders oldest first.
func (s *Orders) List() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.orders)
}

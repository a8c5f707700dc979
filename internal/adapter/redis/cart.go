package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.CartStore = Carts{}

type Carts struct {
	rdb cmdable
	ttl time.Duration
}

func NewCarts(rdb cmdable, ttl time.Duration) Carts {
	return Carts{rdb: rdb, ttl: ttl}
}

// Items returns an empty cart for a user without one.
func (c Carts) Items(
	ctx context.Context, userID string,
) ([]domain.CartItem, error) {
	const op = "Carts.Items"

	data, err := c.rdb.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if isNil(err) {
			return []domain.CartItem{}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var items []domain.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func (c Carts) PutItems(
	ctx context.Context, userID string, items []domain.CartItem,
) error {
	const op = "Carts.PutItems"

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.rdb.Set(ctx, cartKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c Carts) ClearCart(ctx context.Context, userID string) error {
	const op = "Carts.ClearCart"

	if err := c.rdb.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func cartKey(userID string) string {
	return keyPrefix + "cart:" + userID
}

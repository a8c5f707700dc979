package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	goredis "github.com/redis/go-redis/v9"
)

var _ port.FallbackOrderStore = FallbackOrders{}

const fallbackOrdersKey = keyPrefix + "fallback_orders"

// FallbackOrders appends each order to the user's list and to a global list
// that operators reconcile against the order API.
type FallbackOrders struct {
	rdb cmdable
}

func NewFallbackOrders(rdb cmdable) FallbackOrders {
	return FallbackOrders{rdb}
}

func (s FallbackOrders) AppendOrder(
	ctx context.Context, userID string, o domain.Order,
) error {
	const op = "FallbackOrders.AppendOrder"

	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// One MULTI for both lists: a failed append writes neither.
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, userFallbackKey(userID), data)
		pipe.RPush(ctx, fallbackOrdersKey, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s FallbackOrders) ListOrders(
	ctx context.Context, userID string,
) ([]domain.Order, error) {
	const op = "FallbackOrders.ListOrders"

	rows, err := s.rdb.LRange(ctx, userFallbackKey(userID), 0, -1).Result()
	if err != nil && !isNil(err) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		var o domain.Order
		if err := json.Unmarshal([]byte(row), &o); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func userFallbackKey(userID string) string {
	return fallbackOrdersKey + ":" + userID
}

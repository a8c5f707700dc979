package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.CheckoutStateStore = CheckoutStates{}

// CheckoutStates stores one JSON encoded checkout per user. Every save
// renews the TTL.
type CheckoutStates struct {
	rdb cmdable
	ttl time.Duration
}

func NewCheckoutStates(rdb cmdable, ttl time.Duration) CheckoutStates {
	return CheckoutStates{rdb: rdb, ttl: ttl}
}

func (s CheckoutStates) LoadState(
	ctx context.Context, userID string,
) (domain.CheckoutState, error) {
	const op = "CheckoutStates.LoadState"

	data, err := s.rdb.Get(ctx, checkoutKey(userID)).Bytes()
	if err != nil {
		if isNil(err) {
			return domain.CheckoutState{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return domain.CheckoutState{}, fmt.Errorf("%s: %w", op, err)
	}

	var st domain.CheckoutState
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.CheckoutState{}, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

func (s CheckoutStates) SaveState(
	ctx context.Context, st domain.CheckoutState,
) error {
	const op = "CheckoutStates.SaveState"

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.rdb.Set(ctx, checkoutKey(st.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s CheckoutStates) DeleteState(ctx context.Context, userID string) error {
	const op = "CheckoutStates.DeleteState"

	if err := s.rdb.Del(ctx, checkoutKey(userID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func checkoutKey(userID string) string {
	return keyPrefix + "checkout:" + userID
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/checkout"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

// inflight is the set of users with a payment submission running in this
// process.
type inflight struct {
	mu    sync.Mutex
	users map[string]struct{}
}

func (f *inflight) acquire(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; ok {
		return false
	}
	f.users[userID] = struct{}{}
	return true
}

func (f *inflight) release(userID string) {
	f.mu.Lock()
	delete(f.users, userID)
	f.mu.Unlock()
}

// CheckoutService keeps one checkout per user between requests.
type CheckoutService struct {
	states   port.CheckoutStateStore
	carts    port.CartStore
	fallback port.FallbackOrderStore
	flow     checkout.Flow
	inflight *inflight
}

func NewCheckout(
	states port.CheckoutStateStore,
	carts port.CartStore,
	fallback port.FallbackOrderStore,
	flow checkout.Flow,
) CheckoutService {
	return CheckoutService{
		states:   states,
		carts:    carts,
		fallback: fallback,
		flow:     flow,
		inflight: &inflight{users: make(map[string]struct{})},
	}
}

// Begin starts a fresh checkout from the current cart. A checkout whose
// payment is being submitted is returned as is, unless its submitting flag
// is stale.
func (s CheckoutService) Begin(
	ctx context.Context, user *domain.User,
) (domain.CheckoutState, error) {
	const op = "CheckoutService.Begin"

	if user == nil {
		return domain.CheckoutState{}, fmt.Errorf("%s: %w", op, checkout.ErrUnauthenticated)
	}

	prev, err := s.states.LoadState(ctx, user.ID)
	switch {
	case err == nil && checkout.SubmitPending(prev, s.flow.Now()):
		return prev, fmt.Errorf("%s: %w", op, checkout.ErrSubmitInProgress)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return domain.CheckoutState{}, fmt.Errorf("%s: %w", op, err)
	}

	cart, err := s.carts.Items(ctx, user.ID)
	if err != nil {
		return domain.CheckoutState{}, fmt.Errorf("%s: %w", op, err)
	}

	st, err := checkout.Begin(uuid.NewString(), user, cart, s.flow.Now())
	if err != nil {
		return domain.CheckoutState{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.states.SaveState(ctx, st); err != nil {
		return domain.CheckoutState{}, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

func (s CheckoutService) State(
	ctx context.Context, user *domain.User,
) (domain.CheckoutState, error) {
	const op = "CheckoutService.State"

	st, err := s.load(ctx, user)
	if err != nil {
		return domain.CheckoutState{}, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

func (s CheckoutService) SubmitShipping(
	ctx context.Context, user *domain.User, info domain.ShippingInfo,
) (domain.CheckoutState, error) {
	const op = "CheckoutService.SubmitShipping"

	st, err := s.load(ctx, user)
	if err != nil {
		return domain.CheckoutState{}, fmt.Errorf("%s: %w", op, err)
	}

	next, err := checkout.SubmitShipping(
		st, info, s.flow.Config().DefaultCountry, s.flow.Now(),
	)
	if err != nil {
		return st, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.states.SaveState(ctx, next); err != nil {
		return st, fmt.Errorf("%s: %w", op, err)
	}
	return next, nil
}

func (s CheckoutService) Back(
	ctx context.Context, user *domain.User,
) (domain.CheckoutState, error) {
	const op = "CheckoutService.Back"

	st, err := s.load(ctx, user)
	if err != nil {
		return domain.CheckoutState{}, fmt.Errorf("%s: %w", op, err)
	}

	next, err := checkout.Back(st, s.flow.Now())
	if err != nil {
		return st, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.states.SaveState(ctx, next); err != nil {
		return st, fmt.Errorf("%s: %w", op, err)
	}
	return next, nil
}

// SubmitPayment places the order. Only one submission per user runs at a
// time; a concurrent one fails with [checkout.ErrSubmitInProgress].
func (s CheckoutService) SubmitPayment(
	ctx context.Context, user *domain.User, method domain.PaymentMethod,
) (domain.CheckoutState, checkout.Outcome, error) {
	const op = "CheckoutService.SubmitPayment"
	log := slog.With("op", op)

	if user == nil {
		return domain.CheckoutState{}, checkout.Outcome{},
			fmt.Errorf("%s: %w", op, checkout.ErrUnauthenticated)
	}

	if !s.inflight.acquire(user.ID) {
		return domain.CheckoutState{}, checkout.Outcome{},
			fmt.Errorf("%s: %w", op, checkout.ErrSubmitInProgress)
	}
	defer s.inflight.release(user.ID)

	st, err := s.load(ctx, user)
	if err != nil {
		return domain.CheckoutState{}, checkout.Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	marked, err := checkout.MarkSubmitting(st, method, s.flow.Now())
	if err != nil {
		return st, checkout.Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.states.SaveState(ctx, marked); err != nil {
		return st, checkout.Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	next, outcome, submitErr := s.flow.SubmitPayment(ctx, marked)

	// The submitting flag must not outlive the request.
	saveCtx := context.WithoutCancel(ctx)
	if err := s.states.SaveState(saveCtx, next); err != nil {
		log.Error("failed to save checkout state", "err", err)
		if submitErr == nil {
			submitErr = err
		}
	}

	if submitErr != nil {
		return next, outcome, fmt.Errorf("%s: %w", op, submitErr)
	}
	return next, outcome, nil
}

// Cancel drops the user's checkout. Cancelling without a checkout is not an
// error; a running submission is.
func (s CheckoutService) Cancel(ctx context.Context, user *domain.User) error {
	const op = "CheckoutService.Cancel"

	if user == nil {
		return fmt.Errorf("%s: %w", op, checkout.ErrUnauthenticated)
	}

	if !s.inflight.acquire(user.ID) {
		return fmt.Errorf("%s: %w", op, checkout.ErrSubmitInProgress)
	}
	defer s.inflight.release(user.ID)

	st, err := s.states.LoadState(ctx, user.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	case checkout.SubmitPending(st, s.flow.Now()):
		return fmt.Errorf("%s: %w", op, checkout.ErrSubmitInProgress)
	}

	if err := s.states.DeleteState(ctx, user.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FallbackOrders lists the orders recorded locally while the order API was
// failing.
func (s CheckoutService) FallbackOrders(
	ctx context.Context, user *domain.User,
) ([]domain.Order, error) {
	const op = "CheckoutService.FallbackOrders"

	if user == nil {
		return nil, fmt.Errorf("%s: %w", op, checkout.ErrUnauthenticated)
	}

	orders, err := s.fallback.ListOrders(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

func (s CheckoutService) load(
	ctx context.Context, user *domain.User,
) (domain.CheckoutState, error) {
	if user == nil {
		return domain.CheckoutState{}, checkout.ErrUnauthenticated
	}
	if err := ctx.Err(); err != nil {
		return domain.CheckoutState{}, err
	}
	return s.states.LoadState(ctx, user.ID)
}

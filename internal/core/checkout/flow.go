package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

const (
	localIDPrefix    = "local_"
	localIDRandLen   = 9
	orderNumberRandN = 1000
	base36Digits     = "0123456789abcdefghijklmnopqrstuvwxyz"
)

type Redirect struct {
	To    string
	After time.Duration
}

// Outcome is the result of a payment submission. Degraded reports that the
// order API failed and the order was only recorded in the fallback store;
// RemoteErr holds that failure.
type Outcome struct {
	Order     domain.Order
	Degraded  bool
	RemoteErr error
	Redirect  Redirect
}

type Config struct {
	DefaultCountry string
	HomePath       string
	RedirectDelay  time.Duration
}

type Flow struct {
	orders   port.OrderCreator
	fallback port.FallbackOrderStore
	cart     port.CartClearer
	cfg      Config
	now      func() time.Time
	randN    func(n int) int
}

type FlowOpt func(*Flow)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) FlowOpt {
	return func(f *Flow) {
		f.now = now
	}
}

// WithRand replaces the random source used for local order ids.
func WithRand(randN func(n int) int) FlowOpt {
	return func(f *Flow) {
		f.randN = randN
	}
}

func NewFlow(
	orders port.OrderCreator,
	fallback port.FallbackOrderStore,
	cart port.CartClearer,
	cfg Config,
	opts ...FlowOpt,
) Flow {
	f := Flow{
		orders:   orders,
		fallback: fallback,
		cart:     cart,
		cfg:      cfg,
		now:      time.Now,
		randN:    rand.IntN,
	}
	for _, o := range opts {
		o(&f)
	}
	return f
}

func (f Flow) Config() Config {
	return f.cfg
}

func (f Flow) Now() time.Time {
	return f.now()
}

// SubmitPayment creates the order for a state prepared by [MarkSubmitting].
//
// A failing order API is recovered by recording the order in the fallback
// store; the outcome is then Degraded. When even that fails the returned
// state stays on payment with the submitting flag cleared and the error
// wraps [ErrSubmitFailed].
func (f Flow) SubmitPayment(
	ctx context.Context, st domain.CheckoutState,
) (domain.CheckoutState, Outcome, error) {
	const op = "Flow.SubmitPayment"
	log := slog.With("op", op, "checkoutID", st.ID)

	if st.Step != domain.StepPayment || !st.Submitting {
		return st, Outcome{}, fmt.Errorf(
			"%s: %w: %s to %s", op, ErrInvalidTransition, st.Step, domain.StepConfirmation,
		)
	}

	failed := st
	failed.Submitting = false

	if err := ctx.Err(); err != nil {
		return failed, Outcome{}, fmt.Errorf("%s: %w: %w", op, ErrSubmitFailed, err)
	}

	order := BuildOrder(st)

	created, remoteErr := f.orders.CreateOrder(ctx, order)
	if remoteErr != nil {
		if err := ctx.Err(); err != nil {
			return failed, Outcome{}, fmt.Errorf("%s: %w: %w", op, ErrSubmitFailed, err)
		}

		log.Warn("order api failed, recording order locally", "err", remoteErr)

		created = f.localOrder(order)
		if err := f.fallback.AppendOrder(ctx, st.UserID, created); err != nil {
			log.Error("failed to record order locally", "err", err)
			return failed, Outcome{}, fmt.Errorf("%s: %w: %w", op, ErrSubmitFailed, err)
		}
	}

	if err := f.cart.ClearCart(ctx, st.UserID); err != nil {
		log.Error("failed to clear cart", "err", err)
	}

	st.Step = domain.StepConfirmation
	st.Submitting = false
	st.Order = &created
	st.Degraded = remoteErr != nil
	st.UpdatedAt = f.now()

	log.Info(
		"order placed",
		"orderNumber", created.OrderNumber,
		"degraded", st.Degraded,
	)

	return st, Outcome{
		Order:     created,
		Degraded:  st.Degraded,
		RemoteErr: remoteErr,
		Redirect: Redirect{
			To:    f.cfg.HomePath,
			After: f.cfg.RedirectDelay,
		},
	}, nil
}

// localOrder stamps an order that only exists in the fallback store.
func (f Flow) localOrder(o domain.Order) domain.Order {
	now := f.now()
	ts := strconv.FormatInt(now.UnixMilli(), 10)

	o.ID = localIDPrefix + ts + "_" + f.randBase36(localIDRandLen)
	o.OrderNumber = domain.NewOrderNumber(now, f.randN(orderNumberRandN))
	o.Status = domain.OrderStatusPending
	o.CreatedAt = now
	return o
}

func (f Flow) randBase36(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(base36Digits[f.randN(len(base36Digits))])
	}
	return b.String()
}

// Package checkout implements the linear shipping, payment, confirmation
// flow. Transitions are functions from state to state; only
// [Flow.SubmitPayment] has side effects.
package checkout

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SubmitStaleAfter bounds how long a persisted submitting flag blocks a new
// submission. A flag older than this is left over from an aborted request.
const SubmitStaleAfter = time.Minute

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid checkout transition")
	ErrSubmitInProgress  = errors.New("order submission in progress")
	ErrSubmitFailed      = errors.New("order submission failed")
)

// A ValidationError keeps the flow on its current step.
type ValidationError struct {
	Step    domain.CheckoutStep
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) != 0 {
		return fmt.Sprintf(
			"%s: required fields missing: %s", e.Step, strings.Join(e.Missing, ", "),
		)
	}
	return fmt.Sprintf("%s: %s", e.Step, e.Reason)
}

// LoginURL is where an unauthenticated user is sent, with a way back.
func LoginURL(loginPath, callback string) string {
	return loginPath + "?callbackUrl=" + url.QueryEscape(callback)
}

// Begin enters the shipping step with a snapshot of the cart.
func Begin(
	id string, user *domain.User, cart []domain.CartItem, now time.Time,
) (domain.CheckoutState, error) {
	if user == nil || user.ID == "" {
		return domain.CheckoutState{}, ErrUnauthenticated
	}
	if len(cart) == 0 {
		return domain.CheckoutState{}, ErrEmptyCart
	}

	return domain.CheckoutState{
		ID:     id,
		UserID: user.ID,
		Step:   domain.StepShipping,
		Shipping: domain.ShippingInfo{
			Email: user.Email,
		},
		Cart:      slices.Clone(cart),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SubmitShipping validates the shipping form and moves to payment.
func SubmitShipping(
	st domain.CheckoutState, info domain.ShippingInfo, defaultCountry string, now time.Time,
) (domain.CheckoutState, error) {
	if st.Step != domain.StepShipping {
		return st, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, st.Step, domain.StepPayment)
	}

	info = trimShipping(info)
	if missing := missingShippingFields(info); len(missing) != 0 {
		return st, &ValidationError{Step: st.Step, Missing: missing}
	}
	if info.Country == "" {
		info.Country = defaultCountry
	}

	st.Shipping = info
	st.Step = domain.StepPayment
	st.UpdatedAt = now
	return st, nil
}

// Back returns from payment to shipping keeping the entered data.
func Back(st domain.CheckoutState, now time.Time) (domain.CheckoutState, error) {
	if st.Step != domain.StepPayment || st.Submitting {
		return st, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, st.Step, domain.StepShipping)
	}
	st.Step = domain.StepShipping
	st.UpdatedAt = now
	return st, nil
}

// SubmitPending reports a submitting flag that is not stale yet.
func SubmitPending(st domain.CheckoutState, now time.Time) bool {
	return st.Submitting && now.Sub(st.UpdatedAt) < SubmitStaleAfter
}

// MarkSubmitting guards a payment submission against running twice.
func MarkSubmitting(
	st domain.CheckoutState, method domain.PaymentMethod, now time.Time,
) (domain.CheckoutState, error) {
	if st.Step != domain.StepPayment {
		return st, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, st.Step, domain.StepConfirmation)
	}
	if SubmitPending(st, now) {
		return st, ErrSubmitInProgress
	}
	if !method.Valid() {
		return st, &ValidationError{
			Step:   st.Step,
			Reason: fmt.Sprintf("unknown payment method %q", method),
		}
	}

	st.PaymentMethod = method
	st.Submitting = true
	st.UpdatedAt = now
	return st, nil
}

// BuildOrder makes the order creation payload. Total equals subtotal.
func BuildOrder(st domain.CheckoutState) domain.Order {
	items := make([]domain.OrderItem, len(st.Cart))
	subtotal := decimal.Zero
	for i, it := range st.Cart {
		items[i] = domain.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.Name,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Image:       it.Image,
		}
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
	}

	var userID *string
	if st.UserID != "" {
		id := st.UserID
		userID = &id
	}

	total := subtotal.InexactFloat64()
	return domain.Order{
		CustomerName:  st.Shipping.FullName(),
		CustomerEmail: st.Shipping.Email,
		CustomerPhone: st.Shipping.Phone,
		ShippingAddress: domain.Address{
			Street:  st.Shipping.Address,
			City:    st.Shipping.City,
			Country: st.Shipping.Country,
		},
		Items:         items,
		Subtotal:      total,
		Total:         total,
		PaymentMethod: st.PaymentMethod,
		PaymentStatus: domain.PaymentStatusPending,
		UserID:        userID,
	}
}

func trimShipping(info domain.ShippingInfo) domain.ShippingInfo {
	for _, f := range []*string{
		&info.FirstName, &info.LastName, &info.Email, &info.Phone,
		&info.Address, &info.City, &info.Country,
	} {
		*f = strings.TrimSpace(*f)
	}
	return info
}

func missingShippingFields(info domain.ShippingInfo) (missing []string) {
	required := []struct {
		name  string
		value string
	}{
		{"first_name", info.FirstName},
		{"last_name", info.LastName},
		{"email", info.Email},
		{"phone", info.Phone},
		{"address", info.Address},
		{"city", info.City},
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	return missing
}

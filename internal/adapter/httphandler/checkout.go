package httphandler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/niksmo/storefront/internal/core/checkout"
	"github.com/niksmo/storefront/internal/core/domain"
)

// POST v1/checkout starts from the cart (201 Created, 401 Unauthorized, 409 Conflict)
// GET v1/checkout (200 OK, 404 Not found)
// POST v1/checkout/shipping JSON shipping form (200 OK, 422 Unprocessable entity)
// DELETE v1/checkout (204 No content, 409 Conflict)
// POST v1/checkout/back (200 OK, 409 Conflict)
// POST v1/checkout/payment JSON {"payment_method": string} (200 OK, 409 Conflict, 503 Service unavailable)
// GET v1/checkout/local-orders (200 OK)

type Checkout interface {
	Begin(ctx context.Context, user *domain.User) (domain.CheckoutState, error)
	State(ctx context.Context, user *domain.User) (domain.CheckoutState, error)
	SubmitShipping(ctx context.Context, user *domain.User, info domain.ShippingInfo) (domain.CheckoutState, error)
	Back(ctx context.Context, user *domain.User) (domain.CheckoutState, error)
	SubmitPayment(ctx context.Context, user *domain.User, method domain.PaymentMethod) (domain.CheckoutState, checkout.Outcome, error)
	Cancel(ctx context.Context, user *domain.User) error
	FallbackOrders(ctx context.Context, user *domain.User) ([]domain.Order, error)
}

type CheckoutHandler struct {
	checkout Checkout
	errs     errorResponder
}

func RegisterCheckout(mux *http.ServeMux, c Checkout, loginPath string) {
	h := CheckoutHandler{checkout: c, errs: errorResponder{loginPath}}
	mux.HandleFunc("POST /v1/checkout", h.PostBegin)
	mux.HandleFunc("GET /v1/checkout", h.GetState)
	mux.HandleFunc("DELETE /v1/checkout", h.DeleteCheckout)
	mux.HandleFunc("POST /v1/checkout/shipping", h.PostShipping)
	mux.HandleFunc("POST /v1/checkout/back", h.PostBack)
	mux.HandleFunc("POST /v1/checkout/payment", h.PostPayment)
	mux.HandleFunc("GET /v1/checkout/local-orders", h.GetLocalOrders)
}

func (h CheckoutHandler) PostBegin(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.PostBegin"
	log := slog.With("op", op)

	st, err := h.checkout.Begin(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.errs.respond(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h CheckoutHandler) GetState(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.GetState"
	log := slog.With("op", op)

	st, err := h.checkout.State(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.errs.respond(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h CheckoutHandler) DeleteCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.DeleteCheckout"
	log := slog.With("op", op)

	if err := h.checkout.Cancel(r.Context(), userFrom(r.Context())); err != nil {
		h.errs.respond(w, r, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h CheckoutHandler) PostShipping(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.PostShipping"
	log := slog.With("op", op)

	var info domain.ShippingInfo
	if err := decodeJSON(r, &info); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON data"})
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	st, err := h.checkout.SubmitShipping(r.Context(), userFrom(r.Context()), info)
	if err != nil {
		h.errs.respond(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h CheckoutHandler) PostBack(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.PostBack"
	log := slog.With("op", op)

	st, err := h.checkout.Back(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.errs.respond(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h CheckoutHandler) PostPayment(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.PostPayment"
	log := slog.With("op", op)

	var req PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON data"})
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	st, outcome, err := h.checkout.SubmitPayment(
		r.Context(), userFrom(r.Context()), req.PaymentMethod,
	)
	if err != nil {
		h.errs.respond(w, r, log, err)
		return
	}

	writeJSON(w, http.StatusOK, fromOutcome(st, outcome))
	log.Info(
		"order placed",
		"orderNumber", outcome.Order.OrderNumber,
		"degraded", outcome.Degraded,
	)
}

func (h CheckoutHandler) GetLocalOrders(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.GetLocalOrders"
	log := slog.With("op", op)

	orders, err := h.checkout.FallbackOrders(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.errs.respond(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusOK, LocalOrders{Orders: nonNil(orders)})
}

package httphandler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/niksmo/storefront/internal/core/domain"
)

// GET v1/cart (200 OK, 401 Unauthorized)
// POST v1/cart/items JSON {"product_id": string, "quantity": int} (200 OK, 409 Conflict)
// DELETE v1/cart (204 No content)

type CartKeeper interface {
	Items(ctx context.Context, user *domain.User) ([]domain.CartItem, error)
	AddItem(ctx context.Context, user *domain.User, productID string, qty int) ([]domain.CartItem, error)
	Clear(ctx context.Context, user *domain.User) error
}

type CartHandler struct {
	cart CartKeeper
	errs errorResponder
}

func RegisterCart(mux *http.ServeMux, cart CartKeeper, loginPath string) {
	h := CartHandler{cart: cart, errs: errorResponder{loginPath}}
	mux.HandleFunc("GET /v1/cart", h.GetCart)
	mux.HandleFunc("POST /v1/cart/items", h.PostItem)
	mux.HandleFunc("DELETE /v1/cart", h.DeleteCart)
}

func (h CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.GetCart"
	log := slog.With("op", op)

	items, err := h.cart.Items(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.errs.respond(w, r, log, err)
		return
	}

	writeJSON(w, http.StatusOK, Cart{Items: nonNil(items)})
}

func (h CartHandler) PostItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PostItem"
	log := slog.With("op", op)

	var req AddCartItem
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON data"})
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	items, err := h.cart.AddItem(
		r.Context(), userFrom(r.Context()), req.ProductID, req.Quantity,
	)
	if err != nil {
		h.errs.respond(w, r, log, err)
		return
	}

	writeJSON(w, http.StatusOK, Cart{Items: nonNil(items)})
}

func (h CartHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.DeleteCart"
	log := slog.With("op", op)

	if err := h.cart.Clear(r.Context(), userFrom(r.Context())); err != nil {
		h.errs.respond(w, r, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

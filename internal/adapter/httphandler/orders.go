package httphandler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/niksmo/storefront/internal/core/domain"
)

// POST v1/orders JSON order (201 Created, 400 Bad request)

type OrderCreator interface {
	CreateOrder(context.Context, domain.Order) (domain.Order, error)
}

type OrdersHandler struct {
	orders OrderCreator
	errs   errorResponder
}

func RegisterOrders(mux *http.ServeMux, orders OrderCreator) {
	h := OrdersHandler{orders: orders}
	mux.HandleFunc("POST /v1/orders", h.PostOrder)
}

func (h OrdersHandler) PostOrder(w http.ResponseWriter, r *http.Request) {
	const op = "OrdersHandler.PostOrder"
	log := slog.With("op", op)

	var o domain.Order
	if err := decodeJSON(r, &o); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON data"})
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	created, err := h.orders.CreateOrder(r.Context(), o)
	if err != nil {
		h.errs.respond(w, r, log, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
	log.Info("order created", "orderNumber", created.OrderNumber)
}

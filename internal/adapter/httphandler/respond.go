package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/niksmo/storefront/internal/core/checkout"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/service"
)

const maxBodySize = 1 << 20

var errEmptyBody = errors.New("empty request body")

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errEmptyBody
	}
	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response body", "err", err)
	}
}

// errorResponder maps core errors to HTTP statuses. Unauthenticated
// requests get the login URL with a way back to the current page.
type errorResponder struct {
	loginPath string
}

func (e errorResponder) respond(
	w http.ResponseWriter, r *http.Request, log *slog.Logger, err error,
) {
	var verr *checkout.ValidationError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   verr.Error(),
			Missing: verr.Missing,
		})
	case errors.Is(err, checkout.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:    "authentication required",
			LoginURL: checkout.LoginURL(e.loginPath, r.URL.RequestURI()),
		})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, checkout.ErrSubmitInProgress),
		errors.Is(err, service.ErrOutOfStock):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: conflictMessage(err)})
	case errors.Is(err, checkout.ErrSubmitFailed),
		errors.Is(err, domain.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		log.Error("dependency failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: "service unavailable, please try again",
		})
	default:
		log.Error("unexpected error", "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal error",
		})
	}
}

func conflictMessage(err error) string {
	for _, known := range []error{
		checkout.ErrEmptyCart,
		checkout.ErrSubmitInProgress,
		service.ErrOutOfStock,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "checkout step is not available"
}

package httphandler

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/niksmo/storefront/internal/core/domain"
)

const (
	headerUserID    = "X-User-ID"
	headerUserEmail = "X-User-Email"
	headerUserName  = "X-User-Name"
)

func AllowJSON(next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			http.Error(w, "invalid media type", http.StatusUnsupportedMediaType)
			return
		}

		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hf)
}

type sessionKey struct{}

// WithSession reads the user the auth gateway put into the request headers.
// Requests without a user id are anonymous.
func WithSession(next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerUserID))
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		user := &domain.User{
			ID:    id,
			Email: strings.TrimSpace(r.Header.Get(headerUserEmail)),
			Name:  strings.TrimSpace(r.Header.Get(headerUserName)),
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(hf)
}

// userFrom returns nil for anonymous requests.
func userFrom(ctx context.Context) *domain.User {
	user, _ := ctx.Value(sessionKey{}).(*domain.User)
	return user
}

func WithSecurityHeaders(next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hf)
}

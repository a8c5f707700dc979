package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

type HTTPServer struct {
	httpServer *http.Server
}

// NewHTTPServer bounds every request by timeout. It must exceed the order
// API timeout, otherwise a slow payment submission never reaches the fallback.
func NewHTTPServer(addr string, handler http.Handler, timeout time.Duration) HTTPServer {
	handler = http.TimeoutHandler(handler, timeout, "unavailable")
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	return HTTPServer{s}
}

func (s HTTPServer) Run(stopFn context.CancelFunc) {
	const op = "HTTPServer.Run"
	log := slog.With("op", op)

	log.Info("http server is listening", "addr", s.httpServer.Addr)

	defer stopFn()
	err := s.httpServer.ListenAndServe()
	if err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		log.Error("unexpected server shutdown", "err", err)
	}
}

func (s HTTPServer) Close(ctx context.Context) {
	const op = "HTTPServer.Close"
	log := slog.With("op", op)

	log.Info("closing http server...")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		log.Error("failed to shutdown gracefully", "err", err)
	}
	log.Info("http server is closed")
}

// Router wires the handlers behind the common middleware.
type Router struct {
	Catalog   Catalog
	Cart      CartKeeper
	Checkout  Checkout
	Orders    OrderCreator
	LoginPath string
}

func (rt Router) Handler() http.Handler {
	mux := http.NewServeMux()
	RegisterProducts(mux, rt.Catalog)
	RegisterCart(mux, rt.Cart, rt.LoginPath)
	RegisterCheckout(mux, rt.Checkout, rt.LoginPath)
	if rt.Orders != nil {
		RegisterOrders(mux, rt.Orders)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return WithSecurityHeaders(AllowJSON(WithSession(mux)))
}

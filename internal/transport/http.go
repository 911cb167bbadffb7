package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mohammadhprp/windowlimit/internal/handler"
	"go.uber.org/zap"
)

// HTTPServer implements the Server interface for HTTP transport
type HTTPServer struct {
	server  *http.Server
	router  *mux.Router
	address string
	logger  *zap.Logger
	guard   func(http.Handler) http.Handler

	healthCheck *handler.HealthCheckHandler
	rateLimit   *handler.RateLimitHandler
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(cfg ServerConfig) *HTTPServer {
	router := mux.NewRouter()

	hs := &HTTPServer{
		address:     cfg.Address,
		logger:      cfg.Logger,
		router:      router,
		guard:       cfg.Guard,
		healthCheck: handler.NewHealthCheckHandler(cfg.Health),
		rateLimit:   handler.NewRateLimitHandler(cfg.RateLimit, cfg.Logger),
		server: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}

	hs.registerRoutes()
	return hs
}

// registerRoutes registers all HTTP routes
func (hs *HTTPServer) registerRoutes() {
	hs.router.HandleFunc("/health", hs.healthCheck.HealthCheck()).Methods(http.MethodGet)

	// Rate limit routes. They stay on the root router so a wrong method on a
	// known path answers 405.
	hs.router.Handle("/limits", hs.guarded(hs.rateLimit.List())).Methods(http.MethodGet)
	hs.router.Handle("/limits/{namespace}/check", hs.guarded(hs.rateLimit.Check())).Methods(http.MethodPost)
	hs.router.Handle("/limits/{namespace}/current/{id}", hs.guarded(hs.rateLimit.Current())).Methods(http.MethodGet)
	hs.router.Handle("/limits/{namespace}/reset/{id}", hs.guarded(hs.rateLimit.Reset())).Methods(http.MethodDelete)
	hs.router.Handle("/limits/{namespace}/quota", hs.guarded(hs.rateLimit.UpdateQuota())).Methods(http.MethodPut)
}

// guarded wraps h with the guard middleware when one is configured
func (hs *HTTPServer) guarded(h http.HandlerFunc) http.Handler {
	if hs.guard == nil {
		return h
	}
	return hs.guard(h)
}

// Handler returns the root handler, for embedding and tests
func (hs *HTTPServer) Handler() http.Handler {
	return hs.router
}

// Start starts the HTTP server
func (hs *HTTPServer) Start(ctx context.Context) error {
	hs.logger.Info("Starting HTTP server", zap.String("address", hs.address))

	go func() {
		if err := hs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			hs.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (hs *HTTPServer) Stop(ctx context.Context) error {
	hs.logger.Info("Stopping HTTP server")
	return hs.server.Shutdown(ctx)
}

// Addr returns the address the HTTP server is listening on
func (hs *HTTPServer) Addr() string {
	return hs.address
}

package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/mohammadhprp/windowlimit/internal/service"
	"go.uber.org/zap"
)

// Server defines the interface for different transport implementations (HTTP, gRPC, etc.)
type Server interface {
	// Start starts the transport server
	Start(ctx context.Context) error

	// Stop gracefully stops the transport server
	Stop(ctx context.Context) error

	// Addr returns the address the server is listening on
	Addr() string
}

// ServerConfig contains common configuration for all transport servers
type ServerConfig struct {
	Address      string                    // Address to listen on (e.g., "localhost:8080" or ":50051")
	RateLimit    *service.RateLimitService // Shared limiter registry
	Health       *service.HealthService    // Store health check
	Logger       *zap.Logger               // Shared logger
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Guard, when set, wraps every HTTP route except /health.
	Guard func(http.Handler) http.Handler
}

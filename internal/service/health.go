package service

import (
	"context"
	"time"

	"github.com/mohammadhprp/windowlimit/internal/clock"
	"github.com/mohammadhprp/windowlimit/internal/storage"
	"go.uber.org/zap"
)

// HealthStatus is the outcome of a health check.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"time"`
	Error     string `json:"error,omitempty"`
}

// Healthy reports whether the check succeeded.
func (h HealthStatus) Healthy() bool {
	return h.Status == HealthStatusHealthy
}

// HealthService reports whether the counter store is reachable
type HealthService struct {
	store  storage.Store
	clock  clock.Clock
	logger *zap.Logger
}

// NewHealthService creates a new health service
func NewHealthService(store storage.Store, logger *zap.Logger) *HealthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthService{
		store:  store,
		clock:  clock.NewRealClock(),
		logger: logger,
	}
}

// Check pings the store and reports the result
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    HealthStatusHealthy,
		Timestamp: s.clock.Now().UTC().Format(time.RFC3339),
	}

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("counter store ping failed", zap.Error(err))
		status.Status = HealthStatusUnhealthy
		status.Error = err.Error()
	}

	return status
}

// Ping verifies connectivity with the underlying store
func (s *HealthService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

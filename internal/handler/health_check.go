package handler

import (
	"context"
	"net/http"

	"github.com/mohammadhprp/windowlimit/internal/service"
)

type HealthCheckHandler struct {
	health *service.HealthService
}

func NewHealthCheckHandler(health *service.HealthService) *HealthCheckHandler {
	return &HealthCheckHandler{
		health: health,
	}
}

// HealthCheck returns a health check handler
func (h *HealthCheckHandler) HealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.health.Check(r.Context())

		code := http.StatusOK
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, status)
	}
}

// Ping verifies connectivity with the underlying store for non-HTTP health checks.
func (h *HealthCheckHandler) Ping(ctx context.Context) error {
	return h.health.Ping(ctx)
}

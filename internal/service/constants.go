package service

import "errors"

// Health status constants
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// QuotaKeyPrefix prefixes persisted quota overrides in the shared store.
const QuotaKeyPrefix = "rate-limiter:quota:"

// Validation error messages
const (
	ErrNamespaceRequired = "namespace is required"
	ErrIDRequired        = "id is required"
)

// Custom error types
var (
	ErrUnknownNamespace = errors.New("unknown limiter namespace")
	ErrNamespaceExists  = errors.New("limiter namespace already registered")
	ErrInvalidRequest   = errors.New("invalid request")
)

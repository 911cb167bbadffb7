package limiter

import "errors"

// Validation error messages
const (
	ErrThresholdNegative  = "threshold must be >= 0, got %v"
	ErrIntervalTooShort   = "interval must be >= 1 second, got %v"
	ErrIntervalTooLong    = "interval of %v seconds overflows a duration"
	ErrParameterNotFinite = "%s must be a finite number, got %v"
	ErrUnsupportedSource  = "%s: unsupported source type %T"
	ErrNilProducer        = "%s producer is nil"
)

var (
	// ErrInvalidParameter reports a threshold or interval outside its domain.
	// For static values it surfaces at construction, for dynamic producers on
	// the check that resolved the bad value.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnknownStrategy reports a strategy name NewLimiter does not know.
	ErrUnknownStrategy = errors.New("unknown counting strategy")
)

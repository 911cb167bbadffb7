package limiter

import (
	"fmt"

	"github.com/mohammadhprp/windowlimit/internal/storage"
)

// Strategy names a counting algorithm.
type Strategy string

// Counting strategies
const (
	StrategyFixedWindow   Strategy = "fixed_window"
	StrategySlidingWindow Strategy = "sliding_window"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case StrategyFixedWindow, StrategySlidingWindow:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// NewFixedWindowLimiter returns a RateLimiter backed by a FixedWindowCounter.
// It is the cheaper choice but may admit up to twice the threshold around a
// window boundary.
func NewFixedWindowLimiter(threshold, interval Param, store storage.Store, opts ...Option) (*RateLimiter, error) {
	o := buildOptions(opts)
	return newRateLimiter(threshold, interval, NewFixedWindowCounter(store, o.logger), o)
}

// NewSlidingWindowLimiter returns a RateLimiter backed by a SlidingWindowCounter.
// Limits are smooth and CurrentCount is an exact trailing-window figure, at a
// higher cost per event.
func NewSlidingWindowLimiter(threshold, interval Param, store storage.Store, opts ...Option) (*RateLimiter, error) {
	o := buildOptions(opts)
	return newRateLimiter(threshold, interval, NewSlidingWindowCounter(store, o.clock, o.logger), o)
}

// NewLimiter builds the limiter for strategy.
func NewLimiter(strategy Strategy, threshold, interval Param, store storage.Store, opts ...Option) (*RateLimiter, error) {
	switch strategy {
	case StrategyFixedWindow:
		return NewFixedWindowLimiter(threshold, interval, store, opts...)
	case StrategySlidingWindow:
		return NewSlidingWindowLimiter(threshold, interval, store, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// Package limiter decides whether a caller may perform another operation within
// a time window, counting events in a store shared by every process that
// enforces the same limit.
//
// A RateLimiter combines three things bound at construction: a Resolver for
// the threshold and interval, a namespace, and one Counter strategy. Each check
// records an event, reads back the count for the caller's window and compares
// it against the threshold:
//
//	rl, err := limiter.NewSlidingWindowLimiter(limiter.Static(100), limiter.Static(60), store)
//	exceeded, err := rl.IsExceeded(ctx, userID)
//
// Two strategies exist side by side. FixedWindowCounter is cheap but admits up
// to twice the threshold around a window boundary; SlidingWindowCounter counts
// exactly over a trailing window at a higher storage and CPU cost.
//
// A rejected check still consumes quota: the event is recorded before the
// comparison whatever its outcome.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohammadhprp/windowlimit/internal/clock"
	"go.uber.org/zap"
)

const (
	// KeyPrefix starts every storage key written by a RateLimiter.
	KeyPrefix = "rate-limiter:"

	// DefaultNamespace is used when no namespace is given.
	DefaultNamespace = "default"
)

// Decision is the outcome of a single check.
type Decision struct {
	Exceeded  bool
	Count     int64
	Threshold int64
	Interval  time.Duration
}

// Remaining returns how many more events fit in the current window.
func (d Decision) Remaining() int64 {
	if d.Count >= d.Threshold {
		return 0
	}
	return d.Threshold - d.Count
}

type options struct {
	namespace string
	logger    *zap.Logger
	clock     clock.Clock
}

// Option configures a RateLimiter.
type Option func(*options)

// WithNamespace partitions the store so limiters with different namespaces
// never share counts. An empty namespace keeps DefaultNamespace.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		if namespace != "" {
			o.namespace = namespace
		}
	}
}

// WithLogger sets the logger used by the limiter and its counter.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the clock the sliding window timestamps events with.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		namespace: DefaultNamespace,
		logger:    zap.NewNop(),
		clock:     clock.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RateLimiter is the admission façade over one Counter.
type RateLimiter struct {
	resolver  *Resolver
	namespace string
	counter   Counter
	logger    *zap.Logger
}

// New creates a RateLimiter over an arbitrary Counter. Static parameters are
// validated immediately and fail with ErrInvalidParameter.
func New(threshold, interval Param, counter Counter, opts ...Option) (*RateLimiter, error) {
	return newRateLimiter(threshold, interval, counter, buildOptions(opts))
}

func newRateLimiter(threshold, interval Param, counter Counter, o options) (*RateLimiter, error) {
	if counter == nil {
		return nil, errors.New("counter is required")
	}

	resolver, err := NewResolver(threshold, interval)
	if err != nil {
		return nil, err
	}

	return &RateLimiter{
		resolver:  resolver,
		namespace: o.namespace,
		counter:   counter,
		logger:    o.logger.With(zap.String("namespace", o.namespace)),
	}, nil
}

// Namespace returns the namespace the limiter writes under.
func (l *RateLimiter) Namespace() string {
	return l.namespace
}

// Key returns the storage key for id.
func (l *RateLimiter) Key(id any) string {
	return KeyPrefix + l.namespace + "{" + fmt.Sprint(id) + "}"
}

// IsExceeded records an event for id and reports whether the count for the
// current window has reached the threshold.
func (l *RateLimiter) IsExceeded(ctx context.Context, id any) (bool, error) {
	d, err := l.Check(ctx, id)
	if err != nil {
		return false, err
	}
	return d.Exceeded, nil
}

// Check is IsExceeded returning the full Decision.
func (l *RateLimiter) Check(ctx context.Context, id any) (Decision, error) {
	threshold, err := l.resolver.Threshold()
	if err != nil {
		l.logger.Warn("threshold resolution failed", zap.Error(err))
		return Decision{}, err
	}
	interval, err := l.resolver.Interval()
	if err != nil {
		l.logger.Warn("interval resolution failed", zap.Error(err))
		return Decision{}, err
	}

	count, err := l.counter.RecordAndCount(ctx, l.Key(id), interval)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Exceeded:  count >= threshold,
		Count:     count,
		Threshold: threshold,
		Interval:  interval,
	}, nil
}

// CurrentCount returns the number of events recorded for id in the current
// window without recording one.
func (l *RateLimiter) CurrentCount(ctx context.Context, id any) (int64, error) {
	interval, err := l.resolver.Interval()
	if err != nil {
		l.logger.Warn("interval resolution failed", zap.Error(err))
		return 0, err
	}
	return l.counter.PeekCount(ctx, l.Key(id), interval)
}

// Reset deletes all recorded events for id.
func (l *RateLimiter) Reset(ctx context.Context, id any) error {
	return l.counter.Clear(ctx, l.Key(id))
}

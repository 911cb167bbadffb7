package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mohammadhprp/windowlimit/internal/clock"
	"github.com/mohammadhprp/windowlimit/internal/events"
	"github.com/mohammadhprp/windowlimit/internal/limiter"
	"github.com/mohammadhprp/windowlimit/internal/storage"
	"go.uber.org/zap"
)

// LimiterConfig describes one named limiter
type LimiterConfig struct {
	Namespace string  `json:"namespace"`
	Strategy  string  `json:"strategy"`         // fixed_window, sliding_window
	Threshold float64 `json:"threshold"`        // max events per interval
	Interval  float64 `json:"interval_seconds"` // window length in seconds
}

// CheckResult contains the outcome of a check request
type CheckResult struct {
	Namespace  string
	ID         string
	Exceeded   bool
	Count      int64
	Threshold  int64
	Remaining  int64
	Interval   time.Duration
	RetryAfter time.Duration
}

// LimiterStatus describes a registered limiter and its current quota
type LimiterStatus struct {
	Namespace string  `json:"namespace"`
	Strategy  string  `json:"strategy"`
	Threshold float64 `json:"threshold"`
	Interval  float64 `json:"interval_seconds"`
}

// EventPublisher receives rejection events
type EventPublisher interface {
	PublishLimitExceeded(event *events.LimitExceededEvent) error
}

type registeredLimiter struct {
	limiter  *limiter.RateLimiter
	quota    *Quota
	strategy limiter.Strategy
}

// RateLimitService keeps one limiter per namespace over a shared store
type RateLimitService struct {
	store     storage.Store
	quotas    QuotaStore
	publisher EventPublisher
	clock     clock.Clock

	mu       sync.RWMutex
	limiters map[string]*registeredLimiter

	Logger *zap.Logger
}

// Option configures a RateLimitService
type Option func(*RateLimitService)

// WithQuotaStore persists quota overrides in qs
func WithQuotaStore(qs QuotaStore) Option {
	return func(s *RateLimitService) {
		s.quotas = qs
	}
}

// WithPublisher publishes an event for every rejected check
func WithPublisher(p EventPublisher) Option {
	return func(s *RateLimitService) {
		s.publisher = p
	}
}

// WithClock sets the clock used by limiters and event timestamps
func WithClock(c clock.Clock) Option {
	return func(s *RateLimitService) {
		s.clock = c
	}
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(store storage.Store, logger *zap.Logger, opts ...Option) *RateLimitService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &RateLimitService{
		store:    store,
		quotas:   NewMemoryQuotaStore(),
		clock:    clock.NewRealClock(),
		limiters: make(map[string]*registeredLimiter),
		Logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ValidateQuota checks threshold and interval the way a limiter would
func ValidateQuota(threshold, interval float64) error {
	_, err := limiter.NewResolver(limiter.Static(threshold), limiter.Static(interval))
	return err
}

// Register creates the limiter for cfg.Namespace. A persisted quota override
// takes precedence over the configured values.
func (s *RateLimitService) Register(ctx context.Context, cfg LimiterConfig) error {
	if cfg.Namespace == "" {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, ErrNamespaceRequired)
	}

	strategy, err := limiter.ParseStrategy(cfg.Strategy)
	if err != nil {
		return err
	}

	threshold, interval := cfg.Threshold, cfg.Interval
	if saved, ok, err := s.quotas.Load(ctx, cfg.Namespace); err != nil {
		s.Logger.Warn("failed to load quota override",
			zap.String("namespace", cfg.Namespace),
			zap.Error(err),
		)
	} else if ok {
		if err := ValidateQuota(saved.Threshold, saved.Interval); err != nil {
			s.Logger.Warn("ignoring invalid quota override",
				zap.String("namespace", cfg.Namespace),
				zap.Error(err),
			)
		} else {
			threshold, interval = saved.Threshold, saved.Interval
		}
	}

	if err := ValidateQuota(threshold, interval); err != nil {
		return err
	}

	quota := NewQuota(threshold, interval)
	lim, err := limiter.NewLimiter(
		strategy,
		limiter.Dynamic(quota.Threshold),
		limiter.Dynamic(quota.Interval),
		s.store,
		limiter.WithNamespace(cfg.Namespace),
		limiter.WithLogger(s.Logger),
		limiter.WithClock(s.clock),
	)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.limiters[cfg.Namespace]; exists {
		return fmt.Errorf("%w: %s", ErrNamespaceExists, cfg.Namespace)
	}
	s.limiters[cfg.Namespace] = &registeredLimiter{
		limiter:  lim,
		quota:    quota,
		strategy: strategy,
	}

	s.Logger.Info("limiter registered",
		zap.String("namespace", cfg.Namespace),
		zap.String("strategy", string(strategy)),
		zap.Float64("threshold", threshold),
		zap.Float64("interval_seconds", interval),
	)

	return nil
}

func (s *RateLimitService) lookup(namespace string) (*registeredLimiter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.limiters[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNamespace, namespace)
	}
	return entry, nil
}

// Limiter returns the limiter registered for namespace
func (s *RateLimitService) Limiter(namespace string) (*limiter.RateLimiter, error) {
	entry, err := s.lookup(namespace)
	if err != nil {
		return nil, err
	}
	return entry.limiter, nil
}

// Namespaces returns the registered namespaces in sorted order
func (s *RateLimitService) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.limiters))
	for name := range s.limiters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status returns the strategy and current quota of a namespace
func (s *RateLimitService) Status(namespace string) (*LimiterStatus, error) {
	entry, err := s.lookup(namespace)
	if err != nil {
		return nil, err
	}

	threshold, interval := entry.quota.Values()
	return &LimiterStatus{
		Namespace: namespace,
		Strategy:  string(entry.strategy),
		Threshold: threshold,
		Interval:  interval,
	}, nil
}

// UpdateQuota persists a new quota for namespace and applies it to the next check
func (s *RateLimitService) UpdateQuota(ctx context.Context, namespace string, threshold, interval float64) error {
	entry, err := s.lookup(namespace)
	if err != nil {
		return err
	}

	if err := ValidateQuota(threshold, interval); err != nil {
		return err
	}

	settings := QuotaSettings{
		Threshold: threshold,
		Interval:  interval,
		UpdatedAt: s.clock.Now().Unix(),
	}
	if err := s.quotas.Save(ctx, namespace, settings); err != nil {
		return fmt.Errorf("failed to save quota: %w", err)
	}

	entry.quota.Set(threshold, interval)

	s.Logger.Info("quota updated",
		zap.String("namespace", namespace),
		zap.Float64("threshold", threshold),
		zap.Float64("interval_seconds", interval),
	)

	return nil
}

// Check records an event for id in namespace and reports whether it exceeded
// the limit
func (s *RateLimitService) Check(ctx context.Context, namespace, id string) (*CheckResult, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, ErrIDRequired)
	}

	entry, err := s.lookup(namespace)
	if err != nil {
		return nil, err
	}

	decision, err := entry.limiter.Check(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{
		Namespace: namespace,
		ID:        id,
		Exceeded:  decision.Exceeded,
		Count:     decision.Count,
		Threshold: decision.Threshold,
		Remaining: decision.Remaining(),
		Interval:  decision.Interval,
	}

	if decision.Exceeded {
		s.Logger.Debug("limit exceeded",
			zap.String("namespace", namespace),
			zap.String("id", id),
			zap.Int64("count", decision.Count),
			zap.Int64("threshold", decision.Threshold),
		)
		// Both strategies free capacity within one interval of the rejection.
		result.RetryAfter = decision.Interval
		s.publishExceeded(result)
	}

	return result, nil
}

func (s *RateLimitService) publishExceeded(result *CheckResult) {
	if s.publisher == nil {
		return
	}

	event := &events.LimitExceededEvent{
		Namespace:       result.Namespace,
		ID:              result.ID,
		Count:           result.Count,
		Threshold:       result.Threshold,
		IntervalSeconds: int64(result.Interval / time.Second),
		OccurredAt:      s.clock.Now().UTC(),
	}
	if err := s.publisher.PublishLimitExceeded(event); err != nil {
		s.Logger.Warn("failed to publish limit exceeded event",
			zap.String("namespace", result.Namespace),
			zap.String("id", result.ID),
			zap.Error(err),
		)
	}
}

// Current returns the count for id without recording an event
func (s *RateLimitService) Current(ctx context.Context, namespace, id string) (int64, error) {
	if id == "" {
		return 0, fmt.Errorf("%w: %s", ErrInvalidRequest, ErrIDRequired)
	}

	entry, err := s.lookup(namespace)
	if err != nil {
		return 0, err
	}
	return entry.limiter.CurrentCount(ctx, id)
}

// Reset deletes the recorded events for id in namespace
func (s *RateLimitService) Reset(ctx context.Context, namespace, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, ErrIDRequired)
	}

	entry, err := s.lookup(namespace)
	if err != nil {
		return err
	}

	if err := entry.limiter.Reset(ctx, id); err != nil {
		return err
	}

	s.Logger.Info("limit reset", zap.String("namespace", namespace), zap.String("id", id))
	return nil
}

// IsClientError reports whether err was caused by the request rather than the
// store
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, limiter.ErrInvalidParameter) ||
		errors.Is(err, limiter.ErrUnknownStrategy)
}

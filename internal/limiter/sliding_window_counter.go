package limiter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mohammadhprp/windowlimit/internal/clock"
	"github.com/mohammadhprp/windowlimit/internal/storage"
	"go.uber.org/zap"
)

// SlidingWindowCounter implements the Sliding Window (Log) algorithm.
//
// How it works:
// 1. Every event is inserted into an ordered set scored by its timestamp
// 2. In the same atomic step, entries older than now-window are removed
// 3. The key expiry is re-armed to one window, so idle keys vanish
// 4. The set cardinality is the exact event count over the trailing window
//
// Advantages:
// - Exact count over a continuously moving window (no boundary bursts)
// - Current usage can be read back as an exact trailing-window figure
//
// Disadvantages:
// - O(log N) time and O(events in window) storage per key
// - Materially more expensive than FixedWindowCounter at high rates
//
// Timestamps come from the caller's clock. Processes sharing a store should run
// with synchronised clocks.
type SlidingWindowCounter struct {
	store     storage.Store
	clock     clock.Clock
	logger    *zap.Logger
	newMember func() string
}

// NewSlidingWindowCounter creates a sliding window counter over store.
func NewSlidingWindowCounter(store storage.Store, c clock.Clock, logger *zap.Logger) *SlidingWindowCounter {
	if c == nil {
		c = clock.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlidingWindowCounter{
		store:     store,
		clock:     c,
		logger:    logger,
		newMember: uuid.NewString,
	}
}

// RecordAndCount inserts an event for key and returns the trailing-window count.
func (sw *SlidingWindowCounter) RecordAndCount(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := sw.store.RecordEvent(ctx, key, sw.newMember(), sw.clock.Now(), window)
	if err != nil {
		sw.logger.Error("failed to record sliding window event", zap.String("key", key), zap.Error(err))
		return 0, err
	}
	return count, nil
}

// PeekCount drops events older than the trailing window and counts the rest.
// It never records an event.
func (sw *SlidingWindowCounter) PeekCount(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := sw.store.CountEvents(ctx, key, sw.clock.Now().Add(-window))
	if err != nil {
		sw.logger.Error("failed to count sliding window events", zap.String("key", key), zap.Error(err))
		return 0, err
	}
	return count, nil
}

// Clear deletes the whole event log at key.
func (sw *SlidingWindowCounter) Clear(ctx context.Context, key string) error {
	if err := sw.store.Delete(ctx, key); err != nil {
		sw.logger.Error("failed to reset sliding window log", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

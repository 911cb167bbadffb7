package limiter

import (
	"context"
	"time"

	"github.com/mohammadhprp/windowlimit/internal/storage"
	"go.uber.org/zap"
)

// FixedWindowCounter implements the Fixed Window (Counting) algorithm.
//
// How it works:
// 1. The first event for a key creates a counter that expires one window later
// 2. Every event atomically increments that counter
// 3. When the counter expires the next event starts a fresh window at 1
//
// Advantages:
// - O(1) time and storage per key
// - One round trip per event
//
// Disadvantages:
// - Windows are unaware of each other, so up to 2x threshold events can be
//   admitted in a short span straddling the end of one window and the start
//   of the next. This is accepted behaviour, not a defect.
type FixedWindowCounter struct {
	store  storage.Store
	logger *zap.Logger
}

// NewFixedWindowCounter creates a fixed window counter over store.
func NewFixedWindowCounter(store storage.Store, logger *zap.Logger) *FixedWindowCounter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FixedWindowCounter{
		store:  store,
		logger: logger,
	}
}

// RecordAndCount increments the counter at key, arming its expiry when the
// increment created it.
func (fw *FixedWindowCounter) RecordAndCount(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := fw.store.IncrementWindow(ctx, key, window)
	if err != nil {
		fw.logger.Error("failed to increment fixed window counter", zap.String("key", key), zap.Error(err))
		return 0, err
	}
	return count, nil
}

// PeekCount returns the counter at key, or 0 when no window is open. The
// window argument is not needed: the stored counter is the whole window.
func (fw *FixedWindowCounter) PeekCount(ctx context.Context, key string, _ time.Duration) (int64, error) {
	count, err := fw.store.Count(ctx, key)
	if err != nil {
		fw.logger.Error("failed to read fixed window counter", zap.String("key", key), zap.Error(err))
		return 0, err
	}
	return count, nil
}

// Clear deletes the counter at key.
func (fw *FixedWindowCounter) Clear(ctx context.Context, key string) error {
	if err := fw.store.Delete(ctx, key); err != nil {
		fw.logger.Error("failed to reset fixed window counter", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

package limiter

import (
	"context"
	"time"
)

// Counter records and counts events per storage key. Implementations must be
// safe for concurrent use by unrelated processes sharing one store.
type Counter interface {
	// RecordAndCount records one event for key and returns the number of events
	// attributable to key within the trailing window, this one included.
	RecordAndCount(ctx context.Context, key string, window time.Duration) (int64, error)

	// PeekCount returns the same figure as RecordAndCount without recording an
	// event. It never influences a later RecordAndCount.
	PeekCount(ctx context.Context, key string, window time.Duration) (int64, error)

	// Clear deletes all state for key.
	Clear(ctx context.Context, key string) error
}

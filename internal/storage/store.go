package storage

import (
	"context"
	"errors"
	"time"
)

// ErrWrongType is returned when a key holds a value of the other record shape
// (a scalar counter addressed as an event log or vice versa).
var ErrWrongType = errors.New("operation against a key holding the wrong kind of value")

// Store is the counter-store capability consumed by the window counters.
// Every method that mutates more than one aspect of a key executes as a single
// indivisible operation on the backend.
type Store interface {
	// IncrementWindow increments the scalar counter at key by one and, when the
	// increment created the key, sets its expiry to window. It returns the
	// post-increment value.
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error)

	// Count returns the scalar counter at key, or 0 when the key is absent.
	Count(ctx context.Context, key string) (int64, error)

	// RecordEvent inserts member scored at into the event log at key, removes
	// entries scored before at-window, refreshes the key expiry to window and
	// returns the number of retained entries.
	RecordEvent(ctx context.Context, key, member string, at time.Time, window time.Duration) (int64, error)

	// CountEvents removes entries in the event log at key scored before since
	// and returns the number left. The expiry is not touched.
	CountEvents(ctx context.Context, key string, since time.Time) (int64, error)

	// Delete removes the key whatever it holds.
	Delete(ctx context.Context, key string) error

	// Ping checks if the storage is accessible
	Ping(ctx context.Context) error

	// Close closes the storage connection
	Close() error
}

// Score converts t into the event-log score: microseconds since the Unix epoch.
// Values stay exactly representable as float64 sorted-set scores.
func Score(t time.Time) int64 {
	return t.UnixMicro()
}

// ttlMillis converts a window to a positive millisecond TTL.
func ttlMillis(window time.Duration) int64 {
	ms := window.Milliseconds()
	if ms < 1 {
		return 1
	}
	return ms
}

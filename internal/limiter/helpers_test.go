package limiter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohammadhprp/windowlimit/internal/clock"
	"github.com/mohammadhprp/windowlimit/internal/storage"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

var errStoreDown = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

// newTestStore returns an in-memory store driven by a virtual clock
func newTestStore(t *testing.T) (*storage.MemoryStore, *clock.VirtualClock) {
	t.Helper()
	c := clock.NewVirtualClock(epoch)
	store := storage.NewMemoryStoreWithClock(c)
	t.Cleanup(func() { _ = store.Close() })
	return store, c
}

// failingStore fails every call, standing in for an unreachable Redis
type failingStore struct {
	calls int
}

func (f *failingStore) IncrementWindow(context.Context, string, time.Duration) (int64, error) {
	f.calls++
	return 0, errStoreDown
}

func (f *failingStore) Count(context.Context, string) (int64, error) {
	f.calls++
	return 0, errStoreDown
}

func (f *failingStore) RecordEvent(context.Context, string, string, time.Time, time.Duration) (int64, error) {
	f.calls++
	return 0, errStoreDown
}

func (f *failingStore) CountEvents(context.Context, string, time.Time) (int64, error) {
	f.calls++
	return 0, errStoreDown
}

func (f *failingStore) Delete(context.Context, string) error {
	f.calls++
	return errStoreDown
}

func (f *failingStore) Ping(context.Context) error { return errStoreDown }

func (f *failingStore) Close() error { return nil }

var _ storage.Store = (*failingStore)(nil)

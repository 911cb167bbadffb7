package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mohammadhprp/windowlimit/internal/clock"
	"github.com/mohammadhprp/windowlimit/internal/events"
	"github.com/mohammadhprp/windowlimit/internal/storage"
	"go.uber.org/zap/zaptest"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

var errStoreDown = errors.New("connection refused")

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.LimitExceededEvent
	err    error
}

func (p *recordingPublisher) PublishLimitExceeded(event *events.LimitExceededEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) published() []*events.LimitExceededEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*events.LimitExceededEvent(nil), p.events...)
}

// failingQuotaStore fails every operation
type failingQuotaStore struct{}

func (failingQuotaStore) Save(context.Context, string, QuotaSettings) error {
	return errStoreDown
}

func (failingQuotaStore) Load(context.Context, string) (QuotaSettings, bool, error) {
	return QuotaSettings{}, false, errStoreDown
}

// downStore is a Store whose backend is unreachable
type downStore struct{}

func (downStore) IncrementWindow(context.Context, string, time.Duration) (int64, error) {
	return 0, errStoreDown
}

func (downStore) Count(context.Context, string) (int64, error) {
	return 0, errStoreDown
}

func (downStore) RecordEvent(context.Context, string, string, time.Time, time.Duration) (int64, error) {
	return 0, errStoreDown
}

func (downStore) CountEvents(context.Context, string, time.Time) (int64, error) {
	return 0, errStoreDown
}

func (downStore) Delete(context.Context, string) error { return errStoreDown }
func (downStore) Ping(context.Context) error           { return errStoreDown }
func (downStore) Close() error                         { return nil }

var _ storage.Store = downStore{}

type testEnv struct {
	service   *RateLimitService
	store     *storage.MemoryStore
	clock     *clock.VirtualClock
	quotas    *MemoryQuotaStore
	publisher *recordingPublisher
}

// setupTest creates a service over a memory store driven by a virtual clock
func setupTest(t *testing.T) *testEnv {
	t.Helper()

	c := clock.NewVirtualClock(epoch)
	store := storage.NewMemoryStoreWithClock(c)
	t.Cleanup(func() { _ = store.Close() })

	quotas := NewMemoryQuotaStore()
	publisher := &recordingPublisher{}
	svc := NewRateLimitService(store, zaptest.NewLogger(t),
		WithClock(c),
		WithQuotaStore(quotas),
		WithPublisher(publisher),
	)

	return &testEnv{
		service:   svc,
		store:     store,
		clock:     c,
		quotas:    quotas,
		publisher: publisher,
	}
}

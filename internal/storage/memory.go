package storage

import (
	"context"
	"sync"
	"time"

	"github.com/mohammadhprp/windowlimit/internal/clock"
)

const janitorInterval = 100 * time.Millisecond

// MemoryStore implements Store interface using in-memory storage.
// A single mutex makes every method atomic, mirroring the guarantees the Redis
// scripts give across processes.
type MemoryStore struct {
	mu         sync.Mutex
	counters   map[string]*counterValue
	sortedSets map[string]*sortedSet
	clock      clock.Clock

	stopChan  chan struct{}
	closeOnce sync.Once
}

type counterValue struct {
	value      int64
	expiration time.Time
}

// sortedSet maps member -> score (microseconds since epoch)
type sortedSet struct {
	members    map[string]int64
	expiration time.Time
}

// NewMemoryStore creates a new in-memory store on the wall clock
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(clock.NewRealClock())
}

// NewMemoryStoreWithClock creates a new in-memory store whose key expiry is
// measured against c.
func NewMemoryStoreWithClock(c clock.Clock) *MemoryStore {
	ms := &MemoryStore{
		counters:   make(map[string]*counterValue),
		sortedSets: make(map[string]*sortedSet),
		clock:      c,
		stopChan:   make(chan struct{}),
	}

	go ms.cleanupExpiredKeys()

	return ms
}

// cleanupExpiredKeys periodically removes expired keys
func (ms *MemoryStore) cleanupExpiredKeys() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeExpiredKeys()
		case <-ms.stopChan:
			return
		}
	}
}

func (ms *MemoryStore) removeExpiredKeys() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.clock.Now()
	for key := range ms.counters {
		ms.liveCounter(key, now)
	}
	for key := range ms.sortedSets {
		ms.liveSortedSet(key, now)
	}
}

// liveCounter returns the counter at key, dropping it first if it has expired.
// Callers hold ms.mu.
func (ms *MemoryStore) liveCounter(key string, now time.Time) *counterValue {
	val, ok := ms.counters[key]
	if !ok {
		return nil
	}
	if !val.expiration.IsZero() && !now.Before(val.expiration) {
		delete(ms.counters, key)
		return nil
	}
	return val
}

// liveSortedSet is the sorted-set counterpart of liveCounter.
func (ms *MemoryStore) liveSortedSet(key string, now time.Time) *sortedSet {
	zset, ok := ms.sortedSets[key]
	if !ok {
		return nil
	}
	if !zset.expiration.IsZero() && !now.Before(zset.expiration) {
		delete(ms.sortedSets, key)
		return nil
	}
	return zset
}

// IncrementWindow increments the counter for the given key
func (ms *MemoryStore) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.clock.Now()
	if ms.liveSortedSet(key, now) != nil {
		return 0, ErrWrongType
	}

	val := ms.liveCounter(key, now)
	if val == nil {
		val = &counterValue{expiration: now.Add(time.Duration(ttlMillis(window)) * time.Millisecond)}
		ms.counters[key] = val
	}
	val.value++

	return val.value, nil
}

// Count retrieves the current counter value for the given key
func (ms *MemoryStore) Count(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.clock.Now()
	if ms.liveSortedSet(key, now) != nil {
		return 0, ErrWrongType
	}
	if val := ms.liveCounter(key, now); val != nil {
		return val.value, nil
	}
	return 0, nil
}

// RecordEvent adds an event to the sorted set at key and trims it to the window
func (ms *MemoryStore) RecordEvent(ctx context.Context, key, member string, at time.Time, window time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.clock.Now()
	if ms.liveCounter(key, now) != nil {
		return 0, ErrWrongType
	}

	zset := ms.liveSortedSet(key, now)
	if zset == nil {
		zset = &sortedSet{members: make(map[string]int64)}
		ms.sortedSets[key] = zset
	}

	score := Score(at)
	cutoff := score - window.Microseconds()

	zset.members[member] = score
	for m, s := range zset.members {
		if s < cutoff {
			delete(zset.members, m)
		}
	}
	zset.expiration = now.Add(time.Duration(ttlMillis(window)) * time.Millisecond)

	return int64(len(zset.members)), nil
}

// CountEvents trims sorted set members scored before since and returns what is left
func (ms *MemoryStore) CountEvents(ctx context.Context, key string, since time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.clock.Now()
	if ms.liveCounter(key, now) != nil {
		return 0, ErrWrongType
	}

	zset := ms.liveSortedSet(key, now)
	if zset == nil {
		return 0, nil
	}

	from := Score(since)
	for m, score := range zset.members {
		if score < from {
			delete(zset.members, m)
		}
	}
	if len(zset.members) == 0 {
		delete(ms.sortedSets, key)
	}

	return int64(len(zset.members)), nil
}

// Delete removes the key from storage
func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.counters, key)
	delete(ms.sortedSets, key)

	return nil
}

// Ping checks if the storage is accessible
func (ms *MemoryStore) Ping(ctx context.Context) error {
	// In-memory storage is always accessible
	return ctx.Err()
}

// Close stops the janitor. It is idempotent.
func (ms *MemoryStore) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.stopChan)
	})
	return nil
}

// Len reports the number of live keys. Intended for tests and diagnostics.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.clock.Now()
	n := 0
	for key := range ms.counters {
		if ms.liveCounter(key, now) != nil {
			n++
		}
	}
	for key := range ms.sortedSets {
		if ms.liveSortedSet(key, now) != nil {
			n++
		}
	}
	return n
}

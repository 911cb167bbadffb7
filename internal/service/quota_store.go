package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// QuotaSettings is a persisted quota override for one namespace.
type QuotaSettings struct {
	Threshold float64 `json:"threshold"`
	Interval  float64 `json:"interval_seconds"`
	UpdatedAt int64   `json:"updated_at"`
}

// QuotaStore persists quota overrides so that restarted processes, and
// processes registering the same namespace later, start from the same values.
type QuotaStore interface {
	Save(ctx context.Context, namespace string, settings QuotaSettings) error
	Load(ctx context.Context, namespace string) (QuotaSettings, bool, error)
}

type redisQuotaStore struct {
	client redis.Cmdable
}

// NewRedisQuotaStore returns a QuotaStore backed by Redis.
func NewRedisQuotaStore(client redis.Cmdable) QuotaStore {
	return &redisQuotaStore{client: client}
}

func (s *redisQuotaStore) Save(ctx context.Context, namespace string, settings QuotaSettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, QuotaKeyPrefix+namespace, payload, 0).Err()
}

func (s *redisQuotaStore) Load(ctx context.Context, namespace string) (QuotaSettings, bool, error) {
	payload, err := s.client.Get(ctx, QuotaKeyPrefix+namespace).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return QuotaSettings{}, false, nil
		}
		return QuotaSettings{}, false, err
	}

	var settings QuotaSettings
	if err := json.Unmarshal(payload, &settings); err != nil {
		return QuotaSettings{}, false, err
	}

	return settings, true, nil
}

// MemoryQuotaStore keeps overrides in process memory.
type MemoryQuotaStore struct {
	mu     sync.RWMutex
	quotas map[string]QuotaSettings
}

// NewMemoryQuotaStore creates an empty in-memory QuotaStore.
func NewMemoryQuotaStore() *MemoryQuotaStore {
	return &MemoryQuotaStore{quotas: make(map[string]QuotaSettings)}
}

func (s *MemoryQuotaStore) Save(_ context.Context, namespace string, settings QuotaSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotas[namespace] = settings
	return nil
}

func (s *MemoryQuotaStore) Load(_ context.Context, namespace string) (QuotaSettings, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.quotas[namespace]
	return settings, ok, nil
}

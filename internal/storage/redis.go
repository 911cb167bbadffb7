package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementWindowScript increments the counter and arms its expiry only when the
// increment created the key, so later increments never extend the window.
var incrementWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// recordEventScript inserts, trims and re-arms the expiry of an event log in one
// step. Scores travel as strings so microsecond precision survives Lua number
// formatting.
var recordEventScript = redis.NewScript(`
local key = KEYS[1]
redis.call('ZADD', key, ARGV[1], ARGV[4])
redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. ARGV[2])
redis.call('PEXPIRE', key, ARGV[3])
return redis.call('ZCARD', key)
`)

// countEventsScript drops entries scored before the cutoff and counts the rest.
// The expiry is left alone so a read never extends the log's lifetime.
var countEventsScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
return redis.call('ZCARD', KEYS[1])
`)

// RedisStore implements Store interface using Redis
type RedisStore struct {
	client redis.UniversalClient

	closeOnce sync.Once
	closeErr  error
}

// NewRedisStore creates a Redis store over an existing client. The store takes
// ownership of the client and closes it on Close.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// IncrementWindow increments the counter for the given key
func (s *RedisStore) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := incrementWindowScript.Run(ctx, s.client, []string{key}, ttlMillis(window)).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment window counter: %w", err)
	}
	return count, nil
}

// Count retrieves the current counter value for the given key
func (s *RedisStore) Count(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get counter: %w", err)
	}
	return count, nil
}

// RecordEvent adds an event to the sorted set at key and trims it to the window
func (s *RedisStore) RecordEvent(ctx context.Context, key, member string, at time.Time, window time.Duration) (int64, error) {
	now := Score(at)
	cutoff := now - window.Microseconds()

	count, err := recordEventScript.Run(ctx, s.client, []string{key},
		strconv.FormatInt(now, 10),
		strconv.FormatInt(cutoff, 10),
		ttlMillis(window),
		member,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to record event: %w", err)
	}
	return count, nil
}

// CountEvents trims sorted set members scored before since and returns what is left
func (s *RedisStore) CountEvents(ctx context.Context, key string, since time.Time) (int64, error) {
	count, err := countEventsScript.Run(ctx, s.client, []string{key}, strconv.FormatInt(Score(since), 10)).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// Delete removes the key from storage
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// Ping checks if the storage is accessible
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the storage connection. It is idempotent.
func (s *RedisStore) Close() error {
	s.closeOnce.Do(func() {
		if err := s.client.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close redis connection: %w", err)
		}
	})
	return s.closeErr
}

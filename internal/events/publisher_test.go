package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mohammadhprp/windowlimit/internal/events"
)

type mockPublisher struct {
	messages   []*message.Message
	topic      string
	publishErr error
	closed     bool
}

func (m *mockPublisher) Publish(topic string, msgs ...*message.Message) error {
	if m.publishErr != nil {
		return m.publishErr
	}

	m.topic = topic
	m.messages = append(m.messages, msgs...)

	return nil
}

func (m *mockPublisher) Close() error {
	m.closed = true
	return nil
}

func sampleEvent() *events.LimitExceededEvent {
	return &events.LimitExceededEvent{
		Namespace:       "api",
		ID:              "user-1",
		Count:           11,
		Threshold:       10,
		IntervalSeconds: 60,
		OccurredAt:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublisher(t *testing.T) {
	t.Run("publishes event successfully", func(t *testing.T) {
		mock := &mockPublisher{}
		pub := events.NewPublisher(mock, "")

		require.NoError(t, pub.PublishLimitExceeded(sampleEvent()))

		assert.Equal(t, events.TopicLimitExceeded, mock.topic)
		require.Len(t, mock.messages, 1)
		assert.Equal(t, "api", mock.messages[0].Metadata.Get("namespace"))

		var got events.LimitExceededEvent
		require.NoError(t, json.Unmarshal(mock.messages[0].Payload, &got))
		assert.Equal(t, *sampleEvent(), got)
	})

	t.Run("uses custom topic", func(t *testing.T) {
		mock := &mockPublisher{}
		pub := events.NewPublisher(mock, "custom")

		require.NoError(t, pub.PublishLimitExceeded(sampleEvent()))
		assert.Equal(t, "custom", mock.topic)
		assert.Equal(t, "custom", pub.Topic())
	})

	t.Run("returns error when publish fails", func(t *testing.T) {
		mock := &mockPublisher{publishErr: errors.New("publish error")}
		pub := events.NewPublisher(mock, "")

		assert.Error(t, pub.PublishLimitExceeded(sampleEvent()))
	})

	t.Run("shuts down underlying publisher", func(t *testing.T) {
		mock := &mockPublisher{}
		pub := events.NewPublisher(mock, "")

		require.NoError(t, pub.Shutdown())
		assert.True(t, mock.closed)
	})
}

func TestRedisStreamPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	pub, err := events.NewRedisStreamPublisher(client, "limits", zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, pub.PublishLimitExceeded(sampleEvent()))

	entries, err := client.XRange(context.Background(), "limits", "-", "+").Result()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestZapLoggerAdapter(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	adapter := events.NewZapLoggerAdapter(zap.New(core))

	adapter.Info("info", watermill.LogFields{"a": 1})
	adapter.Debug("debug", nil)
	adapter.Trace("trace", nil)
	adapter.Error("error", errors.New("boom"), watermill.LogFields{"b": "x"})
	adapter.With(watermill.LogFields{"c": true}).Info("child", nil)

	entries := logs.All()
	require.Len(t, entries, 5)
	assert.Equal(t, "info", entries[0].Message)
	assert.Equal(t, int64(1), entries[0].ContextMap()["a"])
	assert.Equal(t, zap.DebugLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
	assert.Equal(t, true, entries[4].ContextMap()["c"])
}

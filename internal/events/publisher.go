// Package events publishes rate limiting outcomes to a message stream so other
// services can react to callers hitting their limits.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher publishes rejection events.
type Publisher struct {
	publisher message.Publisher
	topic     string
}

// NewPublisher wraps a watermill publisher. An empty topic uses TopicLimitExceeded.
func NewPublisher(publisher message.Publisher, topic string) *Publisher {
	if topic == "" {
		topic = TopicLimitExceeded
	}
	return &Publisher{publisher: publisher, topic: topic}
}

// NewRedisStreamPublisher publishes to a Redis stream named after the topic.
func NewRedisStreamPublisher(client redis.UniversalClient, topic string, logger *zap.Logger) (*Publisher, error) {
	pub, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client:     client,
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		},
		NewZapLoggerAdapter(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis stream publisher: %w", err)
	}

	return NewPublisher(pub, topic), nil
}

// Topic returns the topic events are published to.
func (p *Publisher) Topic() string {
	return p.topic
}

// PublishLimitExceeded publishes a limit exceeded event.
func (p *Publisher) PublishLimitExceeded(event *LimitExceededEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("namespace", event.Namespace)

	return p.publisher.Publish(p.topic, msg)
}

// Shutdown closes the underlying publisher.
func (p *Publisher) Shutdown() error {
	return p.publisher.Close()
}

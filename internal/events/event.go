package events

import "time"

// TopicLimitExceeded is the default topic rejection events are published to.
const TopicLimitExceeded = "ratelimit.exceeded"

// LimitExceededEvent is emitted when a check is rejected.
type LimitExceededEvent struct {
	Namespace       string    `json:"namespace"`
	ID              string    `json:"id"`
	Count           int64     `json:"count"`
	Threshold       int64     `json:"threshold"`
	IntervalSeconds int64     `json:"intervalSeconds"`
	OccurredAt      time.Time `json:"occurredAt"`
}

package ports

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Publish outcomes the caller can act on
var (
	// ErrPublishRejected marks a permanent refusal; retrying the same event will not help
	ErrPublishRejected = errors.New("event rejected by bus")
	// ErrPublishThrottled marks a transient refusal
	ErrPublishThrottled = errors.New("event throttled by bus")
)

// BusEvent is a single event handed to an EventBus.
type BusEvent struct {
	// ID is a client-side identifier; buses that assign their own ids may ignore it
	ID         string
	Bus        string
	Source     string
	DetailType string
	Time       time.Time
	Detail     json.RawMessage
}

// EventBus publishes events one at a time.
type EventBus interface {
	// Publish sends one event and returns the id the bus assigned to it
	// (or the client id when the transport does not assign one).
	Publish(ctx context.Context, event *BusEvent) (string, error)

	// Close releases connections held by the adapter.
	Close() error
}

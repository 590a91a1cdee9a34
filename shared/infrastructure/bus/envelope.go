package bus

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
)

// Envelope mirrors the shape EventBridge delivers to its targets, so
// consumers behind SQS, RabbitMQ or Kafka read the same document.
type Envelope struct {
	Version    string          `json:"version"`
	ID         string          `json:"id"`
	DetailType string          `json:"detail-type"`
	Source     string          `json:"source"`
	EventBus   string          `json:"event-bus"`
	Time       time.Time       `json:"time"`
	Resources  []string        `json:"resources"`
	Detail     json.RawMessage `json:"detail"`
}

// NewEnvelope wraps event, assigning an id when the event has none
func NewEnvelope(event *ports.BusEvent) Envelope {
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}

	return Envelope{
		Version:    "0",
		ID:         id,
		DetailType: event.DetailType,
		Source:     event.Source,
		EventBus:   event.Bus,
		Time:       event.Time.UTC(),
		Resources:  []string{},
		Detail:     event.Detail,
	}
}

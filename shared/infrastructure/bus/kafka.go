package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBus writes each event to a single topic keyed by event id
type KafkaBus struct {
	writer  messageWriter
	logger  ports.Logger
	metrics ports.Metrics
	topic   string
}

func NewKafkaBus(cfg *config.KafkaConfig, obs ports.Observability) (*KafkaBus, error) {
	logger, metrics, err := obs.ComponentsScoped("bus.kafka")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.Timeout,
	}

	logger.Info("Kafka bus initialized successfully", "brokers", cfg.Brokers, "topic", cfg.Topic)

	return newKafkaBus(writer, cfg.Topic, logger, metrics), nil
}

func newKafkaBus(writer messageWriter, topic string, logger ports.Logger, metrics ports.Metrics) *KafkaBus {
	return &KafkaBus{
		writer:  writer,
		logger:  logger,
		metrics: metrics,
		topic:   topic,
	}
}

func (b *KafkaBus) Publish(ctx context.Context, event *ports.BusEvent) (string, error) {
	startTime := time.Now()
	defer func() {
		b.metrics.RecordHistogram("bus.publish.duration",
			time.Since(startTime).Seconds(),
			map[string]string{"target": b.topic})
	}()

	envelope := NewEnvelope(event)
	value, err := json.Marshal(envelope)
	if err != nil {
		b.metrics.IncrementCounter("bus.publish.error",
			map[string]string{"target": b.topic, "error": "marshal_failed"})
		return "", fmt.Errorf("%w: failed to marshal envelope: %v", ports.ErrPublishRejected, err)
	}

	msg := kafka.Message{
		Key:   []byte(envelope.ID),
		Value: value,
		Time:  envelope.Time,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(envelope.ID)},
			{Key: "event_type", Value: []byte(event.DetailType)},
			{Key: "event_source", Value: []byte(event.Source)},
		},
	}

	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		b.logger.Error("failed to write message", "error", err, "target", b.topic)
		b.metrics.IncrementCounter("bus.publish.error",
			map[string]string{"target": b.topic, "error": "write_failed"})
		return "", fmt.Errorf("failed to write message: %w", err)
	}

	b.logger.Debug("message written successfully", "target", b.topic, "event_id", envelope.ID, "size", len(value))
	b.metrics.IncrementCounter("bus.publish.success",
		map[string]string{"target": b.topic})

	return envelope.ID, nil
}

func (b *KafkaBus) Close() error {
	return b.writer.Close()
}

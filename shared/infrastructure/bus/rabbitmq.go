package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"

	"github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type RabbitMQBus struct {
	conn     *amqp091.Connection
	channel  amqpChannel
	logger   ports.Logger
	metrics  ports.Metrics
	queue    string
	timeout  time.Duration
	declared sync.Once
	declErr  error
}

func NewRabbitMQBus(cfg *config.RabbitMQConfig, obs ports.Observability) (*RabbitMQBus, error) {
	logger, metrics, err := obs.ComponentsScoped("bus.rabbitmq")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	// Connect to RabbitMQ
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Error("failed to create channel", "error", err)
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	logger.Info("RabbitMQ bus initialized successfully", "queue", cfg.Queue)

	b := newRabbitMQBus(channel, cfg.Queue, cfg.Timeout, logger, metrics)
	b.conn = conn
	return b, nil
}

func newRabbitMQBus(channel amqpChannel, queue string, timeout time.Duration, logger ports.Logger, metrics ports.Metrics) *RabbitMQBus {
	return &RabbitMQBus{
		channel: channel,
		logger:  logger,
		metrics: metrics,
		queue:   queue,
		timeout: timeout,
	}
}

func (b *RabbitMQBus) declare() error {
	b.declared.Do(func() {
		_, b.declErr = b.channel.QueueDeclare(
			b.queue, // queue name
			true,    // durable
			false,   // auto-delete
			false,   // exclusive
			false,   // no-wait
			nil,     // arguments
		)
	})
	return b.declErr
}

func (b *RabbitMQBus) Publish(ctx context.Context, event *ports.BusEvent) (string, error) {
	startTime := time.Now()
	defer func() {
		b.metrics.RecordHistogram("bus.publish.duration",
			time.Since(startTime).Seconds(),
			map[string]string{"target": b.queue})
	}()

	if err := b.declare(); err != nil {
		b.logger.Error("failed to declare queue", "error", err, "queue", b.queue)
		b.metrics.IncrementCounter("bus.publish.error",
			map[string]string{"target": b.queue, "error": "declare_failed"})
		return "", fmt.Errorf("failed to declare queue: %w", err)
	}

	envelope := NewEnvelope(event)
	body, err := json.Marshal(envelope)
	if err != nil {
		b.metrics.IncrementCounter("bus.publish.error",
			map[string]string{"target": b.queue, "error": "marshal_failed"})
		return "", fmt.Errorf("%w: failed to marshal envelope: %v", ports.ErrPublishRejected, err)
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	msg := amqp091.Publishing{
		DeliveryMode: amqp091.Persistent,
		ContentType:  "application/json",
		MessageId:    envelope.ID,
		Type:         event.DetailType,
		AppId:        event.Source,
		Body:         body,
		Timestamp:    envelope.Time,
	}

	err = b.channel.PublishWithContext(
		ctx,
		"",      // exchange (empty for direct queue)
		b.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		msg,
	)
	if err != nil {
		b.logger.Error("failed to publish message", "error", err, "target", b.queue)
		b.metrics.IncrementCounter("bus.publish.error",
			map[string]string{"target": b.queue, "error": "publish_failed"})
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	b.logger.Debug("message published successfully", "target", b.queue, "event_id", envelope.ID, "size", len(body))
	b.metrics.IncrementCounter("bus.publish.success",
		map[string]string{"target": b.queue})

	return envelope.ID, nil
}

func (b *RabbitMQBus) Close() error {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/awsclient"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSBus sends every event, wrapped in an Envelope, to one queue
type SQSBus struct {
	client    sqsAPI
	logger    ports.Logger
	metrics   ports.Metrics
	queueName string
	// Cache queue URL to avoid repeated lookups
	queueURL string
}

func NewSQSBus(cfg *config.SQSConfig, obs ports.Observability) (*SQSBus, error) {
	logger, metrics, err := obs.ComponentsScoped("bus.sqs")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	awsCfg, err := awsclient.Load(context.Background(), awsclient.Options{Region: cfg.Region})
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		return nil, err
	}

	logger.Info("SQS bus initialized successfully", "region", cfg.Region, "queue", cfg.Queue)

	return newSQSBus(sqs.NewFromConfig(awsCfg), cfg.Queue, logger, metrics), nil
}

func newSQSBus(client sqsAPI, queueName string, logger ports.Logger, metrics ports.Metrics) *SQSBus {
	return &SQSBus{
		client:    client,
		logger:    logger,
		metrics:   metrics,
		queueName: queueName,
	}
}

func (q *SQSBus) getQueueURL(ctx context.Context) (string, error) {
	if q.queueURL != "" {
		return q.queueURL, nil
	}

	result, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(q.queueName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get queue URL for %s: %w", q.queueName, err)
	}

	q.queueURL = aws.ToString(result.QueueUrl)
	return q.queueURL, nil
}

func (q *SQSBus) Publish(ctx context.Context, event *ports.BusEvent) (string, error) {
	startTime := time.Now()
	defer func() {
		q.metrics.RecordHistogram("bus.publish.duration",
			time.Since(startTime).Seconds(),
			map[string]string{"target": q.queueName})
	}()

	queueURL, err := q.getQueueURL(ctx)
	if err != nil {
		q.logger.Error("failed to get queue URL", "error", err, "queue", q.queueName)
		q.metrics.IncrementCounter("bus.publish.error",
			map[string]string{"target": q.queueName, "error": "queue_url_failed"})
		return "", err
	}

	envelope := NewEnvelope(event)
	body, err := json.Marshal(envelope)
	if err != nil {
		q.metrics.IncrementCounter("bus.publish.error",
			map[string]string{"target": q.queueName, "error": "marshal_failed"})
		return "", fmt.Errorf("%w: failed to marshal envelope: %v", ports.ErrPublishRejected, err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.DetailType),
			},
			"source": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.Source),
			},
		},
	})
	if err != nil {
		q.logger.Error("failed to send message", "error", err, "target", q.queueName)
		q.metrics.IncrementCounter("bus.publish.error",
			map[string]string{"target": q.queueName, "error": "send_failed"})
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	q.logger.Debug("message sent successfully", "target", q.queueName, "event_id", envelope.ID, "size", len(body))
	q.metrics.IncrementCounter("bus.publish.success",
		map[string]string{"target": q.queueName})

	return envelope.ID, nil
}

func (q *SQSBus) Close() error {
	return nil
}

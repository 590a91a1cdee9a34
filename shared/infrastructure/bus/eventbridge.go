package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/awsclient"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
)

// entry error codes EventBridge documents as transient
var transientEntryErrors = map[string]bool{
	"ThrottlingException": true,
	"InternalException":   true,
	"InternalFailure":     true,
}

type putEventsAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgeBus publishes each event as a single-entry PutEvents call
type EventBridgeBus struct {
	client  putEventsAPI
	logger  ports.Logger
	metrics ports.Metrics
}

func NewEventBridgeBus(cfg *config.EventBridgeConfig, obs ports.Observability) (*EventBridgeBus, error) {
	logger, metrics, err := obs.ComponentsScoped("bus.eventbridge")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	awsCfg, err := awsclient.Load(context.Background(), awsclient.Options{Region: cfg.Region})
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		return nil, err
	}

	client := eventbridge.NewFromConfig(awsCfg, func(o *eventbridge.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Info("EventBridge bus initialized successfully", "region", cfg.Region)

	return newEventBridgeBus(client, logger, metrics), nil
}

func newEventBridgeBus(client putEventsAPI, logger ports.Logger, metrics ports.Metrics) *EventBridgeBus {
	return &EventBridgeBus{
		client:  client,
		logger:  logger,
		metrics: metrics,
	}
}

func (b *EventBridgeBus) Publish(ctx context.Context, event *ports.BusEvent) (string, error) {
	startTime := time.Now()
	tags := map[string]string{"bus": event.Bus, "detail_type": event.DetailType}
	defer func() {
		b.metrics.RecordHistogram("bus.publish.duration", time.Since(startTime).Seconds(), tags)
	}()

	out, err := b.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: aws.String(event.Bus),
				Source:       aws.String(event.Source),
				DetailType:   aws.String(event.DetailType),
				Time:         aws.Time(event.Time),
				Detail:       aws.String(string(event.Detail)),
			},
		},
	})
	if err != nil {
		b.metrics.IncrementCounter("bus.publish.error", map[string]string{"error": "put_events_failed"})
		return "", fmt.Errorf("failed to put events: %w", err)
	}

	// A 200 response can still carry failed entries
	if out.FailedEntryCount > 0 || len(out.Entries) == 0 {
		code, message := "Unknown", "no entry result returned"
		if len(out.Entries) > 0 {
			code = aws.ToString(out.Entries[0].ErrorCode)
			message = aws.ToString(out.Entries[0].ErrorMessage)
		}

		b.metrics.IncrementCounter("bus.publish.error", map[string]string{"error": code})

		sentinel := ports.ErrPublishRejected
		if transientEntryErrors[code] {
			sentinel = ports.ErrPublishThrottled
		}
		return "", fmt.Errorf("%w: %s: %s", sentinel, code, message)
	}

	eventID := aws.ToString(out.Entries[0].EventId)
	b.logger.Debug("event published", "event_id", eventID, "detail_type", event.DetailType)
	b.metrics.IncrementCounter("bus.publish.success", tags)

	return eventID, nil
}

func (b *EventBridgeBus) Close() error {
	return nil
}

package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
)

const (
	eventSourceS3  = "aws:s3"
	eventSourceSQS = "aws:sqs"

	s3TestEvent = "s3:TestEvent"

	// bound on draining logs and metrics before the environment is frozen
	invocationFlushTimeout = 5 * time.Second
)

// handles Lambda runtime integration
type lambdaRuntime struct {
	handler ports.Handler
	logger  ports.Logger
	metrics ports.Metrics
	flusher ports.Flusher
	config  *config.LambdaConfig
}

// NewLambdaRuntime creates a new Lambda runtime
func NewLambdaRuntime(cfg *config.LambdaConfig, handler ports.Handler, obs ports.Observability) (ports.Runtime, error) {
	return newLambdaRuntime(cfg, handler, obs)
}

func newLambdaRuntime(cfg *config.LambdaConfig, handler ports.Handler, obs ports.Observability) (*lambdaRuntime, error) {
	logger, metrics, err := obs.ComponentsScoped("runtime.lambda")
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime: observability was not initialized: %w", err)
	}

	if handler == nil {
		return nil, fmt.Errorf("failed to create runtime: handler is required")
	}

	return &lambdaRuntime{
		handler: handler,
		logger:  logger,
		metrics: metrics,
		flusher: obs,
		config:  cfg,
	}, nil
}

// Start hands control to the Lambda runtime API; it only returns on startup failure
func (runtime *lambdaRuntime) Start(ctx context.Context) error {
	runtime.logStartup()
	lambda.StartWithOptions(runtime.handleEvent, lambda.WithContext(ctx))
	return nil
}

// handleEvent is the main Lambda entry point
func (runtime *lambdaRuntime) handleEvent(ctx context.Context, event json.RawMessage) (interface{}, error) {
	invocation := runtime.trackInvocation(event)
	defer runtime.flush()
	defer invocation.recordDuration()

	return runtime.routeEvent(ctx, event, invocation)
}

// flush drains buffered logs and metrics. Lambda freezes the environment once
// the handler returns and Start never does, so this runs after every invocation.
func (runtime *lambdaRuntime) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), invocationFlushTimeout)
	defer cancel()

	if err := runtime.flusher.Flush(ctx); err != nil {
		runtime.logger.Error("Failed to flush observability", "error", err)
	}
}

// routeEvent determines event type and routes to appropriate handler
func (runtime *lambdaRuntime) routeEvent(ctx context.Context, event json.RawMessage, invocation *invocationTracker) (interface{}, error) {
	switch detectEventSource(event) {
	case eventSourceSQS:
		var sqsEvent events.SQSEvent
		if err := json.Unmarshal(event, &sqsEvent); err != nil {
			return nil, fmt.Errorf("failed to decode SQS event: %w", err)
		}
		invocation.eventType = "sqs"
		return runtime.processSQSEvent(ctx, sqsEvent)

	case eventSourceS3:
		var s3Event events.S3Event
		if err := json.Unmarshal(event, &s3Event); err != nil {
			return nil, fmt.Errorf("failed to decode S3 event: %w", err)
		}
		invocation.eventType = "s3"
		return runtime.processS3Event(ctx, s3Event)
	}

	// Try direct request
	if request, ok := runtime.tryParseDirectRequest(event); ok {
		invocation.eventType = "direct"
		return runtime.processDirectRequest(ctx, request)
	}

	// Unsupported event type
	runtime.recordUnsupportedEvent()
	return nil, fmt.Errorf("unsupported event type")
}

// --- S3 Event Processing ---

// processS3Event runs one extraction per record and fails the invocation if any failed
func (runtime *lambdaRuntime) processS3Event(ctx context.Context, event events.S3Event) (interface{}, error) {
	runtime.metrics.IncrementCounter("lambda.invocations.s3", nil)

	requests := runtime.requestsFromS3Event(event, "s3", nil)
	responses := make([]ports.RuntimeResponse, 0, len(requests))
	failures := 0

	for _, req := range requests {
		resp, err := runtime.handle(ctx, req)
		if err != nil || !resp.Success {
			failures++
			runtime.logger.Error("Extraction failed", "request_id", req.ID, "error", err, "response_error", resp.Error)
		}
		responses = append(responses, resp)
	}

	runtime.logger.Info("S3 event processing complete",
		"records", len(event.Records),
		"extractions", len(requests),
		"failure_count", failures)

	if failures > 0 {
		return responses, fmt.Errorf("%d/%d extractions failed", failures, len(requests))
	}
	return responses, nil
}

// requestsFromS3Event turns every usable record into its own request
func (runtime *lambdaRuntime) requestsFromS3Event(event events.S3Event, source string, metadata map[string]string) []ports.RuntimeRequest {
	requests := make([]ports.RuntimeRequest, 0, len(event.Records))

	for _, record := range event.Records {
		if record.EventName == s3TestEvent || record.S3.Bucket.Name == "" || record.S3.Object.Key == "" {
			runtime.logger.Info("Skipping record",
				"event_name", record.EventName,
				"bucket", record.S3.Bucket.Name,
				"key", record.S3.Object.Key)
			runtime.metrics.IncrementCounter("lambda.records.skipped", nil)
			continue
		}

		record.S3.Object.URLDecodedKey = decodeObjectKey(record.S3.Object.Key)

		payload, err := json.Marshal(events.S3Event{Records: []events.S3EventRecord{record}})
		if err != nil {
			runtime.logger.Error("Skipping record that cannot be encoded", "error", err)
			continue
		}

		reqMetadata := map[string]string{
			"bucket":     record.S3.Bucket.Name,
			"key":        record.S3.Object.URLDecodedKey,
			"event_name": record.EventName,
		}
		for k, v := range metadata {
			reqMetadata[k] = v
		}

		requests = append(requests, ports.RuntimeRequest{
			ID:        uuid.NewString(),
			Source:    source,
			Type:      ports.RequestTypeS3Notification,
			Payload:   payload,
			Metadata:  reqMetadata,
			Timestamp: time.Now().UTC(),
		})
	}

	return requests
}

// --- SQS Event Processing ---

// processSQSEvent handles SQS batch events
func (runtime *lambdaRuntime) processSQSEvent(ctx context.Context, event events.SQSEvent) (interface{}, error) {
	batch := newBatchProcessor(runtime, runtime.config)

	runtime.logBatchStart(event)
	runtime.recordBatchMetrics(event)

	response := batch.process(ctx, event)

	runtime.logBatchComplete(batch.getStats())
	runtime.recordBatchResults(batch.getStats())

	return response, batch.getError()
}

// batchProcessor encapsulates batch processing logic
type batchProcessor struct {
	runtime  *lambdaRuntime
	config   *config.LambdaConfig
	stats    batchStats
	response events.SQSEventResponse
}

type batchStats struct {
	successCount int
	failureCount int
	totalCount   int
}

func newBatchProcessor(runtime *lambdaRuntime, cfg *config.LambdaConfig) *batchProcessor {
	return &batchProcessor{
		runtime: runtime,
		config:  cfg,
		response: events.SQSEventResponse{
			BatchItemFailures: []events.SQSBatchItemFailure{},
		},
	}
}

func (b *batchProcessor) process(ctx context.Context, event events.SQSEvent) events.SQSEventResponse {
	b.stats.totalCount = len(event.Records)

	for i, record := range event.Records {
		b.processMessage(ctx, record, i)
	}

	return b.response
}

// processMessage runs every S3 record carried by one SQS message; the message
// fails if its body is unreadable or any of its extractions fail
func (b *batchProcessor) processMessage(ctx context.Context, record events.SQSMessage, index int) {
	b.logMessageStart(record, index)

	var notification events.S3Event
	if err := json.Unmarshal([]byte(record.Body), &notification); err != nil {
		b.handleFailure(record, fmt.Errorf("failed to decode S3 notification: %w", err))
		return
	}

	requests := b.runtime.requestsFromS3Event(notification, "sqs", map[string]string{
		"sqs_message_id": record.MessageId,
	})

	for _, req := range requests {
		resp, err := b.runtime.handle(ctx, req)
		if err != nil || !resp.Success {
			if err == nil {
				err = fmt.Errorf("%s", resp.Error)
			}
			b.handleFailure(record, err)
			return
		}
	}

	b.stats.successCount++
}

func (b *batchProcessor) handleFailure(record events.SQSMessage, err error) {
	b.stats.failureCount++
	b.runtime.logger.Error("Message processing failed",
		"message_id", record.MessageId,
		"error", err)

	if b.config.EnablePartialBatchFailure {
		b.response.BatchItemFailures = append(b.response.BatchItemFailures,
			events.SQSBatchItemFailure{
				ItemIdentifier: record.MessageId,
			})
	}
}

func (b *batchProcessor) getStats() batchStats {
	return b.stats
}

func (b *batchProcessor) getError() error {
	if !b.config.EnablePartialBatchFailure && b.stats.failureCount > 0 {
		return fmt.Errorf("batch processing failed: %d/%d messages failed",
			b.stats.failureCount, b.stats.totalCount)
	}
	return nil
}

// --- Direct Request Processing ---

// processDirectRequest handles direct handler requests
func (runtime *lambdaRuntime) processDirectRequest(ctx context.Context, req ports.RuntimeRequest) (interface{}, error) {
	runtime.logger.Info("Processing direct request", "request_id", req.ID)
	runtime.metrics.IncrementCounter("lambda.invocations.direct", nil)

	return runtime.handle(ctx, req)
}

// handle applies the configured per-request timeout around the handler
func (runtime *lambdaRuntime) handle(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	if runtime.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runtime.config.Timeout)
		defer cancel()
	}
	return runtime.handler.Handle(ctx, req)
}

// --- Parsing Helpers ---

// detectEventSource peeks at the first record's eventSource without decoding the whole event
func detectEventSource(event json.RawMessage) string {
	var peek struct {
		Records []struct {
			EventSource string `json:"eventSource"`
		} `json:"Records"`
	}
	if err := json.Unmarshal(event, &peek); err != nil || len(peek.Records) == 0 {
		return ""
	}
	return peek.Records[0].EventSource
}

func (runtime *lambdaRuntime) tryParseDirectRequest(event json.RawMessage) (ports.RuntimeRequest, bool) {
	var req ports.RuntimeRequest
	err := json.Unmarshal(event, &req)
	return req, err == nil && req.ID != ""
}

// decodeObjectKey undoes the form encoding S3 applies to keys in notifications
func decodeObjectKey(key string) string {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}

// --- Logging Helpers ---

func (runtime *lambdaRuntime) logStartup() {
	runtime.logger.Info("Starting Lambda runtime")
	runtime.metrics.IncrementCounter("lambda.starts", nil)
}

func (runtime *lambdaRuntime) logBatchStart(event events.SQSEvent) {
	runtime.logger.Info("Processing SQS batch",
		"batch_size", len(event.Records),
		"source", event.Records[0].EventSource)
}

func (runtime *lambdaRuntime) logBatchComplete(stats batchStats) {
	runtime.logger.Info("SQS batch processing complete",
		"total_messages", stats.totalCount,
		"success_count", stats.successCount,
		"failure_count", stats.failureCount,
		"partial_batch_enabled", runtime.config.EnablePartialBatchFailure)
}

func (b *batchProcessor) logMessageStart(record events.SQSMessage, index int) {
	b.runtime.logger.Info("Processing SQS message",
		"message_id", record.MessageId,
		"position", index+1,
		"total", b.stats.totalCount)
}

// --- Metrics Helpers ---

// invocationTracker tracks metrics for a single invocation
type invocationTracker struct {
	runtime   *lambdaRuntime
	startTime time.Time
	eventType string
}

func (runtime *lambdaRuntime) trackInvocation(event json.RawMessage) *invocationTracker {
	runtime.logger.Info("Lambda invoked", "event_size", len(event))
	runtime.metrics.IncrementCounter("lambda.invocations", nil)

	return &invocationTracker{
		runtime:   runtime,
		startTime: time.Now(),
	}
}

func (t *invocationTracker) recordDuration() {
	if t.eventType == "" {
		return
	}

	duration := time.Since(t.startTime)
	t.runtime.metrics.RecordHistogram("lambda.duration",
		float64(duration.Milliseconds()),
		map[string]string{"event_type": t.eventType})
}

func (runtime *lambdaRuntime) recordBatchMetrics(event events.SQSEvent) {
	runtime.metrics.IncrementCounter("lambda.invocations.sqs", nil)
	runtime.metrics.RecordHistogram("lambda.batch_size", float64(len(event.Records)), nil)
}

func (runtime *lambdaRuntime) recordBatchResults(stats batchStats) {
	runtime.metrics.RecordHistogram("lambda.batch.success_count", float64(stats.successCount), nil)
	runtime.metrics.RecordHistogram("lambda.batch.failure_count", float64(stats.failureCount), nil)

	switch {
	case stats.failureCount == 0:
		runtime.metrics.IncrementCounter("lambda.batch.complete_success", nil)
	case stats.successCount == 0:
		runtime.metrics.IncrementCounter("lambda.batch.complete_failure", nil)
	default:
		runtime.metrics.IncrementCounter("lambda.batch.partial_failure", nil)
	}
}

func (runtime *lambdaRuntime) recordUnsupportedEvent() {
	runtime.logger.Error("Unsupported event type")
	runtime.metrics.IncrementCounter("lambda.invocations.unsupported", nil)
}

package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
)

// taskRuntime runs the handler once against the configured object, the way a
// container task does
type taskRuntime struct {
	handler ports.Handler
	logger  ports.Logger
	metrics ports.Metrics
	object  ports.ObjectRef
}

// NewTaskRuntime creates a one-shot runtime for the object named in cfg
func NewTaskRuntime(cfg *config.ExtractionConfig, handler ports.Handler, obs ports.Observability) (ports.Runtime, error) {
	logger, metrics, err := obs.ComponentsScoped("runtime.task")
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime: observability was not initialized: %w", err)
	}

	if handler == nil {
		return nil, fmt.Errorf("failed to create runtime: handler is required")
	}

	return &taskRuntime{
		handler: handler,
		logger:  logger,
		metrics: metrics,
		object:  ports.ObjectRef{Bucket: cfg.Bucket, Key: cfg.Key},
	}, nil
}

// Start runs one extraction and returns the handler's error, if any. A
// response that reports failure without an error is turned into one.
func (runtime *taskRuntime) Start(ctx context.Context) error {
	payload, err := json.Marshal(runtime.object)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req := ports.RuntimeRequest{
		ID:      uuid.NewString(),
		Source:  "task",
		Type:    ports.RequestTypeObject,
		Payload: payload,
		Metadata: map[string]string{
			"bucket": runtime.object.Bucket,
			"key":    runtime.object.Key,
		},
		Timestamp: time.Now().UTC(),
	}

	runtime.logger.Info("Starting task runtime",
		"request_id", req.ID,
		"bucket", runtime.object.Bucket,
		"key", runtime.object.Key)
	runtime.metrics.IncrementCounter("task.starts", nil)

	startTime := time.Now()
	resp, err := runtime.handler.Handle(ctx, req)
	runtime.metrics.RecordHistogram("task.duration", time.Since(startTime).Seconds(), nil)

	if err != nil {
		runtime.metrics.IncrementCounter("task.failures", nil)
		return err
	}
	if !resp.Success {
		runtime.metrics.IncrementCounter("task.failures", nil)
		return errors.New(resp.Error)
	}

	runtime.logger.Info("Task runtime finished", "request_id", req.ID)
	return nil
}

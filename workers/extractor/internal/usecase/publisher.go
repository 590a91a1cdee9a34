package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/workers/extractor/internal/domain"
)

// Publisher sends one event per call and retries transient failures with
// exponential backoff
type Publisher struct {
	bus     ports.EventBus
	retry   config.RetryConfig
	logger  ports.Logger
	metrics ports.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewPublisher(bus ports.EventBus, retry config.RetryConfig, logger ports.Logger, metrics ports.Metrics) *Publisher {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}

	return &Publisher{
		bus:     bus,
		retry:   retry,
		logger:  logger,
		metrics: metrics,
		sleep:   sleepContext,
	}
}

// Publish sends event for data row number row. The result carries the number
// of attempts made and, on failure, an error wrapping domain.ErrPublish.
func (p *Publisher) Publish(ctx context.Context, row int, event *ports.BusEvent) domain.PublishResult {
	result := domain.PublishResult{Row: row}
	var lastErr error

	for attempt := 0; attempt < p.retry.MaxAttempts; attempt++ {
		result.Attempts = attempt + 1

		eventID, err := p.bus.Publish(ctx, event)
		if err == nil {
			result.Success = true
			result.EventID = eventID
			p.metrics.IncrementCounter("extraction.publish.success", nil)
			return result
		}

		lastErr = err
		if !isRetryable(ctx, err) {
			break
		}

		// Don't sleep after last attempt
		if attempt < p.retry.MaxAttempts-1 {
			backoff := calculateBackoff(attempt, p.retry)
			p.logger.Debug("publish failed, retrying",
				"row", row,
				"attempt", result.Attempts,
				"backoff", backoff.String(),
				"error", err)
			p.metrics.IncrementCounter("extraction.publish.retry", nil)

			if err := p.sleep(ctx, backoff); err != nil {
				lastErr = err
				break
			}
		}
	}

	p.logger.Error("failed to publish row",
		"row", row,
		"attempts", result.Attempts,
		"error", lastErr)
	p.metrics.IncrementCounter("extraction.publish.failure", map[string]string{"reason": failureReason(lastErr)})

	result.Err = domain.PublishError(row, lastErr)
	return result
}

// isRetryable determines if a publish error is worth another attempt
func isRetryable(ctx context.Context, err error) bool {
	// Don't retry if context is cancelled
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return !errors.Is(err, ports.ErrPublishRejected)
}

// calculateBackoff calculates the backoff duration for a retry attempt
func calculateBackoff(attempt int, cfg config.RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt))

	// Cap at max backoff
	if cfg.MaxBackoff > 0 && backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	return time.Duration(backoff)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ports.ErrPublishRejected):
		return "rejected"
	case errors.Is(err, ports.ErrPublishThrottled):
		return "throttled"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

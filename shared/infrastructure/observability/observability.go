package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
)

type observability struct {
	config  *config.Config
	logger  ports.Logger
	metrics ports.Metrics
}

// CreateObservability wires the configured logger and metrics adapters
func CreateObservability(cfg *config.Config, runID string) (ports.Observability, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	logger, metrics, err := createObservability(cfg, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to create observability: %w", err)
	}

	return New(cfg, logger, metrics), nil
}

// New wraps already built adapters; tests use it with in-memory adapters
func New(cfg *config.Config, logger ports.Logger, metrics ports.Metrics) ports.Observability {
	return &observability{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Components returns logger and metrics without any scoping
// This is typically used when you want to add your own scoping
func (obs *observability) Components() (ports.Logger, ports.Metrics, error) {
	if obs.logger == nil || obs.metrics == nil {
		return nil, nil, fmt.Errorf("observability not initialized")
	}
	return obs.logger, obs.metrics, nil
}

// ComponentsScoped returns logger and metrics scoped to a specific component
func (obs *observability) ComponentsScoped(component string) (ports.Logger, ports.Metrics, error) {
	if obs.logger == nil || obs.metrics == nil {
		return nil, nil, fmt.Errorf("observability not initialized")
	}

	return obs.getScopedLogger(component), obs.getScopedMetrics(component), nil
}

// LoggerScoped returns a logger scoped to a specific component
func (obs *observability) LoggerScoped(component string) (ports.Logger, error) {
	if obs.logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return obs.getScopedLogger(component), nil
}

// MetricsScoped returns metrics scoped to a specific component
func (obs *observability) MetricsScoped(component string) (ports.Metrics, error) {
	if obs.metrics == nil {
		return nil, fmt.Errorf("metrics not initialized")
	}
	return obs.getScopedMetrics(component), nil
}

// Flush drains adapters that buffer output. Metrics go first so that a
// failed push can still be logged before the logger drains.
func (obs *observability) Flush(ctx context.Context) error {
	var errs []error

	if f, ok := obs.metrics.(ports.Flusher); ok {
		if err := f.Flush(ctx); err != nil {
			obs.logger.Error("failed to flush metrics", "error", err)
			errs = append(errs, err)
		}
	}

	if f, ok := obs.logger.(ports.Flusher); ok {
		if err := f.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// getScopedLogger creates a logger with component and service context
func (obs *observability) getScopedLogger(component string) ports.Logger {
	return obs.logger.WithFields(map[string]interface{}{
		"service":   obs.config.ServiceName,
		"version":   obs.config.Version,
		"env":       obs.config.Environment,
		"component": component,
	})
}

// getScopedMetrics creates metrics with component and service tags
func (obs *observability) getScopedMetrics(component string) ports.Metrics {
	return obs.metrics.WithTags(map[string]string{
		"service":   obs.config.ServiceName,
		"env":       obs.config.Environment,
		"component": component,
	})
}

package mocks

import (
	"context"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
)

type nopLogger struct{}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() ports.Logger { return nopLogger{} }

func (nopLogger) Info(string, ...interface{})                      {}
func (nopLogger) Error(string, ...interface{})                     {}
func (nopLogger) Debug(string, ...interface{})                     {}
func (l nopLogger) WithFields(map[string]interface{}) ports.Logger { return l }

type nopMetrics struct{}

// NewNopMetrics returns metrics that record nothing
func NewNopMetrics() ports.Metrics { return nopMetrics{} }

func (nopMetrics) IncrementCounter(string, map[string]string)         {}
func (nopMetrics) RecordHistogram(string, float64, map[string]string) {}
func (nopMetrics) RecordGauge(string, float64, map[string]string)     {}
func (m nopMetrics) WithTags(map[string]string) ports.Metrics         { return m }

type nopObservability struct {
	logger  ports.Logger
	metrics ports.Metrics
}

// NewNopObservability returns an Observability backed by the given adapters,
// or by discarding ones when nil
func NewNopObservability(logger ports.Logger, metrics ports.Metrics) ports.Observability {
	if logger == nil {
		logger = NewNopLogger()
	}
	if metrics == nil {
		metrics = NewNopMetrics()
	}
	return &nopObservability{logger: logger, metrics: metrics}
}

func (o *nopObservability) Components() (ports.Logger, ports.Metrics, error) {
	return o.logger, o.metrics, nil
}

func (o *nopObservability) ComponentsScoped(component string) (ports.Logger, ports.Metrics, error) {
	return o.logger.WithFields(map[string]interface{}{"component": component}),
		o.metrics.WithTags(map[string]string{"component": component}), nil
}

func (o *nopObservability) LoggerScoped(component string) (ports.Logger, error) {
	return o.logger.WithFields(map[string]interface{}{"component": component}), nil
}

func (o *nopObservability) MetricsScoped(component string) (ports.Metrics, error) {
	return o.metrics.WithTags(map[string]string{"component": component}), nil
}

func (o *nopObservability) Flush(context.Context) error { return nil }

// Package mocks provides mock implementations of the application ports for testing
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
)

// MockLogger is a mock implementation of Logger interface
type MockLogger struct {
	mock.Mock
}

// Info mocks the Info method
func (m *MockLogger) Info(msg string, fields ...interface{}) {
	m.Called(msg, fields)
}

// Error mocks the Error method
func (m *MockLogger) Error(msg string, fields ...interface{}) {
	m.Called(msg, fields)
}

// Debug mocks the Debug method
func (m *MockLogger) Debug(msg string, fields ...interface{}) {
	m.Called(msg, fields)
}

// WithFields mocks the WithFields method
func (m *MockLogger) WithFields(fields map[string]interface{}) ports.Logger {
	args := m.Called(fields)
	if logger, ok := args.Get(0).(ports.Logger); ok {
		return logger
	}
	return m
}

// MockMetrics is a mock implementation of Metrics interface
type MockMetrics struct {
	mock.Mock
}

// IncrementCounter mocks the IncrementCounter method
func (m *MockMetrics) IncrementCounter(name string, tags map[string]string) {
	m.Called(name, tags)
}

// RecordHistogram mocks the RecordHistogram method
func (m *MockMetrics) RecordHistogram(name string, value float64, tags map[string]string) {
	m.Called(name, value, tags)
}

// RecordGauge mocks the RecordGauge method
func (m *MockMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	m.Called(name, value, tags)
}

// WithTags mocks the WithTags method
func (m *MockMetrics) WithTags(tags map[string]string) ports.Metrics {
	args := m.Called(tags)
	if metrics, ok := args.Get(0).(ports.Metrics); ok {
		return metrics
	}
	return m
}

// MockObservability is a mock implementation of Observability interface
type MockObservability struct {
	mock.Mock
}

// Components mocks the Components method
func (m *MockObservability) Components() (ports.Logger, ports.Metrics, error) {
	args := m.Called()
	return loggerArg(args, 0), metricsArg(args, 1), args.Error(2)
}

// ComponentsScoped mocks the ComponentsScoped method
func (m *MockObservability) ComponentsScoped(component string) (ports.Logger, ports.Metrics, error) {
	args := m.Called(component)
	return loggerArg(args, 0), metricsArg(args, 1), args.Error(2)
}

// LoggerScoped mocks the LoggerScoped method
func (m *MockObservability) LoggerScoped(component string) (ports.Logger, error) {
	args := m.Called(component)
	return loggerArg(args, 0), args.Error(1)
}

// MetricsScoped mocks the MetricsScoped method
func (m *MockObservability) MetricsScoped(component string) (ports.Metrics, error) {
	args := m.Called(component)
	return metricsArg(args, 0), args.Error(1)
}

// Flush mocks the Flush method
func (m *MockObservability) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func loggerArg(args mock.Arguments, i int) ports.Logger {
	if logger, ok := args.Get(i).(ports.Logger); ok {
		return logger
	}
	return nil
}

func metricsArg(args mock.Arguments, i int) ports.Metrics {
	if metrics, ok := args.Get(i).(ports.Metrics); ok {
		return metrics
	}
	return nil
}

package cloudwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
)

const maxDatumsPerCall = 20

type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metrics implements ports.Metrics using AWS CloudWatch Metrics.
// Data points are buffered and sent in batches; Flush drains the buffer.
type Metrics struct {
	client      putMetricDataAPI
	namespace   string
	buffer      *buffer
	defaultTags map[string]string
}

type buffer struct {
	mu    sync.Mutex
	datum []types.MetricDatum
}

// NewMetrics creates a CloudWatch metrics client from a resolved AWS config
func NewMetrics(awsCfg aws.Config, namespace string) *Metrics {
	return newMetrics(cloudwatch.NewFromConfig(awsCfg), namespace)
}

func newMetrics(client putMetricDataAPI, namespace string) *Metrics {
	return &Metrics{
		client:      client,
		namespace:   namespace,
		buffer:      &buffer{datum: make([]types.MetricDatum, 0, maxDatumsPerCall)},
		defaultTags: make(map[string]string),
	}
}

// WithTags returns a new Metrics instance with additional default tags
func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{
		client:      m.client,
		namespace:   m.namespace,
		buffer:      m.buffer,
		defaultTags: m.mergeTags(tags),
	}
}

// IncrementCounter increments a counter metric
func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	m.add(name, 1, types.StandardUnitCount, tags)
}

// RecordHistogram records a value in a histogram
func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	m.add(name, value, types.StandardUnitNone, tags)
}

// RecordGauge records a gauge value
func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	m.add(name, value, types.StandardUnitNone, tags)
}

func (m *Metrics) add(name string, value float64, unit types.StandardUnit, tags map[string]string) {
	mergedTags := m.mergeTags(tags)

	datum := types.MetricDatum{
		MetricName: aws.String(m.buildMetricName(name, mergedTags)),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
		Dimensions: tagsToDimensions(mergedTags),
	}

	m.buffer.mu.Lock()
	m.buffer.datum = append(m.buffer.datum, datum)
	m.buffer.mu.Unlock()
}

// Flush sends every buffered data point, in batches
func (m *Metrics) Flush(ctx context.Context) error {
	m.buffer.mu.Lock()
	pending := m.buffer.datum
	m.buffer.datum = make([]types.MetricDatum, 0, maxDatumsPerCall)
	m.buffer.mu.Unlock()

	for start := 0; start < len(pending); start += maxDatumsPerCall {
		end := start + maxDatumsPerCall
		if end > len(pending) {
			end = len(pending)
		}

		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: pending[start:end],
		})
		if err != nil {
			return fmt.Errorf("failed to put metric data: %w", err)
		}
	}
	return nil
}

// mergeTags merges default tags with provided tags
func (m *Metrics) mergeTags(tags map[string]string) map[string]string {
	merged := make(map[string]string, len(m.defaultTags)+len(tags))
	for k, v := range m.defaultTags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return merged
}

// buildMetricName builds the metric name with optional component prefix
func (m *Metrics) buildMetricName(name string, tags map[string]string) string {
	if component, ok := tags["component"]; ok && component != "" {
		return fmt.Sprintf("%s.%s", component, name)
	}
	return name
}

// tagsToDimensions converts tags to CloudWatch dimensions
func tagsToDimensions(tags map[string]string) []types.Dimension {
	dimensions := make([]types.Dimension, 0, len(tags))
	for name, value := range tags {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}
	return dimensions
}

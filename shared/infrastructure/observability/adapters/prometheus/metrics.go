// Package prometheus adapts ports.Metrics to the Prometheus client library.
// A batch task does not live long enough to be scraped, so the collected
// registry is pushed to a Pushgateway when the run flushes.
package prometheus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
)

// Metrics implements ports.Metrics with lazily registered vectors.
//
// Label names of a metric are fixed by its first use. Later calls fill
// missing labels with "" and drop unknown ones.
type Metrics struct {
	collectors  *collectors
	defaultTags map[string]string
}

type collectors struct {
	mu         sync.Mutex
	namespace  string
	registry   *prometheus.Registry
	pusher     *push.Pusher
	counters   map[string]*vec[*prometheus.CounterVec]
	histograms map[string]*vec[*prometheus.HistogramVec]
	gauges     map[string]*vec[*prometheus.GaugeVec]
}

type vec[T any] struct {
	labels    []string
	collector T
}

// Options configures the registry and the push destination
type Options struct {
	Namespace      string
	PushgatewayURL string
	Job            string
	// Grouping labels attached to the push, e.g. run_id
	Grouping map[string]string
}

// NewMetrics creates a Prometheus-backed metrics instance on a private registry
func NewMetrics(opts Options) *Metrics {
	registry := prometheus.NewRegistry()

	var pusher *push.Pusher
	if opts.PushgatewayURL != "" {
		pusher = push.New(opts.PushgatewayURL, opts.Job).Gatherer(registry)
		for k, v := range opts.Grouping {
			pusher = pusher.Grouping(k, v)
		}
	}

	return &Metrics{
		collectors: &collectors{
			namespace:  sanitize(opts.Namespace),
			registry:   registry,
			pusher:     pusher,
			counters:   make(map[string]*vec[*prometheus.CounterVec]),
			histograms: make(map[string]*vec[*prometheus.HistogramVec]),
			gauges:     make(map[string]*vec[*prometheus.GaugeVec]),
		},
		defaultTags: make(map[string]string),
	}
}

// Registry exposes the underlying registry (useful for testing)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.collectors.registry
}

// IncrementCounter increments a counter metric
func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	tags = m.mergeTags(tags)
	c := m.collectors

	c.mu.Lock()
	v, ok := c.counters[name]
	if !ok {
		labels := labelNames(tags)
		v = &vec[*prometheus.CounterVec]{
			labels: labels,
			collector: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: c.namespace,
				Name:      sanitize(name) + "_total",
				Help:      fmt.Sprintf("Counter %s", name),
			}, labels),
		}
		c.registry.MustRegister(v.collector)
		c.counters[name] = v
	}
	c.mu.Unlock()

	v.collector.WithLabelValues(labelValues(v.labels, tags)...).Inc()
}

// RecordHistogram records a value in a histogram distribution
func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	tags = m.mergeTags(tags)
	c := m.collectors

	c.mu.Lock()
	v, ok := c.histograms[name]
	if !ok {
		labels := labelNames(tags)
		v = &vec[*prometheus.HistogramVec]{
			labels: labels,
			collector: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: c.namespace,
				Name:      sanitize(name),
				Help:      fmt.Sprintf("Histogram %s", name),
				Buckets:   prometheus.DefBuckets,
			}, labels),
		}
		c.registry.MustRegister(v.collector)
		c.histograms[name] = v
	}
	c.mu.Unlock()

	v.collector.WithLabelValues(labelValues(v.labels, tags)...).Observe(value)
}

// RecordGauge records a point-in-time measurement
func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	tags = m.mergeTags(tags)
	c := m.collectors

	c.mu.Lock()
	v, ok := c.gauges[name]
	if !ok {
		labels := labelNames(tags)
		v = &vec[*prometheus.GaugeVec]{
			labels: labels,
			collector: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: c.namespace,
				Name:      sanitize(name),
				Help:      fmt.Sprintf("Gauge %s", name),
			}, labels),
		}
		c.registry.MustRegister(v.collector)
		c.gauges[name] = v
	}
	c.mu.Unlock()

	v.collector.WithLabelValues(labelValues(v.labels, tags)...).Set(value)
}

// WithTags returns a new Metrics instance with additional default tags
func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{
		collectors:  m.collectors,
		defaultTags: m.mergeTags(tags),
	}
}

// Flush pushes the registry to the Pushgateway, if one is configured
func (m *Metrics) Flush(ctx context.Context) error {
	if m.collectors.pusher == nil {
		return nil
	}
	if err := m.collectors.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}

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

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, sanitize(k))
	}
	sort.Strings(names)
	return names
}

func labelValues(names []string, tags map[string]string) []string {
	byLabel := make(map[string]string, len(tags))
	for k, v := range tags {
		byLabel[sanitize(k)] = v
	}

	values := make([]string, len(names))
	for i, name := range names {
		values[i] = byLabel[name]
	}
	return values
}

// sanitize maps dotted metric names onto the Prometheus charset
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

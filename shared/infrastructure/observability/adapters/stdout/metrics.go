package stdout

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
)

// Metrics implements ports.Metrics by logging every data point.
// Values are also kept in memory so tests and the run summary can read them back.
type Metrics struct {
	tags   map[string]string
	logger *log.Logger
	json   bool
	store  *store
}

// store is shared by every tagged copy of a Metrics
type store struct {
	mu         sync.RWMutex
	counters   map[string]int64
	histograms map[string][]float64
	gauges     map[string]float64
}

// MetricsOptions configures output format
type MetricsOptions struct {
	JSON bool
	// Output defaults to os.Stdout
	Output io.Writer
}

// NewMetrics creates a new stdout metrics instance
func NewMetrics(opts MetricsOptions) *Metrics {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	return &Metrics{
		tags:   make(map[string]string),
		logger: log.New(out, "", 0),
		json:   opts.JSON,
		store: &store{
			counters:   make(map[string]int64),
			histograms: make(map[string][]float64),
			gauges:     make(map[string]float64),
		},
	}
}

// IncrementCounter increments a counter metric
func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	allTags := m.combineTags(tags)
	key := buildKey(name, allTags)

	m.store.mu.Lock()
	m.store.counters[key]++
	value := m.store.counters[key]
	m.store.mu.Unlock()

	m.logMetric("COUNTER", name, float64(value), allTags, nil)
}

// RecordHistogram records a histogram value
func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	allTags := m.combineTags(tags)
	key := buildKey(name, allTags)

	m.store.mu.Lock()
	m.store.histograms[key] = append(m.store.histograms[key], value)
	stats := calculateStats(m.store.histograms[key])
	m.store.mu.Unlock()

	m.logMetric("HISTOGRAM", name, value, allTags, &stats)
}

// RecordGauge records a gauge value
func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	allTags := m.combineTags(tags)
	key := buildKey(name, allTags)

	m.store.mu.Lock()
	m.store.gauges[key] = value
	m.store.mu.Unlock()

	m.logMetric("GAUGE", name, value, allTags, nil)
}

// WithTags returns a new Metrics instance with additional tags
func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{
		tags:   m.combineTags(tags),
		logger: m.logger,
		json:   m.json,
		store:  m.store,
	}
}

// GetCounter returns the current value of a counter (useful for testing)
func (m *Metrics) GetCounter(name string, tags map[string]string) int64 {
	key := buildKey(name, m.combineTags(tags))

	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return m.store.counters[key]
}

// GetHistogram returns all values recorded for a histogram (useful for testing)
func (m *Metrics) GetHistogram(name string, tags map[string]string) []float64 {
	key := buildKey(name, m.combineTags(tags))

	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	values := m.store.histograms[key]
	result := make([]float64, len(values))
	copy(result, values)
	return result
}

// GetGauge returns the current value of a gauge (useful for testing)
func (m *Metrics) GetGauge(name string, tags map[string]string) float64 {
	key := buildKey(name, m.combineTags(tags))

	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return m.store.gauges[key]
}

// buildKey creates a unique key for a metric with tags
func buildKey(name string, tags map[string]string) string {
	if len(tags) == 0 {
		return name
	}
	return fmt.Sprintf("%s{%s}", name, formatTags(tags, ":", ","))
}

// formatTags renders tags in a stable order
func formatTags(tags map[string]string, kvSep, sep string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+kvSep+tags[k])
	}
	return strings.Join(pairs, sep)
}

// logMetric writes one data point
func (m *Metrics) logMetric(metricType string, name string, value float64, tags map[string]string, stats *histogramStats) {
	timestamp := time.Now().UTC().Format(time.RFC3339)

	if m.json {
		entry := map[string]interface{}{
			"timestamp": timestamp,
			"type":      "metric",
			"metric":    metricType,
			"name":      name,
			"value":     value,
			"tags":      tags,
		}
		if stats != nil {
			entry["stats"] = map[string]interface{}{
				"count": stats.count,
				"min":   stats.min,
				"max":   stats.max,
				"avg":   stats.avg,
			}
		}
		data, err := json.Marshal(entry)
		if err != nil {
			m.logger.Printf("Failed to marshal metric: %v", err)
			return
		}
		m.logger.Println(string(data))
		return
	}

	tagStr := ""
	if len(tags) > 0 {
		tagStr = " " + formatTags(tags, "=", " ")
	}

	if stats != nil {
		m.logger.Printf("%s [METRIC] HISTOGRAM %s=%.2f count=%d min=%.2f max=%.2f avg=%.2f%s",
			timestamp, name, value, stats.count, stats.min, stats.max, stats.avg, tagStr)
		return
	}
	m.logger.Printf("%s [METRIC] %s %s=%.2f%s", timestamp, metricType, name, value, tagStr)
}

// combineTags merges default tags with provided tags
func (m *Metrics) combineTags(tags map[string]string) map[string]string {
	allTags := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		allTags[k] = v
	}
	for k, v := range tags {
		allTags[k] = v
	}
	return allTags
}

// histogramStats holds basic statistics for histogram values
type histogramStats struct {
	count int
	min   float64
	max   float64
	avg   float64
}

// calculateStats computes basic statistics for histogram values
func calculateStats(values []float64) histogramStats {
	if len(values) == 0 {
		return histogramStats{}
	}

	stats := histogramStats{
		count: len(values),
		min:   values[0],
		max:   values[0],
	}

	sum := 0.0
	for _, v := range values {
		sum += v
		if v < stats.min {
			stats.min = v
		}
		if v > stats.max {
			stats.max = v
		}
	}

	stats.avg = sum / float64(len(values))
	return stats
}

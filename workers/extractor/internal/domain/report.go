package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
)

// PublishResult is the outcome of publishing (or refusing to publish) one data row
type PublishResult struct {
	// Row is the 1-based data row number; the header is row 0
	Row      int    `json:"row"`
	Success  bool   `json:"success"`
	Attempts int    `json:"attempts"`
	EventID  string `json:"event_id,omitempty"`
	Err      error  `json:"-"`
}

// RunReport aggregates the results of one extraction run
type RunReport struct {
	Object             ports.ObjectRef `json:"object"`
	BytesFetched       int64           `json:"bytes_fetched"`
	RowsParsed         int             `json:"rows_parsed"`
	EventsPublished    int             `json:"events_published"`
	PublishFailures    int             `json:"publish_failures"`
	ValidationFailures int             `json:"validation_failures"`
	Aborted            bool            `json:"aborted"`
	Duration           time.Duration   `json:"duration"`
	Failures           []FailedRow     `json:"failures,omitempty"`
}

// FailedRow is the serialisable form of a failed PublishResult
type FailedRow struct {
	Row      int    `json:"row"`
	Attempts int    `json:"attempts"`
	Reason   string `json:"reason"`
}

func NewRunReport(object ports.ObjectRef) *RunReport {
	return &RunReport{Object: object}
}

// Record adds one row outcome to the report
func (r *RunReport) Record(result PublishResult) {
	r.RowsParsed++

	if result.Success {
		r.EventsPublished++
		return
	}

	if errors.Is(result.Err, ErrValidation) {
		r.ValidationFailures++
	} else {
		r.PublishFailures++
	}

	reason := "unknown"
	if result.Err != nil {
		reason = result.Err.Error()
	}
	r.Failures = append(r.Failures, FailedRow{
		Row:      result.Row,
		Attempts: result.Attempts,
		Reason:   reason,
	})
}

// Err summarises row failures as a single error, or nil when every row succeeded
func (r *RunReport) Err() error {
	switch {
	case r.PublishFailures > 0:
		return fmt.Errorf("%w: %d of %d rows failed to publish", ErrPublish, r.PublishFailures, r.RowsParsed)
	case r.ValidationFailures > 0:
		return fmt.Errorf("%w: %d of %d rows rejected", ErrValidation, r.ValidationFailures, r.RowsParsed)
	default:
		return nil
	}
}

// Fields flattens the report into logger key/value pairs
func (r *RunReport) Fields() []interface{} {
	return []interface{}{
		"bucket", r.Object.Bucket,
		"key", r.Object.Key,
		"bytes_fetched", r.BytesFetched,
		"rows_parsed", r.RowsParsed,
		"events_published", r.EventsPublished,
		"publish_failures", r.PublishFailures,
		"validation_failures", r.ValidationFailures,
		"aborted", r.Aborted,
		"duration_ms", r.Duration.Milliseconds(),
	}
}

package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
)

// Fixed identifiers of every extraction event. Downstream rules match on
// these, so they are not configurable.
const (
	EventBusName    = "default"
	EventSource     = "eventbridge-s3-extraction-task"
	EventDetailType = "s3RecordExtraction"
	StatusExtracted = "extracted"
)

// FieldSeparator joins header and row fields into the event detail
const FieldSeparator = ","

// ExtractionEvent is the detail payload published for one data row
type ExtractionEvent struct {
	Status  string `json:"status"`
	Headers string `json:"headers"`
	Data    string `json:"data"`
}

// NewExtractionEvent builds the detail for row under header
func NewExtractionEvent(header, row []string) ExtractionEvent {
	return ExtractionEvent{
		Status:  StatusExtracted,
		Headers: strings.Join(header, FieldSeparator),
		Data:    strings.Join(row, FieldSeparator),
	}
}

// ToBusEvent wraps the detail with the fixed transport metadata, stamped at now
func (e ExtractionEvent) ToBusEvent(now time.Time) (*ports.BusEvent, error) {
	detail, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event detail: %w", err)
	}

	return &ports.BusEvent{
		Bus:        EventBusName,
		Source:     EventSource,
		DetailType: EventDetailType,
		Time:       now,
		Detail:     detail,
	}, nil
}

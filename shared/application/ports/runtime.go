package ports

import (
	"context"
	"encoding/json"
	"time"
)

// Request types understood by extraction handlers
const (
	// RequestTypeObject carries an ObjectRef payload
	RequestTypeObject = "extraction.object"
	// RequestTypeS3Notification carries an events.S3Event payload with one record
	RequestTypeS3Notification = "s3.notification"
)

// ObjectRef names one object in a bucket
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type RuntimeRequest struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Type      string            `json:"type"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp time.Time         `json:"timestamp"`
}

func (r *RuntimeRequest) Unmarshal(v interface{}) error {
	return json.Unmarshal(r.Payload, v)
}

type RuntimeResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Handler processes a single runtime request
type Handler interface {
	Handle(ctx context.Context, req RuntimeRequest) (RuntimeResponse, error)
}

// Runtime hosts a Handler on a platform (one-shot task, Lambda)
type Runtime interface {
	Start(ctx context.Context) error
}

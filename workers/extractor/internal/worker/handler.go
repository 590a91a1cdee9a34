package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/workers/extractor/internal/domain"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/workers/extractor/internal/domain/service"
)

// Extractor runs one extraction
type Extractor interface {
	Run(ctx context.Context, object ports.ObjectRef, scratchPath string) (*domain.RunReport, error)
}

// ExtractionHandler adapts runtime requests to extraction runs
type ExtractionHandler struct {
	extractor   Extractor
	scratchPath string
	logger      ports.Logger
	metrics     ports.Metrics
	marshal     func(v interface{}) ([]byte, error)
}

func NewExtractionHandler(extractor Extractor, scratchPath string, obs ports.Observability) (*ExtractionHandler, error) {
	logger, metrics, err := obs.ComponentsScoped("handler.extraction")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	return &ExtractionHandler{
		extractor:   extractor,
		scratchPath: scratchPath,
		logger:      logger,
		metrics:     metrics,
		marshal:     json.Marshal,
	}, nil
}

// Handle runs the extraction named by req. Failures are returned both as
// an unsuccessful response and as an error carrying the domain error kind.
func (h *ExtractionHandler) Handle(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	startTime := time.Now()
	defer func() {
		h.metrics.RecordHistogram("handler.duration", time.Since(startTime).Seconds(),
			map[string]string{"source": req.Source})
	}()

	logger := h.logger.WithFields(map[string]interface{}{
		"request_id": req.ID,
		"source":     req.Source,
	})

	object, err := objectFromRequest(req)
	if err != nil {
		logger.Error("Failed to parse request payload", "type", req.Type, "error", err)
		h.metrics.IncrementCounter("handler.errors", map[string]string{"error_type": "invalid_payload"})
		return errorResponse(nil, err), err
	}

	report, err := h.extractor.Run(ctx, object, h.scratchPathFor(req))
	if err != nil {
		h.metrics.IncrementCounter("handler.errors", map[string]string{"error_type": errorType(err)})
		logger.Error("Extraction failed", "bucket", object.Bucket, "key", object.Key, "error", err)
		return errorResponse(report, err), err
	}

	// The run succeeded; only the response data is lost
	data, err := h.marshal(report)
	if err != nil {
		logger.Error("Failed to encode run report", "bucket", object.Bucket, "key", object.Key, "error", err)
		h.metrics.IncrementCounter("handler.errors", map[string]string{"error_type": "encode_report"})
		return ports.RuntimeResponse{Success: true}, nil
	}

	h.metrics.IncrementCounter("handler.success", nil)
	return ports.RuntimeResponse{Success: true, Data: data}, nil
}

// scratchPathFor keeps the configured path for one-shot tasks and gives
// every other request its own file, so warm Lambda containers never share one
func (h *ExtractionHandler) scratchPathFor(req ports.RuntimeRequest) string {
	if req.Source == "task" {
		return h.scratchPath
	}
	return service.ScratchPath(h.scratchPath, req.ID)
}

func objectFromRequest(req ports.RuntimeRequest) (ports.ObjectRef, error) {
	switch req.Type {
	case ports.RequestTypeObject, "":
		var object ports.ObjectRef
		if err := req.Unmarshal(&object); err != nil {
			return object, domain.ConfigurationError(fmt.Errorf("invalid object reference: %w", err))
		}
		return object, nil

	case ports.RequestTypeS3Notification:
		var event events.S3Event
		if err := req.Unmarshal(&event); err != nil {
			return ports.ObjectRef{}, domain.ConfigurationError(fmt.Errorf("invalid S3 notification: %w", err))
		}
		if len(event.Records) != 1 {
			return ports.ObjectRef{}, domain.ConfigurationError(
				fmt.Errorf("S3 notification must carry exactly one record, got %d", len(event.Records)))
		}
		return objectFromRecord(event.Records[0]), nil

	default:
		return ports.ObjectRef{}, domain.ConfigurationError(fmt.Errorf("unsupported request type %q", req.Type))
	}
}

func objectFromRecord(record events.S3EventRecord) ports.ObjectRef {
	key := record.S3.Object.URLDecodedKey
	if key == "" {
		key = record.S3.Object.Key
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
	}

	return ports.ObjectRef{Bucket: record.S3.Bucket.Name, Key: key}
}

func errorResponse(report *domain.RunReport, err error) ports.RuntimeResponse {
	resp := ports.RuntimeResponse{Success: false, Error: err.Error()}
	if report != nil {
		if data, marshalErr := json.Marshal(report); marshalErr == nil {
			resp.Data = data
		}
	}
	return resp
}

// errorType categorizes errors for metrics tracking
func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return "configuration"
	case errors.Is(err, domain.ErrFetch):
		return "fetch"
	case errors.Is(err, domain.ErrParse):
		return "parse"
	case errors.Is(err, domain.ErrPublish):
		return "publish"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrDependency):
		return "dependency"
	default:
		return "unknown"
	}
}

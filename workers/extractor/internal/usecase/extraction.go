package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/workers/extractor/internal/domain"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/workers/extractor/internal/domain/service"
)

// ExtractionTask fetches one object, parses it and publishes one event per data row
type ExtractionTask struct {
	storage   ports.Storage
	publisher *Publisher
	cfg       config.ExtractionConfig
	logger    ports.Logger
	metrics   ports.Metrics
	now       func() time.Time
}

func NewExtractionTask(
	storage ports.Storage,
	bus ports.EventBus,
	cfg *config.Config,
	obs ports.Observability,
) (*ExtractionTask, error) {
	logger, metrics, err := obs.ComponentsScoped("usecase.extraction")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	return &ExtractionTask{
		storage:   storage,
		publisher: NewPublisher(bus, cfg.Retry, logger, metrics),
		cfg:       cfg.Extraction,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}, nil
}

// Run extracts object using scratchPath as the local copy. The report is
// returned whenever the run got past configuration, even on failure.
func (t *ExtractionTask) Run(ctx context.Context, object ports.ObjectRef, scratchPath string) (*domain.RunReport, error) {
	if err := validateObject(object); err != nil {
		return nil, err
	}

	startTime := time.Now()
	report := domain.NewRunReport(object)
	logger := t.logger.WithFields(map[string]interface{}{
		"bucket": object.Bucket,
		"key":    object.Key,
	})

	defer func() {
		report.Duration = time.Since(startTime)
		t.metrics.RecordHistogram("extraction.duration", report.Duration.Seconds(), nil)
		t.metrics.RecordGauge("extraction.rows", float64(report.RowsParsed), nil)
		logger.Info("extraction finished", report.Fields()...)
	}()

	logger.Info("starting extraction", "scratch_path", scratchPath)

	scratch, err := service.AcquireScratch(scratchPath)
	if err != nil {
		return report, domain.FetchError(object.Bucket, object.Key, err)
	}
	defer func() {
		if err := scratch.Release(); err != nil {
			logger.Error("failed to remove scratch file", "path", scratch.Path(), "error", err)
		}
	}()

	// 1. Fetch
	n, err := t.storage.Download(ctx, object.Bucket, object.Key, scratch.File())
	if err != nil {
		logger.Error("failed to fetch object", "error", err)
		return report, domain.FetchError(object.Bucket, object.Key, err)
	}
	report.BytesFetched = n
	logger.Info("object fetched", "bytes", n)

	if err := scratch.Rewind(); err != nil {
		return report, domain.FetchError(object.Bucket, object.Key, err)
	}

	// 2. Parse + publish, row by row
	if err := t.extractRows(ctx, service.NewRowReader(scratch.File()), report, logger); err != nil {
		return report, err
	}

	return report, report.Err()
}

func (t *ExtractionTask) extractRows(ctx context.Context, reader *service.RowReader, report *domain.RunReport, logger ports.Logger) error {
	header, err := reader.Header()
	if errors.Is(err, io.EOF) {
		logger.Info("object is empty, nothing to publish")
		return nil
	}
	if err != nil {
		logger.Error("failed to parse header", "line", service.ErrorLine(err), "error", err)
		// the read error already names its line
		return domain.ParseError(0, err)
	}

	for {
		row, n, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			logger.Error("failed to parse row", "after_row", report.RowsParsed, "line", service.ErrorLine(err), "error", err)
			return domain.ParseError(0, err)
		}

		result := t.extractRow(ctx, header, row, n)
		report.Record(result)

		if result.Success {
			continue
		}

		if errors.Is(result.Err, domain.ErrValidation) {
			logger.Info("row rejected", "row", n, "fields", len(row), "header_fields", len(header))
			continue
		}

		if t.cfg.FailurePolicy == config.FailurePolicyAbort || ctx.Err() != nil {
			report.Aborted = true
			logger.Error("aborting extraction after publish failure", "row", n)
			return nil
		}
	}
}

func (t *ExtractionTask) extractRow(ctx context.Context, header, row []string, n int) domain.PublishResult {
	if t.cfg.StrictRowArity && !service.MatchesArity(header, row) {
		return domain.PublishResult{
			Row: n,
			Err: domain.ValidationError(n, len(row), len(header)),
		}
	}

	event, err := domain.NewExtractionEvent(header, row).ToBusEvent(t.now())
	if err != nil {
		return domain.PublishResult{Row: n, Err: domain.PublishError(n, err)}
	}

	return t.publisher.Publish(ctx, n, event)
}

func validateObject(object ports.ObjectRef) error {
	switch {
	case object.Bucket == "" && object.Key == "":
		return domain.ConfigurationError(errors.New("S3_BUCKET_NAME and S3_OBJECT_KEY must be set"))
	case object.Bucket == "":
		return domain.ConfigurationError(errors.New("S3_BUCKET_NAME must be set"))
	case object.Key == "":
		return domain.ConfigurationError(errors.New("S3_OBJECT_KEY must be set"))
	default:
		return nil
	}
}

package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/awsclient"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
)

type downloaderAPI interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error)
}

// client implements ports.Storage for AWS S3
type client struct {
	downloader downloaderAPI
	logger     ports.Logger
	metrics    ports.Metrics
}

// New creates a new S3 storage client.
// Only configuration is resolved here; the bucket is not contacted until Download.
func New(cfg *config.StorageConfig, obs ports.Observability) (ports.Storage, error) {
	logger, metrics, err := obs.ComponentsScoped("storage.s3")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	awsCfg, err := awsclient.Load(context.Background(), awsclient.Options{
		Region:          cfg.S3.Region,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		MaxRetries:      cfg.MaxRetries,
		Timeout:         cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 client initialized", "region", cfg.S3.Region, "endpoint", cfg.S3.Endpoint)

	return newClient(manager.NewDownloader(s3Client), logger, metrics), nil
}

func newClient(downloader downloaderAPI, logger ports.Logger, metrics ports.Metrics) *client {
	return &client{
		downloader: downloader,
		logger:     logger,
		metrics:    metrics,
	}
}

// Download fetches the whole object into w
func (c *client) Download(ctx context.Context, bucket, key string, w io.WriterAt) (int64, error) {
	start := time.Now()

	n, err := c.downloader.Download(ctx, w, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		switch {
		case isNotFoundError(err):
			c.logger.Info("Object not found", "bucket", bucket, "key", key)
			c.metrics.IncrementCounter("s3.get.not_found", nil)
			return 0, fmt.Errorf("s3://%s/%s: %w", bucket, key, ports.ErrObjectNotFound)

		case isInvalidRangeError(err):
			// the ranged GET of a zero-byte object is answered with InvalidRange
			c.logger.Info("Object is empty", "bucket", bucket, "key", key)
			c.metrics.IncrementCounter("s3.get.success", nil)
			return 0, nil
		}

		c.logger.Error("Failed to download object",
			"error", err,
			"bucket", bucket,
			"key", key)
		c.metrics.IncrementCounter("s3.get.errors", map[string]string{"error_code": errorCode(err)})
		return 0, fmt.Errorf("failed to download object: %w", err)
	}

	duration := time.Since(start)
	c.logger.Info("Object downloaded successfully",
		"bucket", bucket,
		"key", key,
		"size_bytes", n,
		"duration_ms", duration.Milliseconds())

	c.metrics.IncrementCounter("s3.get.success", nil)
	c.metrics.RecordHistogram("s3.get.duration", float64(duration.Milliseconds()), nil)
	c.metrics.RecordHistogram("storage.download.bytes", float64(n), nil)

	return n, nil
}

// isNotFoundError checks if an error is a not found error
func isNotFoundError(err error) bool {
	var nsk *s3types.NoSuchKey
	var nse *s3types.NotFound
	var nsb *s3types.NoSuchBucket
	return errors.As(err, &nsk) || errors.As(err, &nse) || errors.As(err, &nsb)
}

func isInvalidRangeError(err error) bool {
	return errorCode(err) == "InvalidRange"
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return "unknown"
}

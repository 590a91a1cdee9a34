package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
)

// Storage implements ports.Storage using the local filesystem.
// A bucket is a directory under basePath and a key is a relative path inside it.
type Storage struct {
	basePath string
	logger   ports.Logger
	metrics  ports.Metrics
}

// NewStorage creates a new filesystem-based object storage
func NewStorage(basePath string, obs ports.Observability) (*Storage, error) {
	logger, metrics, err := obs.ComponentsScoped("storage.filesystem")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	logger.Info("Filesystem storage initialized", "base_path", abs)

	return &Storage{
		basePath: abs,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Download copies the object file into w
func (s *Storage) Download(ctx context.Context, bucket, key string, w io.WriterAt) (int64, error) {
	startTime := time.Now()

	objectPath, err := s.getObjectPath(bucket, key)
	if err != nil {
		s.metrics.IncrementCounter("storage.get.errors", map[string]string{"error": "invalid_key"})
		return 0, err
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	file, err := os.Open(objectPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("Object not found", "bucket", bucket, "key", key)
			s.metrics.IncrementCounter("storage.get.not_found", nil)
			return 0, fmt.Errorf("%s: %w", objectPath, ports.ErrObjectNotFound)
		}
		s.logger.Error("Failed to open object", "path", objectPath, "error", err)
		s.metrics.IncrementCounter("storage.get.errors", map[string]string{"error": "open"})
		return 0, fmt.Errorf("failed to open object: %w", err)
	}
	defer file.Close()

	n, err := io.Copy(io.NewOffsetWriter(w, 0), file)
	if err != nil {
		s.logger.Error("Failed to copy object", "path", objectPath, "error", err)
		s.metrics.IncrementCounter("storage.get.errors", map[string]string{"error": "copy"})
		return n, fmt.Errorf("failed to copy object: %w", err)
	}

	duration := time.Since(startTime)
	s.logger.Info("Object read successfully",
		"bucket", bucket,
		"key", key,
		"size_bytes", n,
		"duration_ms", duration.Milliseconds())
	s.metrics.IncrementCounter("storage.get.success", nil)
	s.metrics.RecordHistogram("storage.download.bytes", float64(n), nil)

	return n, nil
}

// getObjectPath resolves bucket/key under basePath, rejecting traversal outside it
func (s *Storage) getObjectPath(bucket, key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if bucket == "" || key == "" {
		return "", fmt.Errorf("%w: bucket and key are required", ports.ErrInvalidKey)
	}

	bucketPath := filepath.Join(s.basePath, filepath.FromSlash(bucket))
	objectPath := filepath.Join(bucketPath, filepath.FromSlash(key))

	rel, err := filepath.Rel(s.basePath, objectPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s/%s escapes base path", ports.ErrInvalidKey, bucket, key)
	}
	return objectPath, nil
}

package ports

import (
	"context"
	"errors"
	"io"
)

// Common storage errors
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
)

// Storage defines the read side of object storage used by the extractor.
// This interface abstracts the underlying storage implementation,
// allowing for easy swapping between different providers (S3, local filesystem).
type Storage interface {
	// Download writes the whole object identified by bucket and key into w
	// and returns the number of bytes written.
	Download(ctx context.Context, bucket, key string, w io.WriterAt) (int64, error)
}

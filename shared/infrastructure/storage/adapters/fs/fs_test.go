package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/mocks"
)

func newTestStorage(t *testing.T) (*Storage, string) {
	t.Helper()
	base := t.TempDir()
	s, err := NewStorage(base, mocks.NewNopObservability(nil, nil))
	require.NoError(t, err)
	return s, base
}

func TestDownload(t *testing.T) {
	s, base := newTestStorage(t)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "data", "in"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "data", "in", "file.csv"), []byte("a,b\n1,2\n"), 0o644))

	buf := manager.NewWriteAtBuffer(nil)
	n, err := s.Download(context.Background(), "data", "in/file.csv", buf)

	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.Equal(t, "a,b\n1,2\n", string(buf.Bytes()))
}

func TestDownload_Errors(t *testing.T) {
	tests := []struct {
		name    string
		bucket  string
		key     string
		wantErr error
	}{
		{"missing object", "data", "absent.csv", ports.ErrObjectNotFound},
		{"traversal", "data", "../../etc/passwd", ports.ErrInvalidKey},
		{"bucket traversal", "..", "x.csv", ports.ErrInvalidKey},
		{"empty key", "data", "", ports.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStorage(t)

			_, err := s.Download(context.Background(), tt.bucket, tt.key, manager.NewWriteAtBuffer(nil))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDownload_CancelledContext(t *testing.T) {
	s, base := newTestStorage(t)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "data", "f.csv"), []byte("a\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Download(ctx, "data", "f.csv", manager.NewWriteAtBuffer(nil))
	assert.ErrorIs(t, err, context.Canceled)
}

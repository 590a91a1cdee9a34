package s3

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/mocks"
)

type mockDownloader struct {
	mock.Mock
}

func (m *mockDownloader) Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error) {
	args := m.Called(ctx, w, input)
	if data, ok := args.Get(0).([]byte); ok {
		_, _ = w.WriteAt(data, 0)
		return int64(len(data)), args.Error(1)
	}
	return 0, args.Error(1)
}

func newTestClient(d *mockDownloader) *client {
	return newClient(d, mocks.NewNopLogger(), mocks.NewNopMetrics())
}

func TestDownload_Success(t *testing.T) {
	d := &mockDownloader{}
	d.On("Download", mock.Anything, mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Bucket) == "data" && aws.ToString(in.Key) == "in/file.csv"
	})).Return([]byte("a,b\n1,2\n"), nil)

	buf := manager.NewWriteAtBuffer(nil)
	n, err := newTestClient(d).Download(context.Background(), "data", "in/file.csv", buf)

	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.Equal(t, "a,b\n1,2\n", string(buf.Bytes()))
	d.AssertExpectations(t)
}

func TestDownload_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantErr     error
		wantMessage string
		wantBytes   int64
	}{
		{
			name:    "missing key",
			err:     &s3types.NoSuchKey{},
			wantErr: ports.ErrObjectNotFound,
		},
		{
			name:    "missing bucket",
			err:     &s3types.NoSuchBucket{},
			wantErr: ports.ErrObjectNotFound,
		},
		{
			name:        "access denied",
			err:         &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"},
			wantMessage: "failed to download object",
		},
		{
			name:        "network",
			err:         errors.New("connection reset"),
			wantMessage: "connection reset",
		},
		{
			name: "empty object",
			err:  &smithy.GenericAPIError{Code: "InvalidRange"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &mockDownloader{}
			d.On("Download", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			n, err := newTestClient(d).Download(context.Background(), "data", "k", manager.NewWriteAtBuffer(nil))

			assert.Equal(t, tt.wantBytes, n)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantMessage != "":
				assert.ErrorContains(t, err, tt.wantMessage)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of Storage interface.
// Use Run to write object content into the io.WriterAt argument.
type MockStorage struct {
	mock.Mock
}

// Download mocks the Download method
func (m *MockStorage) Download(ctx context.Context, bucket, key string, w io.WriterAt) (int64, error) {
	args := m.Called(ctx, bucket, key, w)
	return args.Get(0).(int64), args.Error(1)
}

// ContentWriter returns a Run function that writes content at offset 0
func ContentWriter(content string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		w := args.Get(3).(io.WriterAt)
		_, _ = w.WriteAt([]byte(content), 0)
	}
}

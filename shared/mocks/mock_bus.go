package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
)

// MockEventBus is a mock implementation of EventBus interface
type MockEventBus struct {
	mock.Mock
}

// Publish mocks the Publish method
func (m *MockEventBus) Publish(ctx context.Context, event *ports.BusEvent) (string, error) {
	args := m.Called(ctx, event)
	return args.String(0), args.Error(1)
}

// Close mocks the Close method
func (m *MockEventBus) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockHandler is a mock implementation of Handler interface
type MockHandler struct {
	mock.Mock
}

// Handle mocks the Handle method
func (m *MockHandler) Handle(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ports.RuntimeResponse), args.Error(1)
}

package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/storage/adapters/fs"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/mocks"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/workers/extractor/internal/domain"
)

func TestExtractionTask_FilesystemStorage(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "data-bucket", "incoming"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "data-bucket", "incoming", "sales.csv"),
		[]byte("region,amount\nnorth,10\nsouth,20\n"), 0o644))

	obs := mocks.NewNopObservability(nil, nil)
	storage, err := fs.NewStorage(base, obs)
	require.NoError(t, err)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything).Return("evt", nil)

	cfg := &config.Config{
		Extraction: config.ExtractionConfig{FailurePolicy: config.FailurePolicyContinue},
		Retry:      config.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond, BackoffMultiplier: 2},
	}
	task, err := NewExtractionTask(storage, bus, cfg, obs)
	require.NoError(t, err)

	scratch := filepath.Join(t.TempDir(), "data.tsv")
	report, err := task.Run(context.Background(), testObject, scratch)

	require.NoError(t, err)
	assert.Equal(t, 2, report.EventsPublished)
	assert.Equal(t, domain.ExtractionEvent{Status: "extracted", Headers: "region,amount", Data: "south,20"},
		detailOf(t, publishedEvents(bus)[1]))

	_, statErr := os.Stat(scratch)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractionTask_FilesystemMissingObject(t *testing.T) {
	obs := mocks.NewNopObservability(nil, nil)
	storage, err := fs.NewStorage(t.TempDir(), obs)
	require.NoError(t, err)

	bus := &mocks.MockEventBus{}
	cfg := &config.Config{Retry: config.RetryConfig{MaxAttempts: 1}}
	task, err := NewExtractionTask(storage, bus, cfg, obs)
	require.NoError(t, err)

	_, err = task.Run(context.Background(), ports.ObjectRef{Bucket: "nope", Key: "missing.csv"},
		filepath.Join(t.TempDir(), "data.tsv"))

	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.ErrorIs(t, err, ports.ErrObjectNotFound)
	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

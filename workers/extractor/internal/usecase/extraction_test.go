package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/mocks"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/workers/extractor/internal/domain"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/workers/extractor/internal/domain/service"
)

var (
	testObject = ports.ObjectRef{Bucket: "data-bucket", Key: "incoming/sales.csv"}
	fixedNow   = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

type taskFixture struct {
	task        *ExtractionTask
	storage     *mocks.MockStorage
	bus         *mocks.MockEventBus
	scratchPath string
}

func newTaskFixture(t *testing.T, extraction config.ExtractionConfig) *taskFixture {
	t.Helper()

	if extraction.FailurePolicy == "" {
		extraction.FailurePolicy = config.FailurePolicyContinue
	}
	cfg := &config.Config{Extraction: extraction, Retry: testRetry}

	storage := &mocks.MockStorage{}
	bus := &mocks.MockEventBus{}

	task, err := NewExtractionTask(storage, bus, cfg, mocks.NewNopObservability(nil, nil))
	require.NoError(t, err)
	task.now = func() time.Time { return fixedNow }
	task.publisher.sleep = func(context.Context, time.Duration) error { return nil }

	return &taskFixture{
		task:        task,
		storage:     storage,
		bus:         bus,
		scratchPath: filepath.Join(t.TempDir(), "data.tsv"),
	}
}

func (f *taskFixture) withObject(content string) *taskFixture {
	f.storage.On("Download", mock.Anything, testObject.Bucket, testObject.Key, mock.Anything).
		Run(mocks.ContentWriter(content)).
		Return(int64(len(content)), nil)
	return f
}

func (f *taskFixture) run(t *testing.T) (*domain.RunReport, error) {
	t.Helper()
	report, err := f.task.Run(context.Background(), testObject, f.scratchPath)

	_, statErr := os.Stat(f.scratchPath)
	assert.True(t, os.IsNotExist(statErr), "scratch file must be removed")

	return report, err
}

func detailOf(t *testing.T, event *ports.BusEvent) domain.ExtractionEvent {
	t.Helper()
	var detail domain.ExtractionEvent
	require.NoError(t, json.Unmarshal(event.Detail, &detail))
	return detail
}

func publishedEvents(bus *mocks.MockEventBus) []*ports.BusEvent {
	var events []*ports.BusEvent
	for _, call := range bus.Calls {
		if call.Method == "Publish" {
			events = append(events, call.Arguments.Get(1).(*ports.BusEvent))
		}
	}
	return events
}

func TestExtractionTask_PublishesRowsInOrder(t *testing.T) {
	f := newTaskFixture(t, config.ExtractionConfig{}).withObject("a,b,c\n1,2,3\n4,5,6\n")
	f.bus.On("Publish", mock.Anything, mock.Anything).Return("evt", nil)

	report, err := f.run(t)

	require.NoError(t, err)
	assert.Equal(t, 2, report.RowsParsed)
	assert.Equal(t, 2, report.EventsPublished)
	assert.Equal(t, int64(18), report.BytesFetched)

	events := publishedEvents(f.bus)
	require.Len(t, events, 2)
	for _, event := range events {
		assert.Equal(t, "default", event.Bus)
		assert.Equal(t, "eventbridge-s3-extraction-task", event.Source)
		assert.Equal(t, "s3RecordExtraction", event.DetailType)
		assert.Equal(t, fixedNow, event.Time)
	}
	assert.Equal(t, domain.ExtractionEvent{Status: "extracted", Headers: "a,b,c", Data: "1,2,3"}, detailOf(t, events[0]))
	assert.Equal(t, domain.ExtractionEvent{Status: "extracted", Headers: "a,b,c", Data: "4,5,6"}, detailOf(t, events[1]))
}

func TestExtractionTask_IdenticalRuns(t *testing.T) {
	content := "id,name\n1,alpha\n2,beta\n3,gamma\n"

	var runs [][]domain.ExtractionEvent
	for i := 0; i < 2; i++ {
		f := newTaskFixture(t, config.ExtractionConfig{}).withObject(content)
		f.bus.On("Publish", mock.Anything, mock.Anything).Return("evt", nil)

		_, err := f.run(t)
		require.NoError(t, err)

		var details []domain.ExtractionEvent
		for _, event := range publishedEvents(f.bus) {
			details = append(details, detailOf(t, event))
		}
		runs = append(runs, details)
	}

	assert.Len(t, runs[0], 3)
	assert.Equal(t, runs[0], runs[1])
}

func TestExtractionTask_NoDataRows(t *testing.T) {
	for name, content := range map[string]string{
		"header only":  "a,b,c\n",
		"empty object": "",
	} {
		t.Run(name, func(t *testing.T) {
			f := newTaskFixture(t, config.ExtractionConfig{}).withObject(content)

			report, err := f.run(t)

			require.NoError(t, err)
			assert.Zero(t, report.RowsParsed)
			f.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestExtractionTask_MissingObjectReference(t *testing.T) {
	tests := []struct {
		name   string
		object ports.ObjectRef
		want   string
	}{
		{"both missing", ports.ObjectRef{}, "S3_BUCKET_NAME and S3_OBJECT_KEY must be set"},
		{"bucket missing", ports.ObjectRef{Key: "k"}, "S3_BUCKET_NAME must be set"},
		{"key missing", ports.ObjectRef{Bucket: "b"}, "S3_OBJECT_KEY must be set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTaskFixture(t, config.ExtractionConfig{})

			report, err := f.task.Run(context.Background(), tt.object, f.scratchPath)

			assert.Nil(t, report)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, domain.ExitConfiguration, domain.ExitCode(err))
			f.storage.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)

			_, statErr := os.Stat(f.scratchPath)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestExtractionTask_FetchFailure(t *testing.T) {
	f := newTaskFixture(t, config.ExtractionConfig{})
	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), ports.ErrObjectNotFound)

	_, err := f.run(t)

	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.ErrorIs(t, err, ports.ErrObjectNotFound)
	assert.Equal(t, domain.ExitFetch, domain.ExitCode(err))
	f.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestExtractionTask_ParseFailureKeepsEarlierRows(t *testing.T) {
	oversized := strings.Repeat("x", service.FieldSizeLimit+1)
	f := newTaskFixture(t, config.ExtractionConfig{}).withObject("a,b\n1,2\n" + oversized + ",3\n4,5\n")
	f.bus.On("Publish", mock.Anything, mock.Anything).Return("evt", nil)

	report, err := f.run(t)

	assert.ErrorIs(t, err, domain.ErrParse)
	assert.ErrorIs(t, err, service.ErrFieldTooLarge)
	assert.Equal(t, domain.ExitParse, domain.ExitCode(err))
	assert.Equal(t, 1, report.EventsPublished)
	f.bus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestExtractionTask_LenientContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantData []string
	}{
		{
			name:     "bare quote",
			content:  "item,size\n5\" screen,10\nx,y\n",
			wantData: []string{"5\" screen,10", "x,y"},
		},
		{
			name:     "blank lines",
			content:  "a,b\n\n1,2\n",
			wantData: []string{"", "1,2"},
		},
		{
			name:     "unterminated quote",
			content:  "a,b\n1,2\n\"open,3",
			wantData: []string{"1,2", "open,3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTaskFixture(t, config.ExtractionConfig{}).withObject(tt.content)
			f.bus.On("Publish", mock.Anything, mock.Anything).Return("evt", nil)

			report, err := f.run(t)

			require.NoError(t, err)
			assert.Equal(t, len(tt.wantData), report.EventsPublished)

			var data []string
			for _, event := range publishedEvents(f.bus) {
				data = append(data, detailOf(t, event).Data)
			}
			assert.Equal(t, tt.wantData, data)
		})
	}
}

func TestExtractionTask_ArityMismatch(t *testing.T) {
	content := "a,b,c\n1,2\n3,4,5\n6,7,8,9\n"

	t.Run("lenient publishes as-is", func(t *testing.T) {
		f := newTaskFixture(t, config.ExtractionConfig{}).withObject(content)
		f.bus.On("Publish", mock.Anything, mock.Anything).Return("evt", nil)

		report, err := f.run(t)

		require.NoError(t, err)
		assert.Equal(t, 3, report.EventsPublished)
		assert.Equal(t, "1,2", detailOf(t, publishedEvents(f.bus)[0]).Data)
	})

	t.Run("strict rejects mismatched rows", func(t *testing.T) {
		f := newTaskFixture(t, config.ExtractionConfig{StrictRowArity: true}).withObject(content)
		f.bus.On("Publish", mock.Anything, mock.Anything).Return("evt", nil)

		report, err := f.run(t)

		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, domain.ExitValidation, domain.ExitCode(err))
		assert.Equal(t, 1, report.EventsPublished)
		assert.Equal(t, 2, report.ValidationFailures)
		assert.Equal(t, 3, report.RowsParsed)
		require.Len(t, report.Failures, 2)
		assert.Equal(t, 1, report.Failures[0].Row)
		assert.Equal(t, 3, report.Failures[1].Row)
		assert.Equal(t, "3,4,5", detailOf(t, publishedEvents(f.bus)[0]).Data)
	})
}

func TestExtractionTask_PublishFailurePolicy(t *testing.T) {
	content := "a\n1\n2\n3\n"
	rejected := errors.New("boom")

	setup := func(t *testing.T, policy string) *taskFixture {
		f := newTaskFixture(t, config.ExtractionConfig{FailurePolicy: policy}).withObject(content)
		f.bus.On("Publish", mock.Anything, mock.MatchedBy(func(e *ports.BusEvent) bool {
			var d domain.ExtractionEvent
			_ = json.Unmarshal(e.Detail, &d)
			return d.Data == "2"
		})).Return("", rejected)
		f.bus.On("Publish", mock.Anything, mock.Anything).Return("evt", nil)
		return f
	}

	t.Run("continue", func(t *testing.T) {
		f := setup(t, config.FailurePolicyContinue)

		report, err := f.run(t)

		assert.ErrorIs(t, err, domain.ErrPublish)
		assert.Equal(t, domain.ExitPublish, domain.ExitCode(err))
		assert.Equal(t, 2, report.EventsPublished)
		assert.Equal(t, 1, report.PublishFailures)
		assert.False(t, report.Aborted)
		require.Len(t, report.Failures, 1)
		assert.Equal(t, 2, report.Failures[0].Row)
		assert.Equal(t, testRetry.MaxAttempts, report.Failures[0].Attempts)
		// row 1, row 2 three times, row 3
		f.bus.AssertNumberOfCalls(t, "Publish", 5)
	})

	t.Run("abort", func(t *testing.T) {
		f := setup(t, config.FailurePolicyAbort)

		report, err := f.run(t)

		assert.ErrorIs(t, err, domain.ErrPublish)
		assert.True(t, report.Aborted)
		assert.Equal(t, 1, report.EventsPublished)
		assert.Equal(t, 2, report.RowsParsed)
		f.bus.AssertNumberOfCalls(t, "Publish", 4)
	})
}

func TestExtractionTask_PublishFailureOutranksValidation(t *testing.T) {
	f := newTaskFixture(t, config.ExtractionConfig{StrictRowArity: true}).withObject("a,b\n1\n2,3\n")
	f.bus.On("Publish", mock.Anything, mock.Anything).Return("", ports.ErrPublishRejected)

	report, err := f.run(t)

	assert.Equal(t, domain.ExitPublish, domain.ExitCode(err))
	assert.Equal(t, 1, report.ValidationFailures)
	assert.Equal(t, 1, report.PublishFailures)
}

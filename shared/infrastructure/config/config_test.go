package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the parser reads so host settings do not leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "ENV", "SERVICE_NAME", "ADAPTER_RUNTIME", "ADAPTER_STORAGE",
		"ADAPTER_BUS", "ADAPTER_LOGGER", "ADAPTER_METRICS", "S3_BUCKET_NAME",
		"S3_OBJECT_KEY", "SCRATCH_PATH", "STRICT_ROW_ARITY", "PUBLISH_FAILURE_POLICY",
		"RETRY_MAX_ATTEMPTS", "STORAGE_BASE_PATH", "BUS_SQS_QUEUE", "BUS_KAFKA_BROKERS",
		"PROMETHEUS_PUSHGATEWAY_URL", "AWS_LAMBDA_FUNCTION_NAME", "LAMBDA_TASK_ROOT",
	} {
		t.Setenv(key, "")
	}
}

func TestNew_TaskRuntime(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing bucket and key",
			env:     map[string]string{},
			wantErr: "S3_BUCKET_NAME and S3_OBJECT_KEY must be set",
		},
		{
			name:    "missing key",
			env:     map[string]string{"S3_BUCKET_NAME": "data"},
			wantErr: "S3_OBJECT_KEY must be set",
		},
		{
			name:    "missing bucket",
			env:     map[string]string{"S3_OBJECT_KEY": "in/file.csv"},
			wantErr: "S3_BUCKET_NAME must be set",
		},
		{
			name:    "invalid failure policy",
			env:     map[string]string{"S3_BUCKET_NAME": "data", "S3_OBJECT_KEY": "k", "PUBLISH_FAILURE_POLICY": "ignore"},
			wantErr: "invalid PUBLISH_FAILURE_POLICY",
		},
		{
			name: "valid",
			env:  map[string]string{"S3_BUCKET_NAME": "data", "S3_OBJECT_KEY": "in/file.csv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := New()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "task", cfg.Adapters.Runtime)
			assert.Equal(t, "data", cfg.Extraction.Bucket)
			assert.Equal(t, "in/file.csv", cfg.Extraction.Key)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_BUCKET_NAME", "data")
	t.Setenv("S3_OBJECT_KEY", "file.csv")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(os.TempDir(), "data.tsv"), cfg.Extraction.ScratchPath)
	assert.False(t, cfg.Extraction.StrictRowArity)
	assert.Equal(t, FailurePolicyContinue, cfg.Extraction.FailurePolicy)
	assert.Equal(t, "s3", cfg.Adapters.Storage)
	assert.Equal(t, "eventbridge", cfg.Adapters.Bus)
	assert.Equal(t, "stdout", cfg.Adapters.Logger)
	assert.Equal(t, "stdout", cfg.Adapters.Metrics)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.InitialBackoff)
}

func TestNew_LambdaRuntimeDoesNotNeedObject(t *testing.T) {
	clearEnv(t)

	cfg, err := New(WithRuntime("lambda"))
	require.NoError(t, err)
	assert.Equal(t, "lambda", cfg.Adapters.Runtime)
	assert.Empty(t, cfg.Extraction.Bucket)
}

func TestNew_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_BUCKET_NAME", "from-env")

	cfg, err := New(WithObject("", "flag-key"), WithStrictRowArity(true))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Extraction.Bucket)
	assert.Equal(t, "flag-key", cfg.Extraction.Key)
	assert.True(t, cfg.Extraction.StrictRowArity)
}

func TestNew_ExplicitEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "run.env")
	require.NoError(t, os.WriteFile(path, []byte("S3_BUCKET_NAME=file-bucket\nS3_OBJECT_KEY=file-key\n"), 0o600))

	cfg, err := New(WithEnvFile(path))
	require.NoError(t, err)

	assert.Equal(t, "file-bucket", cfg.Extraction.Bucket)
	assert.Equal(t, "file-key", cfg.Extraction.Key)
}

func TestValidate_Adapters(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown bus", map[string]string{"ADAPTER_BUS": "nats"}, "invalid bus adapter: nats"},
		{"sqs without queue", map[string]string{"ADAPTER_BUS": "sqs"}, "BUS_SQS_QUEUE is required"},
		{"filesystem without base path", map[string]string{"ADAPTER_STORAGE": "filesystem"}, "STORAGE_BASE_PATH is required"},
		{"prometheus without gateway", map[string]string{"ADAPTER_METRICS": "prometheus"}, "PROMETHEUS_PUSHGATEWAY_URL is required"},
		{"zero retry attempts", map[string]string{"RETRY_MAX_ATTEMPTS": "0"}, "RETRY_MAX_ATTEMPTS must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("S3_BUCKET_NAME", "data")
			t.Setenv("S3_OBJECT_KEY", "file.csv")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := New()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetList(t *testing.T) {
	t.Setenv("TEST_BROKERS", " a:9092, ,b:9092 ")
	assert.Equal(t, []string{"a:9092", "b:9092"}, getList("TEST_BROKERS", nil))

	t.Setenv("TEST_BROKERS", "")
	assert.Equal(t, []string{"x"}, getList("TEST_BROKERS", []string{"x"}))
}

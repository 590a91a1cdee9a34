package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("configuration errors")

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errs []string

	// Core validations
	if c.ServiceName == "" {
		errs = append(errs, "SERVICE_NAME is required")
	}

	// Validate adapters
	if err := c.Adapters.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	// The task runtime reads its object reference from the environment;
	// Lambda receives it per notification.
	if c.Adapters.Runtime == "task" {
		if err := c.Extraction.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	} else if c.Adapters.Runtime == "lambda" {
		if err := c.Lambda.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Extraction.validatePolicy(); err != nil {
		errs = append(errs, err.Error())
	}

	if err := c.Retry.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if err := c.Storage.Validate(c.Adapters); err != nil {
		errs = append(errs, err.Error())
	}

	if err := c.Bus.Validate(c.Adapters); err != nil {
		errs = append(errs, err.Error())
	}

	if err := c.Observability.Validate(c.Adapters); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// Validate validates adapter configuration
func (a *AdapterConfig) Validate() error {
	validRuntimes := map[string]bool{"task": true, "lambda": true}
	if !validRuntimes[a.Runtime] {
		return fmt.Errorf("invalid runtime adapter: %s (must be task or lambda)", a.Runtime)
	}

	validStorage := map[string]bool{"s3": true, "filesystem": true}
	if !validStorage[a.Storage] {
		return fmt.Errorf("invalid storage adapter: %s (must be s3 or filesystem)", a.Storage)
	}

	validBus := map[string]bool{"eventbridge": true, "sqs": true, "rabbitmq": true, "kafka": true}
	if !validBus[a.Bus] {
		return fmt.Errorf("invalid bus adapter: %s (must be eventbridge, sqs, rabbitmq or kafka)", a.Bus)
	}

	validLogger := map[string]bool{"cloudwatch": true, "stdout": true}
	if !validLogger[a.Logger] {
		return fmt.Errorf("invalid logger adapter: %s (must be cloudwatch or stdout)", a.Logger)
	}

	validMetrics := map[string]bool{"cloudwatch": true, "stdout": true, "prometheus": true}
	if !validMetrics[a.Metrics] {
		return fmt.Errorf("invalid metrics adapter: %s (must be cloudwatch, stdout or prometheus)", a.Metrics)
	}

	return nil
}

// Validate checks the object reference of a task run
func (e *ExtractionConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(e.Bucket) == "" {
		missing = append(missing, "S3_BUCKET_NAME")
	}
	if strings.TrimSpace(e.Key) == "" {
		missing = append(missing, "S3_OBJECT_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s must be set", strings.Join(missing, " and "))
	}
	return nil
}

func (e *ExtractionConfig) validatePolicy() error {
	switch e.FailurePolicy {
	case FailurePolicyContinue, FailurePolicyAbort:
		return nil
	default:
		return fmt.Errorf("invalid PUBLISH_FAILURE_POLICY: %s (must be continue or abort)", e.FailurePolicy)
	}
}

// Validate validates Lambda configuration
func (l *LambdaConfig) Validate() error {
	if l.Timeout <= 0 {
		return fmt.Errorf("LAMBDA_TIMEOUT must be positive")
	}
	return nil
}

// Validate validates Retry configuration
func (r *RetryConfig) Validate() error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if r.InitialBackoff <= 0 {
		return fmt.Errorf("RETRY_INITIAL_BACKOFF must be positive")
	}
	if r.MaxBackoff <= 0 {
		return fmt.Errorf("RETRY_MAX_BACKOFF must be positive")
	}
	if r.BackoffMultiplier < 1.0 {
		return fmt.Errorf("RETRY_BACKOFF_MULTIPLIER must be >= 1.0")
	}
	return nil
}

// Validate validates Storage configuration
func (s *StorageConfig) Validate(adapters AdapterConfig) error {
	if s.MaxRetries < 0 {
		return fmt.Errorf("STORAGE_MAX_RETRIES cannot be negative")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("STORAGE_TIMEOUT must be positive")
	}

	switch adapters.Storage {
	case "s3":
		if s.S3.Region == "" {
			return fmt.Errorf("AWS_REGION is required for S3 storage")
		}
	case "filesystem":
		if s.BasePath == "" {
			return fmt.Errorf("STORAGE_BASE_PATH is required for filesystem storage")
		}
	}

	return nil
}

// Validate validates the selected bus adapter
func (b *BusConfig) Validate(adapters AdapterConfig) error {
	switch adapters.Bus {
	case "eventbridge":
		if b.EventBridge.Region == "" {
			return fmt.Errorf("EVENTBRIDGE_REGION is required for EventBridge")
		}
	case "sqs":
		if b.SQS.Queue == "" {
			return fmt.Errorf("BUS_SQS_QUEUE is required for SQS bus")
		}
	case "rabbitmq":
		if b.RabbitMQ.URL == "" {
			return fmt.Errorf("RABBITMQ_URL is required for RabbitMQ bus")
		}
		if b.RabbitMQ.Queue == "" {
			return fmt.Errorf("BUS_RABBITMQ_QUEUE is required for RabbitMQ bus")
		}
	case "kafka":
		if len(b.Kafka.Brokers) == 0 {
			return fmt.Errorf("BUS_KAFKA_BROKERS is required for Kafka bus")
		}
		if b.Kafka.Topic == "" {
			return fmt.Errorf("BUS_KAFKA_TOPIC is required for Kafka bus")
		}
	}
	return nil
}

// Validate validates Observability configuration
func (o *ObservabilityConfig) Validate(adapters AdapterConfig) error {
	if adapters.Logger == "cloudwatch" || adapters.Metrics == "cloudwatch" {
		if o.CloudWatchRegion == "" {
			return fmt.Errorf("CLOUDWATCH_REGION is required for CloudWatch")
		}
	}

	if adapters.Logger == "cloudwatch" {
		if o.CloudWatchLogGroup == "" {
			return fmt.Errorf("CLOUDWATCH_LOG_GROUP is required for CloudWatch logging")
		}
	}

	if adapters.Metrics == "prometheus" {
		if o.PushgatewayURL == "" {
			return fmt.Errorf("PROMETHEUS_PUSHGATEWAY_URL is required for Prometheus metrics")
		}
	}

	return nil
}

package config

import (
	"time"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	LogFormat   string
	Version     string

	// Adapter selection
	Adapters AdapterConfig

	// Component configurations
	Extraction    ExtractionConfig
	Retry         RetryConfig
	Lambda        LambdaConfig
	Storage       StorageConfig
	Bus           BusConfig
	Observability ObservabilityConfig
}

// AdapterConfig specifies which implementations to use
type AdapterConfig struct {
	Runtime string // "task", "lambda"
	Storage string // "s3", "filesystem"
	Bus     string // "eventbridge", "sqs", "rabbitmq", "kafka"
	Logger  string // "cloudwatch", "stdout"
	Metrics string // "cloudwatch", "stdout", "prometheus"
}

// ExtractionConfig holds the object reference and parsing behaviour of a run
type ExtractionConfig struct {
	Bucket         string
	Key            string
	ScratchPath    string
	StrictRowArity bool
	FailurePolicy  string // "continue", "abort"
}

// RetryConfig bounds the per-event publish retries
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// LambdaConfig holds Lambda-specific configuration
type LambdaConfig struct {
	Timeout                   time.Duration
	EnablePartialBatchFailure bool
}

type StorageConfig struct {
	// Root directory for the filesystem adapter
	BasePath   string
	MaxRetries int
	Timeout    time.Duration

	// S3-specific configuration
	S3 S3Config
}

// S3Config holds S3-specific configuration
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // For MinIO, LocalStack or S3-compatible services
}

// BusConfig holds connection settings for every event bus adapter
type BusConfig struct {
	EventBridge EventBridgeConfig
	SQS         SQSConfig
	RabbitMQ    RabbitMQConfig
	Kafka       KafkaConfig
}

// EventBridgeConfig - minimal config
type EventBridgeConfig struct {
	Region   string
	Endpoint string
}

// SQSConfig - minimal config
type SQSConfig struct {
	Region string
	Queue  string
}

// RabbitMQConfig - minimal config
type RabbitMQConfig struct {
	URL     string
	Queue   string
	Timeout time.Duration
}

// KafkaConfig - minimal config
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Timeout time.Duration
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	CloudWatchRegion    string
	CloudWatchLogGroup  string
	CloudWatchNamespace string

	PushgatewayURL string
	PrometheusJob  string
}

package config

import (
	"os"
	"path/filepath"
)

const (
	FailurePolicyContinue = "continue"
	FailurePolicyAbort    = "abort"
)

// applyDefaults applies environment-specific defaults
func applyDefaults(cfg *Config) {
	if cfg.Adapters.Runtime == "" {
		if IsLambda() {
			cfg.Adapters.Runtime = "lambda"
		} else {
			cfg.Adapters.Runtime = "task"
		}
	}

	// Set adapter defaults based on environment
	if cfg.IsLocal() || cfg.IsTest() {
		if cfg.Adapters.Storage == "" {
			if cfg.Storage.BasePath != "" {
				cfg.Adapters.Storage = "filesystem"
			} else {
				cfg.Adapters.Storage = "s3"
			}
		}
		if cfg.Adapters.Bus == "" {
			cfg.Adapters.Bus = "eventbridge"
		}
		if cfg.Adapters.Logger == "" {
			cfg.Adapters.Logger = "stdout"
		}
		if cfg.Adapters.Metrics == "" {
			cfg.Adapters.Metrics = "stdout"
		}
	} else {
		if cfg.Adapters.Storage == "" {
			cfg.Adapters.Storage = "s3"
		}
		if cfg.Adapters.Bus == "" {
			cfg.Adapters.Bus = "eventbridge"
		}
		// Fargate ships stdout to CloudWatch through the awslogs driver already
		if cfg.Adapters.Logger == "" {
			cfg.Adapters.Logger = "stdout"
		}
		if cfg.Adapters.Metrics == "" {
			cfg.Adapters.Metrics = "cloudwatch"
		}
		// More conservative settings for production
		if cfg.IsProduction() && cfg.Retry.MaxAttempts < 5 {
			cfg.Retry.MaxAttempts = 5
		}
	}

	if cfg.Extraction.ScratchPath == "" {
		cfg.Extraction.ScratchPath = filepath.Join(os.TempDir(), "data.tsv")
	}
	if cfg.Extraction.FailurePolicy == "" {
		cfg.Extraction.FailurePolicy = FailurePolicyContinue
	}
	if cfg.Observability.CloudWatchNamespace == "" && cfg.Adapters.Metrics == "cloudwatch" {
		cfg.Observability.CloudWatchNamespace = cfg.ServiceName
	}
}

package observability

import (
	"context"
	"fmt"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/awsclient"
	cwAdapter "github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/observability/adapters/cloudwatch"
	promAdapter "github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/observability/adapters/prometheus"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/observability/adapters/stdout"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
)

// createObservability builds the logger and metrics selected by the adapters config.
// runID tags every CloudWatch stream and Pushgateway group of this process.
func createObservability(cfg *config.Config, runID string) (ports.Logger, ports.Metrics, error) {
	logger, err := createLogger(cfg, runID)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := createMetrics(cfg, runID)
	if err != nil {
		return nil, nil, err
	}

	return logger, metrics, nil
}

func createLogger(cfg *config.Config, runID string) (ports.Logger, error) {
	switch cfg.Adapters.Logger {
	case "stdout":
		return stdout.NewLogger(stdout.LoggerOptions{
			JSON:  cfg.LogFormat == "json",
			Debug: cfg.LogLevel == "debug",
		}), nil

	case "cloudwatch":
		awsCfg, err := awsclient.Load(context.Background(), awsclient.Options{
			Region: cfg.Observability.CloudWatchRegion,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create CloudWatch logger: %w", err)
		}
		return cwAdapter.NewLogger(awsCfg, cwAdapter.LoggerOptions{
			LogGroup:  cfg.Observability.CloudWatchLogGroup,
			LogStream: fmt.Sprintf("%s/%s/%s", cfg.ServiceName, cfg.Environment, runID),
			Level:     cfg.LogLevel,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported logger adapter: %s", cfg.Adapters.Logger)
	}
}

func createMetrics(cfg *config.Config, runID string) (ports.Metrics, error) {
	switch cfg.Adapters.Metrics {
	case "stdout":
		return stdout.NewMetrics(stdout.MetricsOptions{JSON: cfg.LogFormat == "json"}), nil

	case "cloudwatch":
		awsCfg, err := awsclient.Load(context.Background(), awsclient.Options{
			Region: cfg.Observability.CloudWatchRegion,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create CloudWatch metrics: %w", err)
		}
		return cwAdapter.NewMetrics(awsCfg, cfg.Observability.CloudWatchNamespace), nil

	case "prometheus":
		return promAdapter.NewMetrics(promAdapter.Options{
			Namespace:      cfg.ServiceName,
			PushgatewayURL: cfg.Observability.PushgatewayURL,
			Job:            cfg.Observability.PrometheusJob,
			Grouping:       map[string]string{"run_id": runID},
		}), nil

	default:
		return nil, fmt.Errorf("unsupported metrics adapter: %s", cfg.Adapters.Metrics)
	}
}

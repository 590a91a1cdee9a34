package bus

import (
	"fmt"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
)

// CreateBus builds the event bus adapter selected by ADAPTER_BUS
func CreateBus(cfg *config.Config, obs ports.Observability) (ports.EventBus, error) {
	logger, err := obs.LoggerScoped("bus.factory")
	if err != nil {
		return nil, fmt.Errorf("failed to get logger from observability: %w", err)
	}

	switch cfg.Adapters.Bus {
	case "eventbridge":
		logger.Info("Creating EventBridge bus adapter",
			"region", cfg.Bus.EventBridge.Region)
		return NewEventBridgeBus(&cfg.Bus.EventBridge, obs)

	case "sqs":
		logger.Info("Creating SQS bus adapter",
			"region", cfg.Bus.SQS.Region)
		return NewSQSBus(&cfg.Bus.SQS, obs)

	case "rabbitmq":
		logger.Info("Creating RabbitMQ bus adapter",
			"queue", cfg.Bus.RabbitMQ.Queue)
		return NewRabbitMQBus(&cfg.Bus.RabbitMQ, obs)

	case "kafka":
		logger.Info("Creating Kafka bus adapter",
			"topic", cfg.Bus.Kafka.Topic)
		return NewKafkaBus(&cfg.Bus.Kafka, obs)

	default:
		return nil, fmt.Errorf("unsupported bus adapter: %s", cfg.Adapters.Bus)
	}
}

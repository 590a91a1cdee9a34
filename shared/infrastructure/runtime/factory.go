package runtime

import (
	"fmt"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
)

// Create creates the appropriate runtime based on configuration
func Create(cfg *config.Config, handler ports.Handler, obs ports.Observability) (ports.Runtime, error) {
	switch cfg.Adapters.Runtime {
	case "task":
		return NewTaskRuntime(&cfg.Extraction, handler, obs)
	case "lambda":
		return NewLambdaRuntime(&cfg.Lambda, handler, obs)
	default:
		return nil, fmt.Errorf("unsupported runtime adapter: %s", cfg.Adapters.Runtime)
	}
}

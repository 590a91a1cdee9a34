package storage

import (
	"fmt"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/storage/adapters/fs"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/storage/adapters/s3"
)

// CreateStorage builds the storage adapter selected by ADAPTER_STORAGE
func CreateStorage(cfg *config.Config, obs ports.Observability) (ports.Storage, error) {
	logger, err := obs.LoggerScoped("storage.factory")
	if err != nil {
		return nil, fmt.Errorf("failed to get logger from observability: %w", err)
	}

	switch cfg.Adapters.Storage {
	case "s3":
		logger.Info("Creating S3 storage adapter",
			"region", cfg.Storage.S3.Region)
		return s3.New(&cfg.Storage, obs)

	case "filesystem":
		logger.Info("Creating filesystem storage adapter",
			"path", cfg.Storage.BasePath)
		return fs.NewStorage(cfg.Storage.BasePath, obs)

	default:
		return nil, fmt.Errorf("unsupported storage adapter: %s", cfg.Adapters.Storage)
	}
}

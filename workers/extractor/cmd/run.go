package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/bus"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/config"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/observability"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/runtime"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/infrastructure/storage"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/workers/extractor/internal/domain"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/workers/extractor/internal/usecase"
	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/workers/extractor/internal/worker"
)

// bound on flushing logs and metrics after the run, even when cancelled
const flushTimeout = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract the object named by S3_BUCKET_NAME and S3_OBJECT_KEY once and exit",
	Long: `run performs a single extraction and exits with:

  0  success, including objects without data rows
  1  configuration error
  2  the object could not be fetched
  3  the object could not be parsed
  4  one or more rows failed to publish after retries
  5  one or more rows were rejected by --strict`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd, "task")
	},
}

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Serve S3 and SQS notifications as an AWS Lambda function",
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd, "lambda")
	},
}

// Application holds the complete application stack
type Application struct {
	cfg     *config.Config
	obs     ports.Observability
	bus     ports.EventBus
	runtime ports.Runtime
	logger  ports.Logger
	metrics ports.Metrics
}

func execute(cmd *cobra.Command, runtimeName string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfiguration(cmd, runtimeName)
	if err != nil {
		return domain.ConfigurationError(err)
	}

	app, err := buildApplication(cfg)
	if err != nil {
		return err
	}
	defer app.shutdown()

	return app.start(ctx)
}

// loadConfiguration loads the environment and applies command line overrides
func loadConfiguration(cmd *cobra.Command, runtimeName string) (*config.Config, error) {
	opts := []config.Option{
		config.WithEnvFile(envFile),
		config.WithObject(bucket, key),
	}
	if runtimeName != "" {
		opts = append(opts, config.WithRuntime(runtimeName))
	}
	if cmd.Flags().Changed("strict") {
		opts = append(opts, config.WithStrictRowArity(strict))
	}

	return config.Load(opts...)
}

// buildApplication assembles observability, adapters, use case and runtime
func buildApplication(cfg *config.Config) (*Application, error) {
	cfg.Version = version

	obs, err := observability.CreateObservability(cfg, uuid.NewString())
	if err != nil {
		return nil, domain.DependencyError("observability", err)
	}

	logger, metrics, err := obs.ComponentsScoped("main")
	if err != nil {
		return nil, domain.DependencyError("observability", err)
	}

	logger.Info("Starting application",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
		"runtime", cfg.Adapters.Runtime)
	metrics.IncrementCounter("application.starts", nil)

	app := &Application{cfg: cfg, obs: obs, logger: logger, metrics: metrics}

	objectStorage, err := storage.CreateStorage(cfg, obs)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		app.shutdown()
		return nil, domain.DependencyError("storage", err)
	}

	eventBus, err := bus.CreateBus(cfg, obs)
	if err != nil {
		logger.Error("Failed to initialize event bus", "error", err)
		app.shutdown()
		return nil, domain.DependencyError("event bus", err)
	}
	app.bus = eventBus

	task, err := usecase.NewExtractionTask(objectStorage, eventBus, cfg, obs)
	if err != nil {
		app.shutdown()
		return nil, domain.DependencyError("extraction task", err)
	}

	handler, err := worker.NewExtractionHandler(task, cfg.Extraction.ScratchPath, obs)
	if err != nil {
		app.shutdown()
		return nil, domain.DependencyError("handler", err)
	}

	rt, err := runtime.Create(cfg, handler, obs)
	if err != nil {
		logger.Error("Failed to initialize runtime", "error", err)
		app.shutdown()
		return nil, domain.DependencyError("runtime", err)
	}
	app.runtime = rt

	return app, nil
}

func (app *Application) start(ctx context.Context) error {
	err := app.runtime.Start(ctx)

	code := domain.ExitCode(err)
	if err != nil {
		app.logger.Error("Run failed", "error", err, "exit_code", code)
		app.metrics.IncrementCounter("application.failures", map[string]string{"exit_code": exitLabel(code)})
		return &exitError{code: code, err: err}
	}

	app.logger.Info("Run completed")
	return nil
}

// shutdown closes the bus and flushes buffered telemetry. Safe to call twice.
func (app *Application) shutdown() {
	if app.bus != nil {
		if err := app.bus.Close(); err != nil {
			app.logger.Error("Failed to close event bus", "error", err)
		}
		app.bus = nil
	}

	if app.obs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()

		if err := app.obs.Flush(ctx); err != nil {
			app.logger.Error("Failed to flush observability", "error", err)
		}
		app.obs = nil
	}
}

func exitLabel(code int) string {
	switch code {
	case domain.ExitConfiguration:
		return "configuration"
	case domain.ExitFetch:
		return "fetch"
	case domain.ExitParse:
		return "parse"
	case domain.ExitPublish:
		return "publish"
	case domain.ExitValidation:
		return "validation"
	case domain.ExitDependency:
		return "dependency"
	default:
		return "ok"
	}
}

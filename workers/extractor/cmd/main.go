package main

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/workers/extractor/internal/domain"
)

// set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	bucket  string
	key     string
	strict  bool
	envFile string
)

// rootCmd runs the extraction with the runtime picked from the environment
var rootCmd = &cobra.Command{
	Use:   "extractor",
	Short: "Extract rows of an S3 object into EventBridge events",
	Long: `extractor downloads a comma-separated object from S3 and publishes one
s3RecordExtraction event per data row to the default event bus.

Without a subcommand the runtime is chosen from the environment: lambda when
running inside AWS Lambda, the one-shot task otherwise.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd, "")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&bucket, "bucket", "", "source bucket (overrides S3_BUCKET_NAME)")
	rootCmd.PersistentFlags().StringVar(&key, "key", "", "source object key (overrides S3_OBJECT_KEY)")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "reject rows whose field count differs from the header")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "additional env file to load")

	rootCmd.AddCommand(runCmd, lambdaCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("extractor: %v", err)
		os.Exit(exitCode(err))
	}
}

// exitError carries the process exit code chosen by a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return domain.ExitCode(err)
}

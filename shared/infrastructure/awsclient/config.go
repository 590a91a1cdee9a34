// Package awsclient builds aws.Config values shared by every AWS adapter.
package awsclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Options controls how the SDK configuration is resolved
type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	MaxRetries      int
	Timeout         time.Duration
}

// Load resolves region, credentials, retries and HTTP timeout.
// Only local configuration is read; no network call is made here.
func Load(ctx context.Context, opts Options) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}

	// Use static credentials if provided
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				opts.AccessKeyID,
				opts.SecretAccessKey,
				"",
			),
		))
	}

	if opts.MaxRetries > 0 {
		optFns = append(optFns, awsconfig.WithRetryMaxAttempts(opts.MaxRetries))
	}

	if opts.Timeout > 0 {
		optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{
			Timeout: opts.Timeout,
		}))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

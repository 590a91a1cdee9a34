package config

import (
	"fmt"
)

// Singleton instance management
var (
	instance *Config
	loaded   bool
)

// Option overrides parsed values before defaults and validation run.
// Command line flags reach the configuration this way.
type Option func(*loadOptions)

type loadOptions struct {
	envFile   string
	overrides []func(*Config)
}

// WithEnvFile loads an extra env file after the standard ones
func WithEnvFile(path string) Option {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// WithRuntime forces the runtime adapter
func WithRuntime(runtime string) Option {
	return override(func(c *Config) {
		c.Adapters.Runtime = runtime
	})
}

// WithObject sets the object reference, ignoring empty values
func WithObject(bucket, key string) Option {
	return override(func(c *Config) {
		if bucket != "" {
			c.Extraction.Bucket = bucket
		}
		if key != "" {
			c.Extraction.Key = key
		}
	})
}

// WithStrictRowArity enables rejection of rows whose width differs from the header
func WithStrictRowArity(strict bool) Option {
	return override(func(c *Config) {
		c.Extraction.StrictRowArity = strict
	})
}

func override(fn func(*Config)) Option {
	return func(o *loadOptions) {
		o.overrides = append(o.overrides, fn)
	}
}

// Load loads configuration from environment variables and .env files
// This should be called once at application startup
func Load(opts ...Option) (*Config, error) {
	if loaded {
		return instance, nil
	}

	cfg, err := New(opts...)
	if err != nil {
		return nil, err
	}

	instance = cfg
	loaded = true
	return cfg, nil
}

// New builds a fresh configuration without touching the cached instance
func New(opts ...Option) (*Config, error) {
	options := &loadOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Load .env files in order of precedence
	if err := loadEnvFiles(options.envFile); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	// Parse configuration from environment
	cfg, err := parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	for _, fn := range options.overrides {
		fn(cfg)
	}

	// Apply defaults based on environment
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// IsLoaded returns whether configuration has been loaded
func IsLoaded() bool {
	return loaded
}

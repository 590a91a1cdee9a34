package domain

import (
	"errors"
	"fmt"
)

// Error kinds of an extraction run. Every error returned by the task wraps
// exactly one of them, so callers match with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrFetch         = errors.New("fetch error")
	ErrParse         = errors.New("parse error")
	ErrPublish       = errors.New("publish error")
	ErrValidation    = errors.New("validation error")
	ErrDependency    = errors.New("dependency error")
)

// Process exit codes
const (
	ExitOK            = 0
	ExitConfiguration = 1
	ExitFetch         = 2
	ExitParse         = 3
	ExitPublish       = 4
	ExitValidation    = 5
	ExitDependency    = 6
)

func ConfigurationError(err error) error {
	return fmt.Errorf("%w: %w", ErrConfiguration, err)
}

func FetchError(bucket, key string, err error) error {
	return fmt.Errorf("%w: s3://%s/%s: %w", ErrFetch, bucket, key, err)
}

func ParseError(line int, err error) error {
	if line > 0 {
		return fmt.Errorf("%w: line %d: %w", ErrParse, line, err)
	}
	return fmt.Errorf("%w: %w", ErrParse, err)
}

func PublishError(row int, err error) error {
	return fmt.Errorf("%w: row %d: %w", ErrPublish, row, err)
}

func ValidationError(row, got, want int) error {
	return fmt.Errorf("%w: row %d has %d fields, header has %d", ErrValidation, row, got, want)
}

// DependencyError marks a backing service (bus, storage, telemetry) that could
// not be set up, as opposed to settings that are wrong
func DependencyError(component string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependency, component, err)
}

// ExitCode maps err to the process exit code. Publish failures outrank
// validation failures when both are present.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfiguration):
		return ExitConfiguration
	case errors.Is(err, ErrFetch):
		return ExitFetch
	case errors.Is(err, ErrParse):
		return ExitParse
	case errors.Is(err, ErrPublish):
		return ExitPublish
	case errors.Is(err, ErrValidation):
		return ExitValidation
	case errors.Is(err, ErrDependency):
		return ExitDependency
	default:
		return ExitConfiguration
	}
}

package models

import (
	"errors"
	"fmt"
)

// Not-found errors are thrown synchronously and never retried.
var (
	ErrTemplateNotFound  = errors.New("workflow template not found")
	ErrExecutionNotFound = errors.New("workflow execution not found")
	ErrStepNotFound      = errors.New("workflow step not found")
)

// ConfigError marks a missing or invalid step configuration. Config errors
// fail fast and are excluded from retry.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrStepNotFound)
}

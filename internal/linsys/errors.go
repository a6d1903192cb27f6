package linsys

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySystem indicates a system with no equations.
	ErrEmptySystem = errors.New("linsys: system has no equations")

	// ErrDimensionMismatch indicates input that is not square or whose
	// constants do not match the equation count.
	ErrDimensionMismatch = errors.New("linsys: dimension mismatch")
)

// ConfigurationError reports an input that cannot form a valid system.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("linsys: invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErr(field string, sentinel error, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...), Err: sentinel}
}

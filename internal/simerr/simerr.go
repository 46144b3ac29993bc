// Package simerr defines the error taxonomy shared by the storm statistics
// and shoreline simulation packages. Callers match with errors.Is / errors.As.
package simerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidScenario is returned for an unrecognized sea-level scenario tag.
	ErrInvalidScenario = errors.New("invalid sea-level scenario")

	// ErrInsufficientStorms is returned when fewer than two storms were detected,
	// so gaps and seasons cannot be estimated.
	ErrInsufficientStorms = errors.New("insufficient storms")

	// ErrFitFailure is returned when a statistical sub-fit did not converge or
	// had degenerate input.
	ErrFitFailure = errors.New("fit failure")

	// ErrConfiguration is returned for invalid inputs or settings.
	ErrConfiguration = errors.New("configuration error")

	// ErrSampling is returned when a realization cannot draw a valid sample.
	ErrSampling = errors.New("sampling failure")
)

// FitError names the sub-fit that failed.
type FitError struct {
	Stage string
	Err   error
}

// NewFitError wraps err as a failure of the named stage.
func NewFitError(stage string, err error) *FitError {
	return &FitError{Stage: stage, Err: err}
}

func (e *FitError) Error() string {
	return fmt.Sprintf("fit failure in %s: %v", e.Stage, e.Err)
}

// Unwrap exposes both ErrFitFailure and the underlying cause.
func (e *FitError) Unwrap() []error {
	return []error{ErrFitFailure, e.Err}
}

// Configf builds an ErrConfiguration with a formatted message.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

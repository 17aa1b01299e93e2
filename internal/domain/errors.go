package domain

import "fmt"

// ConfigError aborts a step before any computation: malformed formula,
// unknown column reference, invalid quantile bounds.
type ConfigError struct {
	Reason string
}

func (e ConfigError) Error() string {
	return "config error: " + e.Reason
}

// InsufficientDataError is scoped to a single pair or column. Callers log
// and skip; it never aborts the batch.
type InsufficientDataError struct {
	Independent string
	Dependent   string
	Reason      string
}

func (e InsufficientDataError) Error() string {
	if e.Independent == "" && e.Dependent == "" {
		return "insufficient data: " + e.Reason
	}
	return fmt.Sprintf("insufficient data for (%s, %s): %s", e.Independent, e.Dependent, e.Reason)
}

// SingularDesignError is fatal to one multivariate regression invocation:
// perfectly collinear independents or too few observations for the design.
type SingularDesignError struct {
	Reason string
}

func (e SingularDesignError) Error() string {
	return "singular design matrix: " + e.Reason
}

// StorageError wraps failures from the table store. Fatal to the current
// step.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e StorageError) Unwrap() error {
	return e.Err
}

package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Degenerate input: handled locally by returning missing values, never fatal
	ErrNoVariation       = errors.New("group indicator has no variation")
	ErrInsufficientData  = errors.New("insufficient data for analysis")
	ErrTooFewClusters    = errors.New("fewer than two clusters")
	ErrSingularMatrix    = errors.New("matrix is not invertible")
	ErrNegativeVariance  = errors.New("negative variance beyond tolerance")
	ErrMissingColumn     = errors.New("required column missing")
	ErrUnsupportedFormat = errors.New("unsupported table format")
)

// NewValidationError reports an invalid field value
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// NewMissingColumnError reports a required input column that is absent
func NewMissingColumnError(table, column string) error {
	return fmt.Errorf("%w: %s in %s", ErrMissingColumn, column, table)
}

// IsDegenerate reports whether err describes a degenerate-input or numerical
// condition that should surface as missing output cells.
func IsDegenerate(err error) bool {
	return errors.Is(err, ErrNoVariation) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrTooFewClusters) ||
		errors.Is(err, ErrSingularMatrix) ||
		errors.Is(err, ErrNegativeVariance)
}

package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations and the error kinds callers of
// the ingestion core distinguish between.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed.
	ErrValidationFailed = errors.New("validation failed")

	// ErrBadRequest covers invalid admin-facing input: empty URL, an
	// unparsable filter_condition, an unknown translation provider.
	ErrBadRequest = errors.New("bad request")

	// ErrNotModified signals a 304 response; treated as a successful fetch.
	ErrNotModified = errors.New("not modified")

	// ErrParseError signals malformed feed XML; counted as a fetch
	// failure but never disables the feed.
	ErrParseError = errors.New("feed parse error")

	// ErrProviderUnavailable signals that an LLM provider returned a
	// non-success response or has never completed verification.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrTransientNetwork covers DNS, connect, timeout, and 5xx failures
	// that are eligible for the per-feed quick-retry budget.
	ErrTransientNetwork = errors.New("transient network error")
)

// ValidationError represents a validation error with detailed field
// information. It implements the error interface and provides context about
// which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

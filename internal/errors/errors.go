package errors

import (
	stderrors "errors"
	"fmt"
)

// ShopError is the structured error type for shopsearch.
// It provides rich context for error handling, logging, and user presentation.
type ShopError struct {
	// Code is the unique error code (e.g., "ERR_301_INDEX_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Index, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried by the caller.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *ShopError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ShopError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with ShopError.
func (e *ShopError) Is(target error) bool {
	if t, ok := target.(*ShopError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *ShopError) WithDetail(key, value string) *ShopError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *ShopError) WithSuggestion(suggestion string) *ShopError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ShopError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *ShopError {
	return &ShopError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a ShopError from an existing error.
// The error's message becomes the ShopError message.
func Wrap(code string, err error) *ShopError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *ShopError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StorageError creates an error for a failed relational store operation.
func StorageError(message string, cause error) *ShopError {
	return New(ErrCodeStorageQuery, message, cause)
}

// IndexUnavailable creates an error signalling that the full-text index cannot serve queries.
func IndexUnavailable(message string, cause error) *ShopError {
	return New(ErrCodeIndexUnavailable, message, cause)
}

// IndexQueryError creates an error for a full-text query that failed to execute.
func IndexQueryError(message string, cause error) *ShopError {
	return New(ErrCodeIndexQuery, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *ShopError {
	return New(ErrCodeInvalidInput, message, cause)
}

// as finds the first ShopError in err's chain.
func as(err error) (*ShopError, bool) {
	var se *ShopError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if se, ok := as(err); ok {
		return se.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if se, ok := as(err); ok {
		return se.Severity == SeverityFatal
	}
	return false
}

// IsFallbackEligible reports whether err came from the full-text index and
// the query may be re-issued against the relational store.
func IsFallbackEligible(err error) bool {
	if se, ok := as(err); ok {
		return se.Category == CategoryIndex
	}
	return false
}

// GetCode extracts the error code from a ShopError.
// Returns empty string if err carries no ShopError.
func GetCode(err error) string {
	if se, ok := as(err); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a ShopError.
func GetCategory(err error) Category {
	if se, ok := as(err); ok {
		return se.Category
	}
	return ""
}

package errors

import (
	"fmt"
)

// WikivecError is the structured error type for wikivec.
// It provides rich context for error handling, logging, and user presentation.
type WikivecError struct {
	// Code is the unique error code (e.g., "ERR_201_ENTITY_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Data, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *WikivecError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *WikivecError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with WikivecError.
func (e *WikivecError) Is(target error) bool {
	if t, ok := target.(*WikivecError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *WikivecError) WithDetail(key, value string) *WikivecError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *WikivecError) WithSuggestion(suggestion string) *WikivecError {
	e.Suggestion = suggestion
	return e
}

// New creates a new WikivecError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *WikivecError {
	return &WikivecError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a WikivecError from an existing error.
// The error's message becomes the WikivecError message.
func Wrap(code string, err error) *WikivecError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *WikivecError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// DataError creates a knowledge-base data error.
func DataError(message string, cause error) *WikivecError {
	return New(ErrCodeMalformedEntity, message, cause)
}

// NetworkError creates a network-related error.
// Network errors are typically retryable.
func NetworkError(message string, cause error) *WikivecError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *WikivecError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *WikivecError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a WikivecError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if we, ok := err.(*WikivecError); ok {
		return we.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if we, ok := err.(*WikivecError); ok {
		return we.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a WikivecError.
// Returns empty string if not a WikivecError.
func GetCode(err error) string {
	if we, ok := err.(*WikivecError); ok {
		return we.Code
	}
	return ""
}

// GetCategory extracts the category from a WikivecError.
// Returns empty string if not a WikivecError.
func GetCategory(err error) Category {
	if we, ok := err.(*WikivecError); ok {
		return we.Category
	}
	return ""
}

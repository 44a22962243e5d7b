package errors

import (
	"fmt"
)

// SalonError is the structured error type for salonsearch.
// It carries a stable code plus enough context for logging and diagnosis.
type SalonError struct {
	// Code is the unique error code (e.g., "ERR_303_EMBEDDING_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Provider, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *SalonError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SalonError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with SalonError.
func (e *SalonError) Is(target error) bool {
	if t, ok := target.(*SalonError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SalonError) WithDetail(key, value string) *SalonError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new SalonError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SalonError {
	return &SalonError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SalonError from an existing error.
// The error's message becomes the SalonError message.
func Wrap(code string, err error) *SalonError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ProviderError creates an embedding/remote-backend error.
// Provider errors are caught at each retrieval strategy boundary and
// converted to zero candidates, never surfaced to search callers.
func ProviderError(message string, cause error) *SalonError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// StorageError creates an index/metadata storage error.
func StorageError(message string, cause error) *SalonError {
	return New(ErrCodeIndexIO, message, cause)
}

// NotFoundError creates an article-not-found error.
// Callers that tolerate missing hydration data treat this as absence.
func NotFoundError(message string) *SalonError {
	return New(ErrCodeArticleNotFound, message, nil)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *SalonError {
	return New(ErrCodeInvalidInput, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a SalonError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*SalonError); ok {
		return se.Retryable
	}
	return false
}

// IsNotFound checks if an error represents a missing article or chunk.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*SalonError); ok {
		return se.Code == ErrCodeArticleNotFound || se.Code == ErrCodeChunkNotFound
	}
	return false
}

// GetCode extracts the error code from a SalonError.
// Returns empty string if not a SalonError.
func GetCode(err error) string {
	if se, ok := err.(*SalonError); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a SalonError.
// Returns empty string if not a SalonError.
func GetCategory(err error) Category {
	if se, ok := err.(*SalonError); ok {
		return se.Category
	}
	return ""
}

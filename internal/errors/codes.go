// Package errors provides structured error handling for salonsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (index, metadata)
//   - 3XX: Provider errors (embedding, remote vector backend)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates index and metadata storage errors.
	CategoryStorage Category = "STORAGE"
	// CategoryProvider indicates embedding or remote backend errors.
	CategoryProvider Category = "PROVIDER"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeMissingAPIKey  = "ERR_103_MISSING_API_KEY"

	// Storage errors (200-299)
	ErrCodeArticleNotFound = "ERR_201_ARTICLE_NOT_FOUND"
	ErrCodeChunkNotFound   = "ERR_202_CHUNK_NOT_FOUND"
	ErrCodeIndexIO         = "ERR_203_INDEX_IO"
	ErrCodeIndexLocked     = "ERR_204_INDEX_LOCKED"
	ErrCodeCorruptIndex    = "ERR_205_CORRUPT_INDEX"

	// Provider errors (300-399)
	ErrCodeProviderTimeout     = "ERR_301_PROVIDER_TIMEOUT"
	ErrCodeProviderUnavailable = "ERR_302_PROVIDER_UNAVAILABLE"
	ErrCodeEmbeddingFailed     = "ERR_303_EMBEDDING_FAILED"
	ErrCodeRateLimited         = "ERR_304_RATE_LIMITED"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeInvalidArticle    = "ERR_403_INVALID_ARTICLE"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"
	ErrCodeIngestFailed = "ERR_503_INGEST_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryProvider
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity from error code.
// Provider failures degrade search to partial results, so they are warnings.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig:
		return SeverityFatal
	case CategoryProvider:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether an operation with this code may be retried.
// Only transient provider conditions qualify.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeProviderTimeout, ErrCodeProviderUnavailable, ErrCodeRateLimited:
		return true
	default:
		return false
	}
}

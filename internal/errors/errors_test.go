package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
		severity Severity
	}{
		{"config", ErrCodeConfigInvalid, CategoryConfig, SeverityFatal},
		{"storage", ErrCodeIndexIO, CategoryStorage, SeverityError},
		{"provider", ErrCodeEmbeddingFailed, CategoryProvider, SeverityWarning},
		{"validation", ErrCodeInvalidInput, CategoryValidation, SeverityError},
		{"internal", ErrCodeInternal, CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
		})
	}
}

func TestError_Format(t *testing.T) {
	err := New(ErrCodeArticleNotFound, "article missing", nil)
	assert.Equal(t, "[ERR_201_ARTICLE_NOT_FOUND] article missing", err.Error())
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCodeProviderUnavailable, cause)
	require.NotNil(t, err)
	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, stderrors.Is(err, cause))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodeEmbeddingFailed, "first", nil)
	b := New(ErrCodeEmbeddingFailed, "second", nil)
	assert.True(t, stderrors.Is(a, b))

	c := New(ErrCodeIndexIO, "other", nil)
	assert.False(t, stderrors.Is(a, c))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeRateLimited, "429", nil)))
	assert.True(t, IsRetryable(New(ErrCodeProviderTimeout, "timeout", nil)))
	assert.False(t, IsRetryable(New(ErrCodeEmbeddingFailed, "bad input", nil)))
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NotFoundError("gone")))
	assert.True(t, IsNotFound(New(ErrCodeChunkNotFound, "gone", nil)))
	assert.False(t, IsNotFound(New(ErrCodeIndexIO, "io", nil)))
	assert.False(t, IsNotFound(nil))
}

func TestWithDetail(t *testing.T) {
	err := ProviderError("embed failed", nil).
		WithDetail("strategy", "semantic").
		WithDetail("query", "茶")
	assert.Equal(t, "semantic", err.Details["strategy"])
	assert.Equal(t, "茶", err.Details["query"])
}

func TestGetCodeAndCategory(t *testing.T) {
	err := StorageError("disk", nil)
	assert.Equal(t, ErrCodeIndexIO, GetCode(err))
	assert.Equal(t, CategoryStorage, GetCategory(err))

	plain := fmt.Errorf("plain")
	assert.Equal(t, "", GetCode(plain))
	assert.Equal(t, Category(""), GetCategory(plain))
}

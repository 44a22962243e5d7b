package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	salonerrors "github.com/lanting/salonsearch/internal/errors"
)

// OpenAIEmbedder generates embeddings via an OpenAI-compatible HTTP API.
type OpenAIEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    Config

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*OpenAIEmbedder)(nil)

type embedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIEmbedder creates an embedder against cfg.BaseURL. The API key
// is required; everything else falls back to package defaults.
func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	cfg.applyDefaults()
	if cfg.APIKey == "" {
		return nil, salonerrors.New(salonerrors.ErrCodeMissingAPIKey,
			"embedding API key is not set", nil)
	}

	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}

	// No client-level timeout: per-request context timeouts in
	// embedWithRetry control deadlines.
	return &OpenAIEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
	}, nil
}

// Embed generates an embedding for a single text. Empty input yields a
// zero vector without an API call.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return make([]float32, e.config.Dimensions), nil
	}

	vecs, err := e.embedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts, issuing requests in
// batches of the configured size. Order is preserved; empty texts map to
// zero vectors.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var indices []int
	var pending []string
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, e.config.Dimensions)
			continue
		}
		indices = append(indices, i)
		pending = append(pending, text)
	}

	for start := 0; start < len(pending); start += e.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+e.config.BatchSize, len(pending))

		vecs, err := e.embedWithRetry(ctx, pending[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		for j, vec := range vecs {
			results[indices[start+j]] = vec
		}
	}
	return results, nil
}

// embedWithRetry calls the API with exponential backoff. Rate limits and
// transient failures are retried; invalid-input errors are not.
func (e *OpenAIEmbedder) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt < e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(500<<attempt) * time.Millisecond
			slog.Debug("embedding_retry",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		vecs, err := e.doEmbed(reqCtx, texts)
		cancel()

		if err == nil {
			return vecs, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !salonerrors.IsRetryable(err) {
			return nil, err
		}
	}

	return nil, salonerrors.ProviderError(
		fmt.Sprintf("embedding failed after %d attempts", e.config.MaxRetries), lastErr)
}

// doEmbed performs one /embeddings request.
func (e *OpenAIEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	payload := embedRequest{
		Model: e.config.Model,
		Input: texts,
	}
	// text-embedding-3 models accept a dimensions override; older models
	// reject the field, so only send it when it differs from the default.
	if strings.HasPrefix(e.config.Model, "text-embedding-3") {
		payload.Dimensions = e.config.Dimensions
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(e.config.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, salonerrors.New(salonerrors.ErrCodeProviderTimeout,
				"embedding request timed out", err)
		}
		return nil, salonerrors.New(salonerrors.ErrCodeProviderUnavailable,
			"embedding provider unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, salonerrors.New(salonerrors.ErrCodeRateLimited,
				"embedding provider rate limited", fmt.Errorf("%s", respBody))
		case resp.StatusCode >= 500:
			return nil, salonerrors.New(salonerrors.ErrCodeProviderUnavailable,
				fmt.Sprintf("embedding provider returned %d", resp.StatusCode),
				fmt.Errorf("%s", respBody))
		default:
			return nil, salonerrors.New(salonerrors.ErrCodeInvalidInput,
				fmt.Sprintf("embedding request rejected with %d", resp.StatusCode),
				fmt.Errorf("%s", respBody))
		}
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, salonerrors.New(salonerrors.ErrCodeEmbeddingFailed,
			"decode embedding response", err)
	}
	if result.Error != nil {
		return nil, salonerrors.New(salonerrors.ErrCodeEmbeddingFailed,
			result.Error.Message, nil)
	}
	if len(result.Data) != len(texts) {
		return nil, salonerrors.New(salonerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(result.Data)), nil)
	}

	// The API may return entries out of order; index is authoritative.
	vecs := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, salonerrors.New(salonerrors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("embedding index %d out of range", d.Index), nil)
		}
		if len(d.Embedding) != e.config.Dimensions {
			return nil, salonerrors.New(salonerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("expected %d dimensions, got %d", e.config.Dimensions, len(d.Embedding)), nil)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

func (e *OpenAIEmbedder) checkOpen() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return salonerrors.New(salonerrors.ErrCodeProviderUnavailable,
			"embedder is closed", nil)
	}
	return nil
}

// Dimensions returns the embedding vector size.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.config.Model
}

// Close releases idle connections. Safe to call more than once.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}

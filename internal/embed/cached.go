package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Query cache defaults. Entries expire after the TTL; beyond the size
// bound the least recently used entry is evicted.
const (
	DefaultCacheSize = 100
	DefaultCacheTTL  = 30 * time.Minute
)

// CachedEmbedder wraps an Embedder with a TTL-bounded LRU cache keyed by
// text and model. Repeated queries within the TTL skip the provider
// round-trip entirely.
type CachedEmbedder struct {
	inner Embedder
	cache *expirable.LRU[string, []float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder creates a cached embedder. Non-positive size or TTL
// fall back to the defaults.
func NewCachedEmbedder(inner Embedder, size int, ttl time.Duration) *CachedEmbedder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedEmbedder{
		inner: inner,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

// cacheKey hashes text together with the model name so a model switch
// never serves stale vectors.
func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text + "\x00" + c.inner.ModelName()))
	return hex.EncodeToString(h[:])
}

// Embed returns the cached embedding when fresh, otherwise computes and
// caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch embeds multiple texts, serving cached entries and batching
// only the misses through the inner embedder.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := c.cache.Get(c.cacheKey(text)); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		results[idx] = vecs[j]
		c.cache.Add(c.cacheKey(texts[idx]), vecs[j])
	}
	return results, nil
}

// Dimensions returns the embedding vector size.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// ModelName returns the model identifier.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// Close closes the inner embedder.
func (c *CachedEmbedder) Close() error { return c.inner.Close() }

package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync/atomic"
)

// StaticEmbedder produces deterministic embeddings derived from a hash
// of the input text. It needs no network and always returns unit-length
// vectors, so similarity math behaves like a real provider. Used in
// tests and offline smoke runs.
type StaticEmbedder struct {
	dims  int
	calls atomic.Int64
}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates a static embedder with the given dimensions.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// Embed returns a deterministic unit vector for text. Identical inputs
// always produce identical vectors.
func (s *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls.Add(1)
	if strings.TrimSpace(text) == "" {
		return make([]float32, s.dims), nil
	}

	vec := make([]float32, s.dims)
	seed := sha256.Sum256([]byte(text))
	var norm float64
	for i := range vec {
		// Stretch the 32-byte digest across arbitrary dimensions by
		// rehashing with the index.
		var buf [8]byte
		binary.LittleEndian.PutUint32(buf[:4], uint32(i))
		copy(buf[4:], seed[i%28:i%28+4])
		h := sha256.Sum256(buf[:])
		v := float64(int32(binary.LittleEndian.Uint32(h[:4]))) / float64(math.MaxInt32)
		vec[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (s *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *StaticEmbedder) Dimensions() int { return s.dims }

// ModelName returns the model identifier.
func (s *StaticEmbedder) ModelName() string { return "static" }

// Close is a no-op.
func (s *StaticEmbedder) Close() error { return nil }

// Calls reports how many Embed invocations the embedder has served.
// Tests use it to assert cache hits.
func (s *StaticEmbedder) Calls() int64 { return s.calls.Load() }

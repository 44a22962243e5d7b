package embed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder_HitSkipsProvider(t *testing.T) {
	inner := NewStaticEmbedder(64)
	cached := NewCachedEmbedder(inner, 10, time.Minute)
	ctx := context.Background()

	v1, err := cached.Embed(ctx, "关于茶的内容")
	require.NoError(t, err)
	v2, err := cached.Embed(ctx, "关于茶的内容")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(1), inner.Calls(), "second call must be served from cache")
}

func TestCachedEmbedder_DistinctTextsMiss(t *testing.T) {
	inner := NewStaticEmbedder(64)
	cached := NewCachedEmbedder(inner, 10, time.Minute)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "first query")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "second query")
	require.NoError(t, err)

	assert.Equal(t, int64(2), inner.Calls())
}

func TestCachedEmbedder_TTLExpiry(t *testing.T) {
	inner := NewStaticEmbedder(16)
	cached := NewCachedEmbedder(inner, 10, 10*time.Millisecond)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "short lived")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = cached.Embed(ctx, "short lived")
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner.Calls(), "expired entry must be recomputed")
}

func TestCachedEmbedder_SizeBound(t *testing.T) {
	inner := NewStaticEmbedder(16)
	cached := NewCachedEmbedder(inner, 2, time.Minute)
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c"} {
		_, err := cached.Embed(ctx, q)
		require.NoError(t, err)
	}

	// "a" was evicted by the size bound; re-embedding it hits the provider.
	_, err := cached.Embed(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(4), inner.Calls())
}

func TestCachedEmbedder_BatchMixesHitsAndMisses(t *testing.T) {
	inner := NewStaticEmbedder(32)
	cached := NewCachedEmbedder(inner, 10, time.Minute)
	ctx := context.Background()

	warm, err := cached.Embed(ctx, "warm")
	require.NoError(t, err)

	vecs, err := cached.EmbedBatch(ctx, []string{"cold one", "warm", "cold two"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Equal(t, warm, vecs[1])
	// 1 warm call + 2 cold batch entries
	assert.Equal(t, int64(3), inner.Calls())
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	cached := NewCachedEmbedder(NewStaticEmbedder(8), 10, time.Minute)
	vecs, err := cached.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := NewStaticEmbedder(48)
	cached := NewCachedEmbedder(inner, 0, 0)

	assert.Equal(t, 48, cached.Dimensions())
	assert.Equal(t, "static", cached.ModelName())
	assert.NoError(t, cached.Close())
}

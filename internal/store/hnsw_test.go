package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	salonerrors "github.com/lanting/salonsearch/internal/errors"
)

func TestHNSWStore_AddAndSearch(t *testing.T) {
	s, err := NewHNSWStore("", 3)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx,
		[]string{"c1", "c2", "c3"},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.9, 0.1, 0},
		}))

	results, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Equal(t, "c3", results[1].ChunkID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestHNSWStore_EmptyGraph(t *testing.T) {
	s, err := NewHNSWStore("", 4)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	results, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWStore_DimensionMismatch(t *testing.T) {
	s, err := NewHNSWStore("", 4)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	err = s.Add(ctx, []string{"c1"}, [][]float32{{1, 0}})
	require.Error(t, err)
	assert.Equal(t, salonerrors.ErrCodeDimensionMismatch, salonerrors.GetCode(err))

	_, err = s.Search(ctx, []float32{1, 0}, 1)
	require.Error(t, err)
	assert.Equal(t, salonerrors.ErrCodeDimensionMismatch, salonerrors.GetCode(err))
}

func TestHNSWStore_UpdateReplacesVector(t *testing.T) {
	s, err := NewHNSWStore("", 3)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"c1"}, [][]float32{{1, 0, 0}}))
	require.NoError(t, s.Add(ctx, []string{"c1"}, [][]float32{{0, 1, 0}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := s.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestHNSWStore_DeleteHidesVector(t *testing.T) {
	s, err := NewHNSWStore("", 3)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx,
		[]string{"c1", "c2"},
		[][]float32{{1, 0, 0}, {0, 1, 0}}))
	require.NoError(t, s.Delete(ctx, []string{"c1"}))

	results, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "c1", r.ChunkID)
	}

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHNSWStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.hnsw")
	ctx := context.Background()

	s, err := NewHNSWStore(path, 3)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx,
		[]string{"c1", "c2"},
		[][]float32{{1, 0, 0}, {0, 0, 1}}))
	require.NoError(t, s.Save())
	require.NoError(t, s.Close())

	loaded, err := NewHNSWStore(path, 3)
	require.NoError(t, err)
	defer func() { _ = loaded.Close() }()

	n, err := loaded.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := loaded.Search(ctx, []float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].ChunkID)
}

func TestHNSWStore_LoadRejectsWrongDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.hnsw")

	s, err := NewHNSWStore(path, 3)
	require.NoError(t, err)
	require.NoError(t, s.Add(context.Background(), []string{"c1"}, [][]float32{{1, 0, 0}}))
	require.NoError(t, s.Save())
	require.NoError(t, s.Close())

	_, err = NewHNSWStore(path, 8)
	require.Error(t, err)
	assert.Equal(t, salonerrors.ErrCodeDimensionMismatch, salonerrors.GetCode(err))
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	normalize(v)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	zero := []float32{0, 0}
	normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestPointUUID(t *testing.T) {
	u1 := pointUUID("article-1:0")
	u2 := pointUUID("article-1:0")
	u3 := pointUUID("article-1:1")

	assert.Equal(t, u1, u2, "point IDs must be deterministic")
	assert.NotEqual(t, u1, u3)
	assert.Len(t, u1, 36)
	assert.Equal(t, byte('4'), u1[14], "must carry the version nibble")
}

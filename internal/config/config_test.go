package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
	assert.InDelta(t, 0.3, cfg.Search.SimilarityThreshold, 1e-9)
	assert.Equal(t, 800, cfg.Chunking.ChunkSize)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 50, cfg.Chunking.MinChunkChars)
	assert.Equal(t, "text-embedding-3-large", cfg.Embeddings.Model)
	assert.Equal(t, 3072, cfg.Embeddings.Dimensions)
	assert.Equal(t, 10, cfg.Embeddings.BatchSize)
	assert.Equal(t, 100, cfg.Embeddings.CacheSize)
	assert.Equal(t, 30*time.Minute, cfg.Embeddings.CacheTTL)
	assert.Equal(t, "hnsw", cfg.Vector.Backend)

	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "salonsearch.yaml")
	yaml := `
search:
  default_limit: 5
  max_limit: 50
  similarity_threshold: 0.4
chunking:
  chunk_size: 400
  overlap: 80
  min_chunk_chars: 30
vector:
  backend: qdrant
  qdrant_addr: qdrant.local:6334
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, 400, cfg.Chunking.ChunkSize)
	assert.Equal(t, 30, cfg.Chunking.MinChunkChars)
	assert.Equal(t, "qdrant", cfg.Vector.Backend)
	assert.Equal(t, "qdrant.local:6334", cfg.Vector.QdrantAddr)
	// Untouched values keep defaults
	assert.Equal(t, 3072, cfg.Embeddings.Dimensions)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SALONSEARCH_VECTOR_BACKEND", "qdrant")
	t.Setenv("SALONSEARCH_SIMILARITY_THRESHOLD", "0.25")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "qdrant", cfg.Vector.Backend)
	assert.InDelta(t, 0.25, cfg.Search.SimilarityThreshold, 1e-9)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero limit", func(c *Config) { c.Search.DefaultLimit = 0 }},
		{"max below default", func(c *Config) { c.Search.MaxLimit = 1 }},
		{"threshold above one", func(c *Config) { c.Search.SimilarityThreshold = 1.5 }},
		{"zero chunk size", func(c *Config) { c.Chunking.ChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }},
		{"zero dimensions", func(c *Config) { c.Embeddings.Dimensions = 0 }},
		{"unknown backend", func(c *Config) { c.Vector.Backend = "pinecone" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	cfg := Default()
	cfg.Search.DefaultLimit = 7
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Search.DefaultLimit)
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/tmp/salon-test"

	assert.Equal(t, "/tmp/salon-test/metadata.db", cfg.MetadataPath())
	assert.Equal(t, "/tmp/salon-test/lexical.bleve", cfg.LexicalIndexPath())
	assert.Equal(t, "/tmp/salon-test/vectors.hnsw", cfg.VectorIndexPath())
}

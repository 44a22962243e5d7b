package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/lanting/salonsearch/internal/config"
	"github.com/lanting/salonsearch/internal/embed"
	"github.com/lanting/salonsearch/internal/store"
)

// app bundles the opened stores and embedder for one command invocation.
type app struct {
	cfg      *config.Config
	metadata store.MetadataStore
	lexical  store.LexicalIndex
	vectors  store.VectorStore
	embedder embed.Embedder
}

// openApp opens the stores under cfg.DataDir. The embedder is only
// constructed when asked for, so metadata-only commands work without an
// API key.
func openApp(ctx context.Context, cfg *config.Config, withEmbedder bool) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", cfg.DataDir, err)
	}

	a := &app{cfg: cfg}

	metadata, err := store.NewSQLiteStore(cfg.MetadataPath())
	if err != nil {
		return nil, err
	}
	a.metadata = metadata

	lexical, err := store.NewBleveIndex(cfg.LexicalIndexPath())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.lexical = lexical

	vectors, err := openVectorStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.vectors = vectors

	if withEmbedder {
		embedder, err := newEmbedder(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.embedder = embedder
	}

	return a, nil
}

func openVectorStore(ctx context.Context, cfg *config.Config) (store.VectorStore, error) {
	switch cfg.Vector.Backend {
	case "qdrant":
		return store.NewQdrantStore(ctx, cfg.Vector.QdrantAddr, cfg.Vector.Collection,
			cfg.Embeddings.Dimensions)
	default:
		return store.NewHNSWStore(cfg.VectorIndexPath(), cfg.Embeddings.Dimensions)
	}
}

func newEmbedder(cfg *config.Config) (embed.Embedder, error) {
	inner, err := embed.NewOpenAIEmbedder(embed.Config{
		BaseURL:    cfg.Embeddings.BaseURL,
		APIKey:     os.Getenv(cfg.Embeddings.APIKeyEnv),
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		Timeout:    cfg.Embeddings.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return embed.NewCachedEmbedder(inner, cfg.Embeddings.CacheSize, cfg.Embeddings.CacheTTL), nil
}

// Close releases everything that was opened. Safe on a partially
// constructed app.
func (a *app) Close() {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.vectors != nil {
		_ = a.vectors.Close()
	}
	if a.lexical != nil {
		_ = a.lexical.Close()
	}
	if a.metadata != nil {
		_ = a.metadata.Close()
	}
}

// Package store provides the persistence layer: a bleve full-text index
// over article fields, a vector store for chunk embeddings (local HNSW
// or remote Qdrant), and a SQLite metadata database.
package store

import (
	"context"
	"time"
)

// Article is one blog post as ingested.
type Article struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Summary     string    `json:"summary,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Chunk is one embedded segment of an article. Article metadata is
// denormalized onto the chunk so search results can render without a
// second lookup.
type Chunk struct {
	ID         string   `json:"id"`
	ArticleID  string   `json:"article_id"`
	Content    string   `json:"content"`
	Index      int      `json:"index"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	Tags       []string `json:"tags,omitempty"`
}

// LexicalField selects which article field a lexical search targets.
type LexicalField string

const (
	FieldTitle   LexicalField = "title"
	FieldContent LexicalField = "content"
)

// LexicalResult is one full-text hit.
type LexicalResult struct {
	ArticleID string
	Score     float64
	Fragment  string // highlighted snippet from the matched field
}

// VectorResult is one nearest-neighbor hit over chunk embeddings.
type VectorResult struct {
	ChunkID string
	Score   float32 // cosine similarity mapped to [0,1]
}

// LexicalIndex is full-text search over article fields.
type LexicalIndex interface {
	// Index adds or replaces articles.
	Index(ctx context.Context, articles []*Article) error

	// Search runs a match query against one field, optionally restricted
	// to articles carrying tag. Results are best-first.
	Search(ctx context.Context, field LexicalField, query, tag string, limit int) ([]*LexicalResult, error)

	// Delete removes articles by ID.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of indexed articles.
	Count() (int, error)

	Close() error
}

// VectorStore is nearest-neighbor search over chunk embeddings.
type VectorStore interface {
	// Add inserts or replaces vectors keyed by chunk ID.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search returns the k nearest chunks, best-first.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Delete removes vectors by chunk ID.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	Close() error
}

// MetadataStore persists articles and chunks.
type MetadataStore interface {
	SaveArticle(ctx context.Context, a *Article) error
	GetArticle(ctx context.Context, id string) (*Article, error)
	GetArticleBySlug(ctx context.Context, slug string) (*Article, error)
	ListArticles(ctx context.Context) ([]*Article, error)
	ListArticlesByTag(ctx context.Context, tag string) ([]*Article, error)
	DeleteArticle(ctx context.Context, id string) error

	SaveChunks(ctx context.Context, chunks []*Chunk) error
	GetChunk(ctx context.Context, id string) (*Chunk, error)
	GetChunksByArticle(ctx context.Context, articleID string) ([]*Chunk, error)
	DeleteChunksByArticle(ctx context.Context, articleID string) error

	// HasChunks reports whether an article already has embedded chunks,
	// used to skip re-embedding on ingest.
	HasChunks(ctx context.Context, articleID string) (bool, error)

	// ListTags returns all distinct tags with article counts.
	ListTags(ctx context.Context) (map[string]int, error)

	Close() error
}

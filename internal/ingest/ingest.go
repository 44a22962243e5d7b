// Package ingest loads articles from a JSONL export, indexes them for
// full-text search, and embeds their chunks for semantic search.
//
// Ingestion is guarded by a file lock so two concurrent runs cannot
// interleave writes to the same data directory.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/lanting/salonsearch/internal/chunk"
	"github.com/lanting/salonsearch/internal/embed"
	salonerrors "github.com/lanting/salonsearch/internal/errors"
	"github.com/lanting/salonsearch/internal/store"
)

// Options configures one ingestion run.
type Options struct {
	// Force re-chunks and re-embeds articles that already have chunks.
	Force bool

	// LockPath guards the data directory. Empty disables locking.
	LockPath string

	Chunking chunk.Options
}

// Stats summarizes an ingestion run.
type Stats struct {
	Articles int           // articles written to metadata and lexical index
	Embedded int           // articles whose chunks were (re)embedded
	Skipped  int           // articles skipped because chunks already exist
	Chunks   int           // chunks embedded
	Elapsed  time.Duration
}

// Ingestor wires the stores and the embedder into an ingestion pipeline.
type Ingestor struct {
	metadata store.MetadataStore
	lexical  store.LexicalIndex
	vectors  store.VectorStore
	embedder embed.Embedder
	logger   *slog.Logger
}

// New creates an Ingestor.
func New(metadata store.MetadataStore, lexical store.LexicalIndex, vectors store.VectorStore, embedder embed.Embedder, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		metadata: metadata,
		lexical:  lexical,
		vectors:  vectors,
		embedder: embedder,
		logger:   logger,
	}
}

// jsonlArticle is the wire shape of one line in the export file.
type jsonlArticle struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Summary     string   `json:"summary"`
	Tags        []string `json:"tags"`
	PublishedAt string   `json:"published_at"`
}

// IngestFile reads a JSONL article export and ingests every line.
func (in *Ingestor) IngestFile(ctx context.Context, path string, opts Options) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, salonerrors.New(salonerrors.ErrCodeIngestFailed,
			fmt.Sprintf("open articles file %s", path), err)
	}
	defer func() { _ = f.Close() }()

	articles, err := decodeArticles(f)
	if err != nil {
		return nil, err
	}
	return in.Ingest(ctx, articles, opts)
}

func decodeArticles(f *os.File) ([]*store.Article, error) {
	var out []*store.Article
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var ja jsonlArticle
		if err := json.Unmarshal([]byte(raw), &ja); err != nil {
			return nil, salonerrors.New(salonerrors.ErrCodeInvalidArticle,
				fmt.Sprintf("parse article at line %d", line), err)
		}

		a := &store.Article{
			ID:      ja.ID,
			Slug:    ja.Slug,
			Title:   ja.Title,
			Content: ja.Content,
			Summary: ja.Summary,
			Tags:    ja.Tags,
		}
		if a.ID == "" {
			a.ID = a.Slug
		}
		if ja.PublishedAt != "" {
			t, err := time.Parse(time.RFC3339, ja.PublishedAt)
			if err != nil {
				return nil, salonerrors.New(salonerrors.ErrCodeInvalidArticle,
					fmt.Sprintf("parse published_at at line %d", line), err)
			}
			a.PublishedAt = t
		}
		out = append(out, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, salonerrors.New(salonerrors.ErrCodeIngestFailed, "read articles file", err)
	}
	return out, nil
}

// Ingest writes articles to the metadata store and lexical index, then
// chunks and embeds any article that has no chunks yet (or all of them
// with Force). Articles already embedded are skipped so repeated runs
// cost no provider calls.
func (in *Ingestor) Ingest(ctx context.Context, articles []*store.Article, opts Options) (*Stats, error) {
	start := time.Now()

	if opts.LockPath != "" {
		lock := flock.New(opts.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, salonerrors.New(salonerrors.ErrCodeIngestFailed, "acquire ingest lock", err)
		}
		if !locked {
			return nil, salonerrors.New(salonerrors.ErrCodeIndexLocked,
				"another ingestion is running", nil)
		}
		defer func() { _ = lock.Unlock() }()
	}

	chunker := chunk.New(opts.Chunking)
	stats := &Stats{}

	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if a.ID == "" || a.Title == "" {
			return nil, salonerrors.New(salonerrors.ErrCodeInvalidArticle,
				fmt.Sprintf("article %q requires id and title", a.Slug), nil)
		}

		if err := in.metadata.SaveArticle(ctx, a); err != nil {
			return nil, err
		}
		stats.Articles++

		has, err := in.metadata.HasChunks(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		if has && !opts.Force {
			stats.Skipped++
			in.logger.Debug("article_already_embedded", slog.String("article_id", a.ID))
			continue
		}

		n, err := in.embedArticle(ctx, chunker, a)
		if err != nil {
			return nil, err
		}
		stats.Embedded++
		stats.Chunks += n
	}

	if err := in.lexical.Index(ctx, articles); err != nil {
		return nil, err
	}

	// The local HNSW backend persists explicitly; Qdrant writes through.
	if saver, ok := in.vectors.(interface{ Save() error }); ok {
		if err := saver.Save(); err != nil {
			return nil, err
		}
	}

	stats.Elapsed = time.Since(start)
	in.logger.Info("ingest_complete",
		slog.Int("articles", stats.Articles),
		slog.Int("embedded", stats.Embedded),
		slog.Int("skipped", stats.Skipped),
		slog.Int("chunks", stats.Chunks),
		slog.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

// embedArticle chunks the article, embeds the chunks, and replaces any
// previous chunks and vectors. Chunk text leads with the title so each
// embedding carries the article's subject even deep into the body.
func (in *Ingestor) embedArticle(ctx context.Context, chunker *chunk.Chunker, a *store.Article) (int, error) {
	old, err := in.metadata.GetChunksByArticle(ctx, a.ID)
	if err != nil {
		return 0, err
	}
	if len(old) > 0 {
		ids := make([]string, len(old))
		for i, c := range old {
			ids[i] = c.ID
		}
		if err := in.vectors.Delete(ctx, ids); err != nil {
			return 0, err
		}
		if err := in.metadata.DeleteChunksByArticle(ctx, a.ID); err != nil {
			return 0, err
		}
	}

	pieces := chunker.Chunk(a.Title + "\n\n" + a.Content)
	if len(pieces) == 0 {
		return 0, nil
	}

	chunks := make([]*store.Chunk, len(pieces))
	texts := make([]string, len(pieces))
	ids := make([]string, len(pieces))
	for i, p := range pieces {
		id := fmt.Sprintf("%s:%d", a.ID, i)
		chunks[i] = &store.Chunk{
			ID:        id,
			ArticleID: a.ID,
			Content:   p.Content,
			Index:     i,
			Start:     p.Start,
			End:       p.End,
			Title:     a.Title,
			Slug:      a.Slug,
			Tags:      a.Tags,
		}
		texts[i] = p.Content
		ids[i] = id
	}

	vectors, err := in.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, salonerrors.New(salonerrors.ErrCodeIngestFailed,
			fmt.Sprintf("embed article %s", a.ID), err)
	}

	if err := in.metadata.SaveChunks(ctx, chunks); err != nil {
		return 0, err
	}
	if err := in.vectors.Add(ctx, ids, vectors); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

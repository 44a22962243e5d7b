package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanting/salonsearch/internal/chunk"
	"github.com/lanting/salonsearch/internal/embed"
	salonerrors "github.com/lanting/salonsearch/internal/errors"
	"github.com/lanting/salonsearch/internal/store"
)

type fixture struct {
	metadata *store.SQLiteStore
	lexical  *store.BleveIndex
	vectors  *store.HNSWStore
	embedder *embed.StaticEmbedder
	ingestor *Ingestor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	metadata, err := store.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = metadata.Close() })

	lexical, err := store.NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lexical.Close() })

	vectors, err := store.NewHNSWStore("", 32)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	embedder := embed.NewStaticEmbedder(32)

	return &fixture{
		metadata: metadata,
		lexical:  lexical,
		vectors:  vectors,
		embedder: embedder,
		ingestor: New(metadata, lexical, vectors, embedder, nil),
	}
}

func longBody(sentence string) string {
	return strings.Repeat(sentence+" ", 6)
}

func testArticles() []*store.Article {
	return []*store.Article{
		{
			ID:      "a1",
			Slug:    "tea-history",
			Title:   "中国茶文化的历史",
			Content: longBody("茶道起源于中国，经过几千年的发展形成了独特而深厚的文化体系。"),
			Tags:    []string{"文化"},
			PublishedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:      "a2",
			Slug:    "go-basics",
			Title:   "Getting started with Go",
			Content: longBody("Go makes concurrent programming approachable with goroutines and channels everywhere."),
			PublishedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestIngest_FullPipeline(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	stats, err := fx.ingestor.Ingest(ctx, testArticles(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Articles)
	assert.Equal(t, 2, stats.Embedded)
	assert.Equal(t, 0, stats.Skipped)
	assert.Greater(t, stats.Chunks, 0)

	// Metadata persisted
	a, err := fx.metadata.GetArticle(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "中国茶文化的历史", a.Title)

	// Lexical index populated
	n, err := fx.lexical.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Vectors stored, one per chunk
	vn, err := fx.vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.Chunks, vn)

	// Chunks carry denormalized article metadata
	chunks, err := fx.metadata.GetChunksByArticle(ctx, "a1")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "中国茶文化的历史", chunks[0].Title)
	assert.Equal(t, []string{"文化"}, chunks[0].Tags)
	assert.Equal(t, "tea-history", chunks[0].Slug)
}

func TestIngest_SkipsAlreadyEmbedded(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.ingestor.Ingest(ctx, testArticles(), Options{})
	require.NoError(t, err)
	callsAfterFirst := fx.embedder.Calls()

	stats, err := fx.ingestor.Ingest(ctx, testArticles(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 0, stats.Embedded)
	assert.Equal(t, callsAfterFirst, fx.embedder.Calls(),
		"second run must not re-embed anything")
}

func TestIngest_ForceReembeds(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	first, err := fx.ingestor.Ingest(ctx, testArticles(), Options{})
	require.NoError(t, err)

	stats, err := fx.ingestor.Ingest(ctx, testArticles(), Options{Force: true})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Embedded)
	assert.Equal(t, 0, stats.Skipped)

	// Re-embedding must not duplicate vectors.
	vn, err := fx.vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, vn)
}

func TestIngest_RejectsInvalidArticle(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.ingestor.Ingest(context.Background(), []*store.Article{
		{Slug: "no-title", Content: "body"},
	}, Options{})
	require.Error(t, err)
	assert.Equal(t, salonerrors.ErrCodeInvalidArticle, salonerrors.GetCode(err))
}

func TestIngest_LockContention(t *testing.T) {
	fx := newFixture(t)
	lockPath := filepath.Join(t.TempDir(), ".ingest.lock")

	held := flock.New(lockPath)
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	_, err = fx.ingestor.Ingest(context.Background(), testArticles(),
		Options{LockPath: lockPath})
	require.Error(t, err)
	assert.Equal(t, salonerrors.ErrCodeIndexLocked, salonerrors.GetCode(err))

	require.NoError(t, held.Unlock())

	_, err = fx.ingestor.Ingest(context.Background(), testArticles(),
		Options{LockPath: lockPath})
	assert.NoError(t, err)
}

func TestIngestFile_JSONL(t *testing.T) {
	fx := newFixture(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "articles.jsonl")

	lines := `{"slug":"tea","title":"茶文化","content":"` +
		strings.Repeat("茶道起源于中国经过几千年的发展形成了独特的文化体系。", 3) +
		`","tags":["文化"],"published_at":"2024-03-01T00:00:00Z"}
{"id":"go-1","slug":"go","title":"Go basics","content":"` +
		strings.Repeat("Go makes concurrent programming approachable for everyone involved. ", 4) +
		`"}
`
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))

	stats, err := fx.ingestor.IngestFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Articles)

	// ID falls back to slug when absent.
	a, err := fx.metadata.GetArticle(context.Background(), "tea")
	require.NoError(t, err)
	assert.Equal(t, "茶文化", a.Title)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), a.PublishedAt)

	_, err = fx.metadata.GetArticle(context.Background(), "go-1")
	require.NoError(t, err)
}

func TestIngestFile_MalformedLine(t *testing.T) {
	fx := newFixture(t)
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0o644))

	_, err := fx.ingestor.IngestFile(context.Background(), path, Options{})
	require.Error(t, err)
	assert.Equal(t, salonerrors.ErrCodeInvalidArticle, salonerrors.GetCode(err))
}

func TestIngest_ChunkingOptionsRespected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	articles := []*store.Article{{
		ID:    "long",
		Slug:  "long",
		Title: "一篇很长的文章",
		Content: strings.Repeat("这是一个足够长的句子用来测试分块行为是否符合预期的设置。", 20),
		PublishedAt: time.Now(),
	}}

	stats, err := fx.ingestor.Ingest(ctx, articles, Options{
		Chunking: chunk.Options{ChunkSize: 60, Overlap: 1, MinChunkChars: 10},
	})
	require.NoError(t, err)
	assert.Greater(t, stats.Chunks, 1, "small budget must produce multiple chunks")
}

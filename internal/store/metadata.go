package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	salonerrors "github.com/lanting/salonsearch/internal/errors"
)

// SQLiteStore implements MetadataStore on modernc.org/sqlite. Tags are
// stored as a JSON array column; the article count per tag is cheap to
// derive at the scale of a personal blog.
type SQLiteStore struct {
	db *sql.DB
}

var _ MetadataStore = (*SQLiteStore)(nil)

const metadataSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id           TEXT PRIMARY KEY,
	slug         TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	content      TEXT NOT NULL,
	summary      TEXT NOT NULL DEFAULT '',
	tags         TEXT NOT NULL DEFAULT '[]',
	published_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	content    TEXT NOT NULL,
	idx        INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	title      TEXT NOT NULL,
	slug       TEXT NOT NULL,
	tags       TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_chunks_article ON chunks(article_id);
`

// NewSQLiteStore opens or creates the metadata database at path. An
// empty path uses an in-memory database for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, salonerrors.StorageError("create metadata directory", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, salonerrors.StorageError("open metadata database", err)
	}
	// modernc.org/sqlite serializes access per connection; a single
	// connection avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, salonerrors.StorageError(fmt.Sprintf("apply %s", pragma), err)
		}
	}

	if _, err := db.Exec(metadataSchema); err != nil {
		_ = db.Close()
		return nil, salonerrors.StorageError("create metadata schema", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveArticle inserts or replaces an article.
func (s *SQLiteStore) SaveArticle(ctx context.Context, a *Article) error {
	if a.ID == "" || a.Title == "" {
		return salonerrors.New(salonerrors.ErrCodeInvalidArticle,
			"article requires id and title", nil)
	}
	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return salonerrors.StorageError("marshal article tags", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO articles (id, slug, title, content, summary, tags, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug = excluded.slug,
			title = excluded.title,
			content = excluded.content,
			summary = excluded.summary,
			tags = excluded.tags,
			published_at = excluded.published_at`,
		a.ID, a.Slug, a.Title, a.Content, a.Summary, string(tags), a.PublishedAt.Unix())
	if err != nil {
		return salonerrors.StorageError(fmt.Sprintf("save article %s", a.ID), err)
	}
	return nil
}

func scanArticle(row *sql.Row) (*Article, error) {
	var a Article
	var tags string
	var published int64
	err := row.Scan(&a.ID, &a.Slug, &a.Title, &a.Content, &a.Summary, &tags, &published)
	if err == sql.ErrNoRows {
		return nil, salonerrors.NotFoundError("article not found")
	}
	if err != nil {
		return nil, salonerrors.StorageError("scan article", err)
	}
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return nil, salonerrors.StorageError("unmarshal article tags", err)
	}
	a.PublishedAt = time.Unix(published, 0).UTC()
	return &a, nil
}

// GetArticle fetches an article by ID.
func (s *SQLiteStore) GetArticle(ctx context.Context, id string) (*Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, slug, title, content, summary, tags, published_at FROM articles WHERE id = ?`, id)
	return scanArticle(row)
}

// GetArticleBySlug fetches an article by slug.
func (s *SQLiteStore) GetArticleBySlug(ctx context.Context, slug string) (*Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, slug, title, content, summary, tags, published_at FROM articles WHERE slug = ?`, slug)
	return scanArticle(row)
}

// ListArticles returns all articles, newest first.
func (s *SQLiteStore) ListArticles(ctx context.Context) ([]*Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, title, content, summary, tags, published_at
		 FROM articles ORDER BY published_at DESC`)
	if err != nil {
		return nil, salonerrors.StorageError("list articles", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Article
	for rows.Next() {
		var a Article
		var tags string
		var published int64
		if err := rows.Scan(&a.ID, &a.Slug, &a.Title, &a.Content, &a.Summary, &tags, &published); err != nil {
			return nil, salonerrors.StorageError("scan article", err)
		}
		if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
			return nil, salonerrors.StorageError("unmarshal article tags", err)
		}
		a.PublishedAt = time.Unix(published, 0).UTC()
		out = append(out, &a)
	}
	return out, rows.Err()
}

// ListArticlesByTag returns articles carrying tag, newest first. Tags
// live in a JSON column, so filtering happens after the scan; a personal
// blog is small enough that this never matters.
func (s *SQLiteStore) ListArticlesByTag(ctx context.Context, tag string) ([]*Article, error) {
	all, err := s.ListArticles(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Article
	for _, a := range all {
		for _, t := range a.Tags {
			if t == tag {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

// DeleteArticle removes an article; its chunks cascade.
func (s *SQLiteStore) DeleteArticle(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return salonerrors.StorageError(fmt.Sprintf("delete article %s", id), err)
	}
	return nil
}

// SaveChunks inserts or replaces chunks in one transaction.
func (s *SQLiteStore) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return salonerrors.StorageError("begin chunk transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (id, article_id, content, idx, start_offset, end_offset, title, slug, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return salonerrors.StorageError("prepare chunk insert", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range chunks {
		tags, err := json.Marshal(c.Tags)
		if err != nil {
			return salonerrors.StorageError("marshal chunk tags", err)
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.ArticleID, c.Content, c.Index, c.Start, c.End, c.Title, c.Slug, string(tags)); err != nil {
			return salonerrors.StorageError(fmt.Sprintf("save chunk %s", c.ID), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return salonerrors.StorageError("commit chunks", err)
	}
	return nil
}

// GetChunk fetches a chunk by ID.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, article_id, content, idx, start_offset, end_offset, title, slug, tags FROM chunks WHERE id = ?`, id)

	var c Chunk
	var tags string
	err := row.Scan(&c.ID, &c.ArticleID, &c.Content, &c.Index, &c.Start, &c.End, &c.Title, &c.Slug, &tags)
	if err == sql.ErrNoRows {
		return nil, salonerrors.New(salonerrors.ErrCodeChunkNotFound, "chunk not found", nil)
	}
	if err != nil {
		return nil, salonerrors.StorageError("scan chunk", err)
	}
	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return nil, salonerrors.StorageError("unmarshal chunk tags", err)
	}
	return &c, nil
}

// GetChunksByArticle returns an article's chunks in document order.
func (s *SQLiteStore) GetChunksByArticle(ctx context.Context, articleID string) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, article_id, content, idx, start_offset, end_offset, title, slug, tags
		 FROM chunks WHERE article_id = ? ORDER BY idx`, articleID)
	if err != nil {
		return nil, salonerrors.StorageError("list chunks", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Chunk
	for rows.Next() {
		var c Chunk
		var tags string
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.Content, &c.Index, &c.Start, &c.End, &c.Title, &c.Slug, &tags); err != nil {
			return nil, salonerrors.StorageError("scan chunk", err)
		}
		if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
			return nil, salonerrors.StorageError("unmarshal chunk tags", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// DeleteChunksByArticle removes all chunks for an article.
func (s *SQLiteStore) DeleteChunksByArticle(ctx context.Context, articleID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE article_id = ?`, articleID)
	if err != nil {
		return salonerrors.StorageError(fmt.Sprintf("delete chunks for %s", articleID), err)
	}
	return nil
}

// HasChunks reports whether an article already has embedded chunks.
func (s *SQLiteStore) HasChunks(ctx context.Context, articleID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM chunks WHERE article_id = ?`, articleID).Scan(&n)
	if err != nil {
		return false, salonerrors.StorageError("count chunks", err)
	}
	return n > 0, nil
}

// ListTags returns all distinct tags with article counts.
func (s *SQLiteStore) ListTags(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tags FROM articles`)
	if err != nil {
		return nil, salonerrors.StorageError("list tags", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, salonerrors.StorageError("scan tags", err)
		}
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return nil, salonerrors.StorageError("unmarshal tags", err)
		}
		for _, t := range tags {
			counts[t]++
		}
	}
	return counts, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

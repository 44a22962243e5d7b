package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"

	salonerrors "github.com/lanting/salonsearch/internal/errors"
)

// BleveIndex implements LexicalIndex over bleve with the CJK analyzer,
// so Chinese titles and bodies tokenize into searchable bigrams instead
// of one opaque term per paragraph.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ LexicalIndex = (*BleveIndex)(nil)

// bleveArticle is the indexed document shape. Tags use the keyword
// analyzer for exact-match filtering.
type bleveArticle struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Slug    string   `json:"slug"`
	Tags    []string `json:"tags"`
}

// NewBleveIndex opens or creates a lexical index at path. An empty path
// creates an in-memory index for tests. A corrupt on-disk index is
// cleared and recreated; the caller must reindex.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im, err := articleMapping()
	if err != nil {
		return nil, err
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, salonerrors.StorageError("create index directory", err)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, im)
		} else if err != nil {
			slog.Warn("lexical_index_corrupt",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return nil, salonerrors.New(salonerrors.ErrCodeCorruptIndex,
					"lexical index corrupt and could not be cleared", rmErr)
			}
			idx, err = bleve.New(path, im)
		}
	}
	if err != nil {
		return nil, salonerrors.StorageError("open lexical index", err)
	}

	return &BleveIndex{index: idx, path: path}, nil
}

func articleMapping() (*mapping.IndexMappingImpl, error) {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = cjk.AnalyzerName
	text.Store = true

	tag := bleve.NewTextFieldMapping()
	tag.Analyzer = keyword.Name
	tag.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("content", text)
	doc.AddFieldMappingsAt("slug", tag)
	doc.AddFieldMappingsAt("tags", tag)

	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = cjk.AnalyzerName
	im.DefaultMapping = doc
	return im, nil
}

// Index adds or replaces articles in one batch.
func (b *BleveIndex) Index(ctx context.Context, articles []*Article) error {
	if len(articles) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return salonerrors.StorageError("lexical index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, a := range articles {
		doc := bleveArticle{
			Title:   a.Title,
			Content: a.Content,
			Slug:    a.Slug,
			Tags:    a.Tags,
		}
		if err := batch.Index(a.ID, doc); err != nil {
			return salonerrors.StorageError(fmt.Sprintf("index article %s", a.ID), err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return salonerrors.StorageError("execute index batch", err)
	}
	return nil
}

// Search runs a match query against one field. When tag is non-empty the
// query is restricted to articles carrying that exact tag. Hits include
// a highlighted fragment from the matched field.
func (b *BleveIndex) Search(ctx context.Context, field LexicalField, query, tag string, limit int) ([]*LexicalResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, salonerrors.StorageError("lexical index is closed", nil)
	}
	if strings.TrimSpace(query) == "" {
		return []*LexicalResult{}, nil
	}

	match := bleve.NewMatchQuery(query)
	match.SetField(string(field))

	var q = bleve.NewConjunctionQuery(match)
	if tag != "" {
		tq := bleve.NewTermQuery(tag)
		tq.SetField("tags")
		q.AddQuery(tq)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField(string(field))

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, salonerrors.StorageError("lexical search", err)
	}

	out := make([]*LexicalResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		frag := ""
		if frags, ok := hit.Fragments[string(field)]; ok && len(frags) > 0 {
			frag = frags[0]
		}
		out = append(out, &LexicalResult{
			ArticleID: hit.ID,
			Score:     hit.Score,
			Fragment:  frag,
		})
	}
	return out, nil
}

// Delete removes articles by ID.
func (b *BleveIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return salonerrors.StorageError("lexical index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return salonerrors.StorageError("delete from lexical index", err)
	}
	return nil
}

// Count returns the number of indexed articles.
func (b *BleveIndex) Count() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, salonerrors.StorageError("lexical index is closed", nil)
	}
	n, err := b.index.DocCount()
	if err != nil {
		return 0, salonerrors.StorageError("count documents", err)
	}
	return int(n), nil
}

// Close closes the underlying index. Safe to call more than once.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

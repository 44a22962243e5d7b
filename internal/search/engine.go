package search

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lanting/salonsearch/internal/embed"
	"github.com/lanting/salonsearch/internal/query"
	"github.com/lanting/salonsearch/internal/store"
)

// Engine runs title-lexical, content-lexical and semantic retrieval in
// parallel and fuses the results. Search never returns an error: a
// failed strategy degrades to an empty candidate set, and a total
// failure yields an empty list.
type Engine struct {
	lexical  store.LexicalIndex
	vectors  store.VectorStore
	metadata store.MetadataStore
	embedder embed.Embedder
	logger   *slog.Logger
}

// NewEngine creates a search engine over the given collaborators.
func NewEngine(lexical store.LexicalIndex, vectors store.VectorStore, metadata store.MetadataStore, embedder embed.Embedder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		lexical:  lexical,
		vectors:  vectors,
		metadata: metadata,
		embedder: embedder,
		logger:   logger,
	}
}

// Search returns fused results for a query. An empty or whitespace-only
// query yields an empty list immediately, without touching any
// collaborator.
func (e *Engine) Search(ctx context.Context, rawQuery string, opts Options) []*Result {
	if strings.TrimSpace(rawQuery) == "" {
		return []*Result{}
	}

	q := query.Normalize(rawQuery)
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	threshold := opts.SimilarityThreshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var titleHits, contentHits, semanticHits []*Candidate

	// Each strategy degrades to an empty set on failure; the group error
	// is always nil so one bad collaborator cannot sink the others.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		titleHits = e.lexicalStrategy(gctx, StrategyTitle, store.FieldTitle, q, opts.TagFilter, limit)
		return nil
	})
	g.Go(func() error {
		contentHits = e.lexicalStrategy(gctx, StrategyContent, store.FieldContent, q, opts.TagFilter, limit)
		return nil
	})
	g.Go(func() error {
		semanticHits = e.semanticStrategy(gctx, q, opts.TagFilter, limit, threshold)
		return nil
	})
	_ = g.Wait()

	fused := fusePriority(titleHits, contentHits, semanticHits)
	if len(fused) > limit {
		fused = fused[:limit]
	}

	return e.hydrate(ctx, fused)
}

// lexicalStrategy runs one full-text field search, degrading to empty on
// failure.
func (e *Engine) lexicalStrategy(ctx context.Context, strategy Strategy, field store.LexicalField, q, tag string, limit int) []*Candidate {
	hits, err := e.lexical.Search(ctx, field, q, tag, limit)
	if err != nil {
		e.logger.Warn("search_strategy_degraded",
			slog.String("strategy", string(strategy)),
			slog.String("error", err.Error()))
		return nil
	}
	return lexicalCandidates(hits, strategy)
}

// semanticStrategy embeds the query and searches chunk vectors. It
// over-fetches beyond the limit because multiple chunks of one article
// collapse into a single candidate during grouping.
func (e *Engine) semanticStrategy(ctx context.Context, q, tag string, limit int, threshold float64) []*Candidate {
	vec, err := e.embedder.Embed(ctx, q)
	if err != nil {
		e.logger.Warn("search_strategy_degraded",
			slog.String("strategy", string(StrategySemantic)),
			slog.String("stage", "embed"),
			slog.String("error", err.Error()))
		return nil
	}

	k := limit * 2
	if k > MaxLimit {
		k = MaxLimit
	}
	hits, err := e.vectors.Search(ctx, vec, k)
	if err != nil {
		e.logger.Warn("search_strategy_degraded",
			slog.String("strategy", string(StrategySemantic)),
			slog.String("stage", "vector_search"),
			slog.String("error", err.Error()))
		return nil
	}

	floor := effectiveThreshold(q, threshold)
	chunks := make(map[string]*store.Chunk, len(hits))
	for _, hit := range hits {
		if float64(hit.Score) < floor {
			continue
		}
		c, err := e.metadata.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			e.logger.Warn("chunk_hydration_failed",
				slog.String("chunk_id", hit.ChunkID),
				slog.String("error", err.Error()))
			continue
		}
		chunks[hit.ChunkID] = c
	}

	return groupChunks(hits, chunks, floor, tag)
}

// hydrate fills article metadata onto fused candidates. A candidate
// whose article has vanished is dropped rather than failing the search.
func (e *Engine) hydrate(ctx context.Context, candidates []*Candidate) []*Result {
	results := make([]*Result, 0, len(candidates))
	for _, c := range candidates {
		a, err := e.metadata.GetArticle(ctx, c.ArticleID)
		if err != nil {
			e.logger.Warn("result_hydration_failed",
				slog.String("article_id", c.ArticleID),
				slog.String("error", err.Error()))
			continue
		}
		results = append(results, &Result{
			ArticleID:   a.ID,
			Slug:        a.Slug,
			Title:       a.Title,
			Summary:     a.Summary,
			Tags:        a.Tags,
			PublishedAt: a.PublishedAt,
			Score:       c.Score,
			Strategy:    c.Strategy,
			Snippets:    c.Snippets,
		})
	}
	return results
}

// Package search runs lexical and semantic retrieval strategies in
// parallel and fuses their candidates into one ranked article list.
package search

import (
	"time"
)

// Strategy identifies a retrieval strategy. Priority order is fixed:
// a title match outranks a content match, which outranks a semantic
// match, regardless of raw scores.
type Strategy string

const (
	StrategyTitle    Strategy = "title"
	StrategyContent  Strategy = "content"
	StrategySemantic Strategy = "semantic"
)

// priority returns the fusion rank; lower is stronger.
func (s Strategy) priority() int {
	switch s {
	case StrategyTitle:
		return 0
	case StrategyContent:
		return 1
	default:
		return 2
	}
}

// Snippet is one representative text fragment attached to a result.
type Snippet struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Candidate is one per-article hit produced by a single strategy,
// before fusion.
type Candidate struct {
	ArticleID string
	Strategy  Strategy
	Score     float64
	Snippets  []Snippet
}

// Result is one fused, hydrated search result.
type Result struct {
	ArticleID   string    `json:"article_id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Score       float64   `json:"score"`
	Strategy    Strategy  `json:"strategy"`
	Snippets    []Snippet `json:"snippets,omitempty"`
}

// Options are per-request search knobs. Zero values take the engine's
// configured defaults.
type Options struct {
	// Limit bounds the number of results (default 20, capped at 100).
	Limit int

	// TagFilter restricts results to articles carrying this tag.
	TagFilter string

	// SimilarityThreshold is the vector score floor (default 0.3). The
	// effective floor is lowered for CJK queries.
	SimilarityThreshold float64
}

// Defaults mirrored from the configuration layer.
const (
	DefaultLimit     = 20
	MaxLimit         = 100
	DefaultThreshold = 0.3

	// maxSnippets is the most representative fragments kept per result.
	maxSnippets = 3

	// cjkThresholdOffset lowers the similarity floor for CJK queries;
	// minThresholdFloor is the clamp. Embeddings for CJK content score
	// systematically lower against mixed-language chunks.
	cjkThresholdOffset = 0.1
	minThresholdFloor  = 0.2
)

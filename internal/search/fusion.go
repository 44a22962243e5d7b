package search

import (
	"sort"

	"github.com/lanting/salonsearch/internal/chunk"
	"github.com/lanting/salonsearch/internal/store"
)

// fusePriority merges per-strategy candidate lists into one deduplicated
// list. Lists must be ordered strongest strategy first.
//
// An article seen by a higher-priority strategy is never evicted by a
// lower one, whatever the scores say: a title hit at 0.6 beats a content
// hit at 0.99 for the same article. Within one strategy the higher score
// wins. Snippets accumulate across strategies so a fused result can show
// both the matched title fragment and its best chunks.
func fusePriority(lists ...[]*Candidate) []*Candidate {
	best := make(map[string]*Candidate)
	var order []string

	for _, list := range lists {
		for _, c := range list {
			prev, seen := best[c.ArticleID]
			if !seen {
				clone := *c
				best[c.ArticleID] = &clone
				order = append(order, c.ArticleID)
				continue
			}

			if c.Strategy.priority() > prev.Strategy.priority() {
				// Lower-priority strategy: contribute snippets only.
				prev.Snippets = mergeSnippets(prev.Snippets, c.Snippets)
				continue
			}
			if c.Strategy == prev.Strategy && c.Score > prev.Score {
				prev.Score = c.Score
			}
			prev.Snippets = mergeSnippets(prev.Snippets, c.Snippets)
		}
	}

	out := make([]*Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	// Priority governs which candidate survives per article; the final
	// ranking is by score, with strategy priority breaking exact ties.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Strategy.priority() < out[j].Strategy.priority()
	})
	return out
}

// mergeSnippets combines two snippet lists, keeping the top scored ones.
func mergeSnippets(a, b []Snippet) []Snippet {
	merged := make([]Snippet, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > maxSnippets {
		merged = merged[:maxSnippets]
	}
	return merged
}

// effectiveThreshold lowers the similarity floor for queries containing
// CJK characters, clamped at the minimum floor.
func effectiveThreshold(query string, threshold float64) float64 {
	if !chunk.ContainsCJK(query) {
		return threshold
	}
	t := threshold - cjkThresholdOffset
	if t < minThresholdFloor {
		t = minThresholdFloor
	}
	return t
}

// groupChunks turns chunk-level vector hits into per-article candidates.
// Hits below the score floor are discarded before grouping; an article's
// score is its best chunk's score, and its top chunks become snippets.
// The tag filter sees the chunk's denormalized article tags.
func groupChunks(hits []*store.VectorResult, chunks map[string]*store.Chunk, floor float64, tag string) []*Candidate {
	type group struct {
		score    float64
		snippets []Snippet
	}
	groups := make(map[string]*group)
	var order []string

	for _, hit := range hits {
		score := float64(hit.Score)
		if score < floor {
			continue
		}
		c, ok := chunks[hit.ChunkID]
		if !ok {
			continue
		}
		if tag != "" && !containsTag(c.Tags, tag) {
			continue
		}

		g, ok := groups[c.ArticleID]
		if !ok {
			g = &group{}
			groups[c.ArticleID] = g
			order = append(order, c.ArticleID)
		}
		if score > g.score {
			g.score = score
		}
		g.snippets = append(g.snippets, Snippet{Text: c.Content, Score: score})
	}

	out := make([]*Candidate, 0, len(order))
	for _, id := range order {
		g := groups[id]
		sort.SliceStable(g.snippets, func(i, j int) bool {
			return g.snippets[i].Score > g.snippets[j].Score
		})
		if len(g.snippets) > maxSnippets {
			g.snippets = g.snippets[:maxSnippets]
		}
		out = append(out, &Candidate{
			ArticleID: id,
			Strategy:  StrategySemantic,
			Score:     g.score,
			Snippets:  g.snippets,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// lexicalCandidates converts full-text hits into fusion candidates,
// using the highlighted fragment as the snippet.
func lexicalCandidates(hits []*store.LexicalResult, strategy Strategy) []*Candidate {
	out := make([]*Candidate, 0, len(hits))
	for _, h := range hits {
		c := &Candidate{
			ArticleID: h.ArticleID,
			Strategy:  strategy,
			Score:     h.Score,
		}
		if h.Fragment != "" {
			c.Snippets = []Snippet{{Text: h.Fragment, Score: h.Score}}
		}
		out = append(out, c)
	}
	return out
}

// Package chunk splits article bodies into overlapping, size-bounded
// segments suitable for independent embedding.
//
// Sentence boundaries are preserved: a chunk always ends at a sentence
// terminator, and the token budget is a soft target (a single sentence
// longer than the budget is kept whole). Token cost uses a mixed-script
// heuristic tuned for Chinese/English blog content: CJK ideographs cost
// ~1.3 tokens each, everything else ~0.25.
package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Defaults for chunking article content.
const (
	// DefaultChunkSize is the soft token budget per chunk.
	DefaultChunkSize = 800

	// DefaultOverlap enables sentence carry-over between chunks when > 0.
	DefaultOverlap = 100

	// DefaultMinChunkChars is the minimum chunk length in characters.
	// Shorter chunks carry too little signal to embed on their own.
	DefaultMinChunkChars = 50

	// overlapSentences is how many trailing sentences seed the next chunk
	// when overlap is enabled.
	overlapSentences = 2

	// Per-character token weights for the mixed-script estimate.
	cjkTokenWeight   = 1.3
	otherTokenWeight = 0.25
)

// Chunk is one bounded segment of an article body.
// Start and End are rune offsets into the trimmed article text.
type Chunk struct {
	Content string
	Start   int
	End     int
}

// Options configures a Chunker. Zero values take the package defaults.
type Options struct {
	ChunkSize     int
	Overlap       int
	MinChunkChars int
}

// Chunker splits text into chunks. It is stateless and safe for
// concurrent use.
type Chunker struct {
	opts Options
}

// New creates a Chunker, applying defaults for unset options.
func New(opts Options) *Chunker {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.MinChunkChars <= 0 {
		opts.MinChunkChars = DefaultMinChunkChars
	}
	return &Chunker{opts: opts}
}

// ChunkText splits text with the given budget and overlap using default
// minimum chunk length. Convenience wrapper for callers that don't hold
// a Chunker.
func ChunkText(text string, chunkSize, overlap int) []Chunk {
	return New(Options{ChunkSize: chunkSize, Overlap: overlap}).Chunk(text)
}

// sentence is a split fragment with exact rune offsets into the trimmed
// text. Offsets are tracked during the split rather than recovered by
// substring search afterwards, so repeated sentences cannot mis-locate
// a chunk.
type sentence struct {
	text  string
	start int
	end   int
}

// Chunk splits text into overlapping chunks. Empty or whitespace-only
// input yields no chunks. The result is a pure function of the input.
func (c *Chunker) Chunk(text string) []Chunk {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}

	sentences := splitSentences(clean)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var buf strings.Builder
	bufStart := -1
	bufEnd := 0

	for i := 0; i < len(sentences); i++ {
		s := sentences[i]

		if buf.Len() == 0 {
			// Always accept at least one sentence, even over budget.
			buf.WriteString(s.text)
			bufStart = s.start
			bufEnd = s.end
			continue
		}

		if estimateTokens(buf.String()+s.text) <= float64(c.opts.ChunkSize) {
			buf.WriteString(separatorFor(s.text))
			buf.WriteString(s.text)
			bufEnd = s.end
			continue
		}

		// Budget exceeded: close the current chunk.
		chunks = append(chunks, Chunk{
			Content: strings.TrimSpace(buf.String()),
			Start:   bufStart,
			End:     bufEnd,
		})

		buf.Reset()
		if c.opts.Overlap > 0 {
			// Seed the next chunk with the trailing sentences of the one
			// just closed, then the sentence that triggered the overflow.
			lo := i - overlapSentences
			if lo < 0 {
				lo = 0
			}
			for j := lo; j < i; j++ {
				if buf.Len() > 0 {
					buf.WriteString(". ")
				}
				buf.WriteString(sentences[j].text)
			}
			if buf.Len() > 0 {
				buf.WriteString(". ")
				bufStart = sentences[lo].start
			} else {
				bufStart = s.start
			}
			buf.WriteString(s.text)
			bufEnd = s.end
		} else {
			buf.WriteString(s.text)
			bufStart = s.start
			bufEnd = s.end
		}
	}

	if content := strings.TrimSpace(buf.String()); content != "" {
		chunks = append(chunks, Chunk{
			Content: content,
			Start:   bufStart,
			End:     bufEnd,
		})
	}

	// Drop chunks too small to carry independent semantic signal.
	kept := chunks[:0]
	for _, ch := range chunks {
		if utf8.RuneCountInString(ch.Content) >= c.opts.MinChunkChars {
			kept = append(kept, ch)
		}
	}
	return kept
}

// splitSentences splits on Western and Chinese sentence terminators plus
// newlines, tracking exact rune offsets of each trimmed fragment.
func splitSentences(text string) []sentence {
	var out []sentence
	runes := []rune(text)
	fragStart := 0

	flush := func(start, end int) {
		// Trim whitespace while preserving offsets.
		for start < end && unicode.IsSpace(runes[start]) {
			start++
		}
		for end > start && unicode.IsSpace(runes[end-1]) {
			end--
		}
		if start < end {
			out = append(out, sentence{
				text:  string(runes[start:end]),
				start: start,
				end:   end,
			})
		}
	}

	for i, r := range runes {
		if isSentenceTerminator(r) {
			flush(fragStart, i)
			fragStart = i + 1
		}
	}
	flush(fragStart, len(runes))

	return out
}

// isSentenceTerminator covers Western terminators, their fullwidth
// variants, Chinese punctuation, and newlines.
func isSentenceTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', ';', ':', '\n',
		'。', '！', '？', '；', '：', '．':
		return true
	}
	return false
}

// isCJK reports whether r falls in the CJK Unified Ideographs block.
func isCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

// separatorFor returns the joiner used before the next sentence: CJK
// sentences flow together without one, Latin sentences get ". ".
func separatorFor(next string) string {
	r, _ := utf8.DecodeRuneInString(next)
	if isCJK(r) {
		return ""
	}
	return ". "
}

// estimateTokens estimates the token cost of text for an embedding
// model, weighting CJK ideographs heavier than Latin characters.
func estimateTokens(text string) float64 {
	var cjk, other int
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	return float64(cjk)*cjkTokenWeight + float64(other)*otherTokenWeight
}

// ContainsCJK reports whether s contains any CJK ideograph. Used by the
// search layer to adjust similarity floors for Chinese queries.
func ContainsCJK(s string) bool {
	for _, r := range s {
		if isCJK(r) {
			return true
		}
	}
	return false
}

// CountCJK returns the number of CJK ideographs in s.
func CountCJK(s string) int {
	n := 0
	for _, r := range s {
		if isCJK(r) {
			n++
		}
	}
	return n
}

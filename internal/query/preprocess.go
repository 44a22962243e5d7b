// Package query normalizes raw user queries before retrieval.
//
// Normalization folds fullwidth Chinese punctuation to halfwidth so
// lexical tokenization behaves consistently, and pads very short
// Chinese queries with a contextual template so the embedding model
// gets enough signal to produce a useful vector.
package query

import (
	"strings"

	"github.com/lanting/salonsearch/internal/chunk"
)

// shortCJKMax is the CJK character count at or below which a query is
// wrapped in the contextual template.
const shortCJKMax = 2

var punctFolder = strings.NewReplacer(
	"，", ",",
	"；", ";",
	"：", ":",
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"‘", "'", // left single quotation mark
	"’", "'", // right single quotation mark
)

// Normalize prepares a raw query for both lexical and vector search.
//
// Steps, in order: trim, collapse whitespace runs to single spaces,
// fold fullwidth punctuation, and wrap a query of 1-2 CJK characters
// in 关于{q}的内容 ("content about {q}").
//
// Normalize is a pure function but not idempotent: re-running it on an
// already-wrapped short query wraps it again. Callers must normalize a
// query exactly once.
func Normalize(raw string) string {
	q := strings.TrimSpace(raw)
	if q == "" {
		return ""
	}
	q = strings.Join(strings.Fields(q), " ")
	q = punctFolder.Replace(q)

	if n := chunk.CountCJK(q); n > 0 && n <= shortCJKMax {
		q = "关于" + q + "的内容"
	}
	return q
}

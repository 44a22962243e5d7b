package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/lanting/salonsearch/internal/search"
	"github.com/lanting/salonsearch/internal/store"
)

// Renderer writes search output to a stream.
type Renderer struct {
	out    io.Writer
	styles Styles
}

// NewRenderer creates a renderer with the given styles.
func NewRenderer(out io.Writer, styles Styles) *Renderer {
	return &Renderer{out: out, styles: styles}
}

// Results renders a fused result list. Snippets are trimmed of the
// bleve highlight markup since terminals don't render HTML.
func (r *Renderer) Results(results []*search.Result) {
	if len(results) == 0 {
		fmt.Fprintln(r.out, r.styles.Meta.Render("no results"))
		return
	}

	for i, res := range results {
		fmt.Fprintf(r.out, "%s %s  %s\n",
			r.styles.Meta.Render(fmt.Sprintf("%2d.", i+1)),
			r.styles.Title.Render(res.Title),
			r.styles.Score.Render(fmt.Sprintf("(%.3f %s)", res.Score, res.Strategy)))

		meta := res.Slug
		if !res.PublishedAt.IsZero() {
			meta += "  " + res.PublishedAt.Format("2006-01-02")
		}
		if len(res.Tags) > 0 {
			meta += "  [" + strings.Join(res.Tags, ", ") + "]"
		}
		fmt.Fprintf(r.out, "    %s\n", r.styles.Meta.Render(meta))

		for _, sn := range res.Snippets {
			fmt.Fprintf(r.out, "    %s\n", r.styles.Snippet.Render(stripMarkup(sn.Text)))
		}
		if i < len(results)-1 {
			fmt.Fprintln(r.out, r.styles.Divider.Render(strings.Repeat("-", 40)))
		}
	}
}

// Articles renders an article listing, one line per article.
func (r *Renderer) Articles(articles []*store.Article) {
	if len(articles) == 0 {
		fmt.Fprintln(r.out, r.styles.Meta.Render("no articles"))
		return
	}

	for _, a := range articles {
		line := r.styles.Title.Render(a.Title)
		meta := a.Slug
		if !a.PublishedAt.IsZero() {
			meta += "  " + a.PublishedAt.Format("2006-01-02")
		}
		if len(a.Tags) > 0 {
			meta += "  [" + strings.Join(a.Tags, ", ") + "]"
		}
		fmt.Fprintf(r.out, "%s\n    %s\n", line, r.styles.Meta.Render(meta))
	}
}

// Tags renders tag counts sorted by count descending, then name.
func (r *Renderer) Tags(counts map[string]int) {
	if len(counts) == 0 {
		fmt.Fprintln(r.out, r.styles.Meta.Render("no tags"))
		return
	}

	type tagCount struct {
		name  string
		count int
	}
	tags := make([]tagCount, 0, len(counts))
	for name, n := range counts {
		tags = append(tags, tagCount{name, n})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].count != tags[j].count {
			return tags[i].count > tags[j].count
		}
		return tags[i].name < tags[j].name
	})

	for _, t := range tags {
		fmt.Fprintf(r.out, "%s %s\n",
			r.styles.Title.Render(t.name),
			r.styles.Meta.Render(fmt.Sprintf("(%d)", t.count)))
	}
}

// Stats renders index statistics as aligned key/value lines.
func (r *Renderer) Stats(pairs [][2]string) {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	for _, p := range pairs {
		fmt.Fprintf(r.out, "%s  %s\n",
			r.styles.Meta.Render(fmt.Sprintf("%-*s", width, p[0])),
			p[1])
	}
}

// Errorf writes a styled error line.
func (r *Renderer) Errorf(format string, args ...any) {
	fmt.Fprintln(r.out, r.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// stripMarkup removes bleve's <mark> highlight tags and newlines from a
// snippet so it renders as one terminal line.
func stripMarkup(s string) string {
	s = strings.ReplaceAll(s, "<mark>", "")
	s = strings.ReplaceAll(s, "</mark>", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

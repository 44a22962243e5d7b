package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lanting/salonsearch/internal/search"
	"github.com/lanting/salonsearch/internal/ui"
)

type searchOptions struct {
	limit     int
	tag       string
	threshold float64
	format    string
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search indexed articles",
		Long: `Searches indexed articles with three strategies in parallel:
title match, content match, and semantic similarity over embedded
chunks. Matches are fused per article, with title matches taking
precedence over content matches, and those over semantic ones.

Chinese queries get CJK-aware handling: very short queries are expanded
for better embedding quality and the similarity floor is lowered.`,
		Example: `  salonsearch search 茶文化
  salonsearch search -t tech --limit 5 goroutine scheduling
  salonsearch search --format json 书法 | jq '.[].title'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "text" && opts.format != "json" {
				return fmt.Errorf("invalid format %q (want text or json)", opts.format)
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := openApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer app.Close()

			engine := search.NewEngine(app.lexical, app.vectors, app.metadata, app.embedder, nil)

			threshold := opts.threshold
			if threshold == 0 {
				threshold = cfg.Search.SimilarityThreshold
			}
			limit := opts.limit
			if limit == 0 {
				limit = cfg.Search.DefaultLimit
			}

			results := engine.Search(ctx, strings.Join(args, " "), search.Options{
				Limit:               limit,
				TagFilter:           opts.tag,
				SimilarityThreshold: threshold,
			})

			if opts.format == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			r := ui.NewRenderer(os.Stdout, ui.StylesFor(os.Stdout))
			r.Results(results)
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0,
		"maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.tag, "tag", "t", "",
		"only return articles carrying this tag")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0,
		"semantic similarity floor in [0,1] (default from config)")
	cmd.Flags().StringVar(&opts.format, "format", "text",
		"output format: text or json")

	return cmd
}

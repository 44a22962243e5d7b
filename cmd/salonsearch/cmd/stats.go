package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lanting/salonsearch/internal/ui"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := openApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer app.Close()

			articles, err := app.metadata.ListArticles(ctx)
			if err != nil {
				return err
			}
			tags, err := app.metadata.ListTags(ctx)
			if err != nil {
				return err
			}
			indexed, err := app.lexical.Count()
			if err != nil {
				return err
			}
			vectors, err := app.vectors.Count(ctx)
			if err != nil {
				return err
			}

			r := ui.NewRenderer(os.Stdout, ui.StylesFor(os.Stdout))
			r.Stats([][2]string{
				{"data dir", cfg.DataDir},
				{"vector backend", cfg.Vector.Backend},
				{"embedding model", cfg.Embeddings.Model},
				{"articles", fmt.Sprintf("%d", len(articles))},
				{"indexed", fmt.Sprintf("%d", indexed)},
				{"vectors", fmt.Sprintf("%d", vectors)},
				{"tags", fmt.Sprintf("%d", len(tags))},
			})
			return nil
		},
	}
}

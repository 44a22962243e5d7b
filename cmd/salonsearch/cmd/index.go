package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lanting/salonsearch/internal/chunk"
	"github.com/lanting/salonsearch/internal/ingest"
	"github.com/lanting/salonsearch/internal/ui"
)

func newIndexCmd(root *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index <articles.jsonl>",
		Short: "Ingest a JSONL article export into the search indexes",
		Long: `Reads a JSONL export (one article per line), stores article
metadata, indexes titles and content for full-text search, and embeds
article chunks for semantic search.

Articles whose chunks already exist are skipped unless --force is given,
so re-running after adding new articles only embeds the new ones.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			ing := ingest.New(app.metadata, app.lexical, app.vectors, app.embedder, nil)
			stats, err := ing.IngestFile(ctx, args[0], ingest.Options{
				Force:    force,
				LockPath: cfg.LockPath(),
				Chunking: chunk.Options{
					ChunkSize:     cfg.Chunking.ChunkSize,
					Overlap:       cfg.Chunking.Overlap,
					MinChunkChars: cfg.Chunking.MinChunkChars,
				},
			})
			if err != nil {
				return err
			}

			r := ui.NewRenderer(os.Stdout, ui.StylesFor(os.Stdout))
			r.Stats([][2]string{
				{"articles", fmt.Sprintf("%d", stats.Articles)},
				{"embedded", fmt.Sprintf("%d", stats.Embedded)},
				{"skipped", fmt.Sprintf("%d", stats.Skipped)},
				{"chunks", fmt.Sprintf("%d", stats.Chunks)},
				{"elapsed", stats.Elapsed.Round(time.Millisecond).String()},
			})
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false,
		"re-chunk and re-embed articles that are already indexed")

	return cmd
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lanting/salonsearch/internal/store"
	"github.com/lanting/salonsearch/internal/ui"
)

func newListCmd(root *rootOptions) *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed articles, optionally filtered by tag",
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

			var articles []*store.Article
			if tag != "" {
				articles, err = app.metadata.ListArticlesByTag(ctx, tag)
			} else {
				articles, err = app.metadata.ListArticles(ctx)
			}
			if err != nil {
				return err
			}

			r := ui.NewRenderer(os.Stdout, ui.StylesFor(os.Stdout))
			r.Articles(articles)
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "only list articles carrying this tag")

	return cmd
}

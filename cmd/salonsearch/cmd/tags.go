package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lanting/salonsearch/internal/ui"
)

func newTagsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List all article tags with counts",
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

			counts, err := app.metadata.ListTags(ctx)
			if err != nil {
				return err
			}

			r := ui.NewRenderer(os.Stdout, ui.StylesFor(os.Stdout))
			r.Tags(counts)
			return nil
		},
	}
}

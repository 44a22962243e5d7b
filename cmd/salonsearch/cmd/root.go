// Package cmd implements the salonsearch CLI.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lanting/salonsearch/internal/config"
	"github.com/lanting/salonsearch/internal/logging"
	"github.com/lanting/salonsearch/pkg/version"
)

// rootOptions carries persistent flags shared by all subcommands.
type rootOptions struct {
	configPath string
	debug      bool

	cleanupLog func()
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath)
}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "salonsearch",
		Short: "Full-text and semantic search over blog articles",
		Long: `salonsearch indexes blog articles for combined retrieval:
full-text matching over titles and content, plus semantic search over
embedded chunks. Queries in Chinese and English are both supported.

Articles are ingested from a JSONL export, one article per line.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logCfg := logging.DefaultConfig()
			if opts.debug {
				logCfg.Level = "debug"
			} else {
				// Keep stderr clean for normal CLI use; diagnostics still
				// land in the log file.
				logCfg.WriteToStderr = false
			}

			logger, cleanup, err := logging.Setup(logCfg)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			opts.cleanupLog = cleanup
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.cleanupLog != nil {
				opts.cleanupLog()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"path to config file (default: built-in defaults plus SALONSEARCH_* env)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false,
		"enable debug logging to stderr")

	rootCmd.AddCommand(
		newIndexCmd(opts),
		newSearchCmd(opts),
		newListCmd(opts),
		newTagsCmd(opts),
		newStatsCmd(opts),
		newVersionCmd(),
	)

	rootCmd.SetVersionTemplate("salonsearch {{.Version}}\n")

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

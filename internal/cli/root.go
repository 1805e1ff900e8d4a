// Package cli implements the ftstore command line tool.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/ftstore"
	"github.com/hupe1980/ftstore/pagecache"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	pageSize int
	magic    string
	logLevel string
}

// NewRootCmd returns the ftstore command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:          "ftstore",
		Short:        "Inspect, query and publish skip-list index files",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().IntVar(&g.pageSize, "page-size", pagecache.DefaultPageSize, "page cache page size in bytes")
	cmd.PersistentFlags().StringVar(&g.magic, "magic", ftstore.DefaultMagicWord, "footer magic word")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(newInspectCmd(g), newVerifyCmd(g), newLookupCmd(g), newPublishCmd(g))
	return cmd
}

func (g *globalFlags) logger(cmd *cobra.Command) (*ftstore.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", g.logLevel)
	}
	return ftstore.NewLogger(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}

func (g *globalFlags) options(cmd *cobra.Command) ([]ftstore.Option, error) {
	logger, err := g.logger(cmd)
	if err != nil {
		return nil, err
	}
	return []ftstore.Option{
		ftstore.WithPageSize(g.pageSize),
		ftstore.WithMagicWord(g.magic),
		ftstore.WithLogger(logger),
		ftstore.WithCacheOptions(
			pagecache.WithMonitorInterval(0),
			pagecache.WithPrefetchWorkers(0),
		),
	}, nil
}

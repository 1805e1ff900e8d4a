package cli

import (
	"fmt"
	"io"

	"github.com/hupe1980/ftstore/pagecache"
	"github.com/hupe1980/ftstore/skiplist"
	"github.com/spf13/cobra"
)

func newInspectCmd(g *globalFlags) *cobra.Command {
	var (
		offset   int64
		showKeys bool
	)

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the blocks of the list starting at --offset",
		Long: "Inspect decodes every block of one list without skipping. The footer\n" +
			"is not checked, so damaged files can be examined.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := g.logger(cmd)
			if err != nil {
				return err
			}

			src, err := pagecache.OpenFile(args[0])
			if err != nil {
				return err
			}
			cache, err := pagecache.New(src,
				pagecache.WithPageSize(g.pageSize),
				pagecache.WithPoolSize(4),
				pagecache.WithSynchronousReclaim(),
				pagecache.WithPrefetchWorkers(0),
				pagecache.WithMonitorInterval(0),
				pagecache.WithLogger(logger.Logger),
			)
			if err != nil {
				_ = src.Close()
				return err
			}
			defer cache.Close()

			views, err := skiplist.ParseBlocks(cmd.Context(), cache, offset)
			printBlocks(cmd.OutOrStdout(), views, showKeys)
			return err
		},
	}
	cmd.Flags().Int64Var(&offset, "offset", 0, "offset of the list's first block")
	cmd.Flags().BoolVar(&showKeys, "keys", false, "print every key and value")
	return cmd
}

func printBlocks(w io.Writer, views []skiplist.BlockView, showKeys bool) {
	records := 0
	for i, v := range views {
		h := v.Header
		fmt.Fprintf(w, "block %d @%d: records=%d pointers=%d remaining=%d end=%t\n",
			i, v.Address, h.Records, h.ForwardCount, h.Remaining, h.IsEnd())
		if len(v.Keys) > 0 {
			fmt.Fprintf(w, "  keys %d..%d\n", v.Keys[0], v.MaxKey())
		}
		for j, p := range v.Pointers {
			fmt.Fprintf(w, "  skip %d -> %d\n", j, p)
		}
		if showKeys {
			for j, k := range v.Keys {
				fmt.Fprintf(w, "  %d=%d\n", k, v.Values[j])
			}
		}
		records += h.Records
	}
	fmt.Fprintf(w, "%d blocks, %d records\n", len(views), records)
}

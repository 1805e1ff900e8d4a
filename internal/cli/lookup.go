package cli

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/hupe1980/ftstore"
	"github.com/spf13/cobra"
)

func newLookupCmd(g *globalFlags) *cobra.Command {
	var offset int64

	cmd := &cobra.Command{
		Use:   "lookup FILE KEY...",
		Short: "Look up keys in the list starting at --offset",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make([]uint64, 0, len(args)-1)
			for _, arg := range args[1:] {
				k, err := strconv.ParseUint(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid key %q: %w", arg, err)
				}
				keys = append(keys, k)
			}
			slices.Sort(keys)
			keys = slices.Compact(keys)

			opts, err := g.options(cmd)
			if err != nil {
				return err
			}
			ix, err := ftstore.Open(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}
			defer ix.Close()

			r := ix.Reader(offset)
			present, err := r.PresentKeys(cmd.Context(), keys)
			if err != nil {
				return err
			}
			r.Reset()
			values, err := r.GetValues(cmd.Context(), keys)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, k := range keys {
				if present.Contains(k) {
					fmt.Fprintf(out, "%d\t%d\n", k, values[i])
				} else {
					fmt.Fprintf(out, "%d\t-\n", k)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&offset, "offset", 0, "offset of the list's first block")
	return cmd
}

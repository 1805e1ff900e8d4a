package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/hupe1980/ftstore/skiplist"
	"github.com/spf13/cobra"
)

func newVerifyCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE",
		Short: "Check that FILE ends in a footer carrying --magic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := skiplist.ValidateFooterFile(args[0], g.magic)
			if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
				return nil
			}
			if errors.Is(err, skiplist.ErrBadFooter) {
				if found, ferr := footerMagic(args[0]); ferr == nil {
					return fmt.Errorf("%w (file carries %q)", err, found)
				}
			}
			return err
		},
	}
}

func footerMagic(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", err
	}
	return skiplist.ReadFooterMagic(f, fi.Size())
}

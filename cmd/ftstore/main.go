// Command ftstore inspects and queries skip-list index files.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/ftstore/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

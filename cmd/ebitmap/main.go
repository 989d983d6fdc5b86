package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/hupe1980/ebitmap/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewCommand(filepath.Base(os.Args[0])).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

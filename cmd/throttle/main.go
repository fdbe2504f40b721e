package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/SmitUplenchwar2687/throttle/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

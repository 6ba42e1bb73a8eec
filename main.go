package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/msomdec/startup-scout/internal/cli"
)

func main() {
	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Main(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

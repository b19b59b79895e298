// Package main is the entry point for settingsctl.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/livesettings/internal/cli"
)

// Version information (set via ldflags during build).
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.Version = version
	return cli.New(os.Stdout, os.Stderr).Run(ctx, os.Args[1:])
}

// Package main is the entry point for dose-calculator CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"dose-calculator/cmd/cli/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

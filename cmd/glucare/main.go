package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"glucare/internal/cli"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

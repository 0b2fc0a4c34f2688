package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-image-identifier/internal/cli"
)

func main() {
	// Cancel in-flight work on interrupt; interactive front ends restore the
	// terminal before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

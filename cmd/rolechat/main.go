package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/rolechat/internal/client/app"
	"github.com/aussiebroadwan/rolechat/pkg/chatsdk"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := app.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	cfg := app.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize application: %v\n", err)
		return 1
	}
	defer application.Close()

	err = application.Run(ctx, os.Args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrUsage):
		return 2
	case chatsdk.IsSessionError(err):
		// The notice and login hint were already printed.
		return 3
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
}

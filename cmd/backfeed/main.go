package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/backfeedhq/backfeed/internal/app"
	"github.com/backfeedhq/backfeed/internal/config"
	"github.com/backfeedhq/backfeed/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "backfeed start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("backfeed starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daemon, err := app.NewDaemon(ctx, cfg)
	if err != nil {
		logger.ErrorObj("failed to initialize daemon", "error", err)
		return err
	}

	if err := daemon.Run(ctx); err != nil {
		return fmt.Errorf("daemon run: %w", err)
	}

	return nil
}

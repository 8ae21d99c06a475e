package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/alexandria-ai/alexandria/api"
	"github.com/alexandria-ai/alexandria/internal/app"
	"github.com/alexandria-ai/alexandria/internal/config"
	"github.com/alexandria-ai/alexandria/internal/log"
)

// runServe starts the HTTP API server and blocks until SIGINT/SIGTERM.
func runServe(logger log.Logger, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting alexandria", "version", AppVersion)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	srv := api.NewServer(a.Chat, a.Ingest, a.Documents, a.Sessions, a.Pool, logger)
	return srv.Run(ctx, cfg.HTTPAddr)
}

package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/alexandria-ai/alexandria/internal/app"
	"github.com/alexandria-ai/alexandria/internal/config"
	"github.com/alexandria-ai/alexandria/internal/log"
)

// runIngest ingests one or more text files into the vector index.
func runIngest(logger log.Logger, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	userID := fs.String("user", "cli", "user id to own the documents")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return fmt.Errorf("usage: alexandria ingest [flags] <file> [file...]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close() //nolint:errcheck

	for _, path := range paths {
		res, err := a.Ingest.IngestFile(ctx, path, *userID)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		if res.Ingested {
			fmt.Printf("%s  %s  (%d chunks)\n", res.Document.Hash[:12], path, res.Chunks)
		} else {
			fmt.Printf("%s  %s  (already ingested)\n", res.Document.Hash[:12], path)
		}
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/alexandria-ai/alexandria/internal/app"
	"github.com/alexandria-ai/alexandria/internal/config"
	"github.com/alexandria-ai/alexandria/internal/log"
)

// runDocs manages the document catalog from the command line.
func runDocs(logger log.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: alexandria docs <list|get|delete> [hash]")
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

	switch args[0] {
	case "list":
		docs, err := a.Documents.List(ctx)
		if err != nil {
			return fmt.Errorf("listing documents: %w", err)
		}
		if len(docs) == 0 {
			fmt.Println("no documents ingested")
			return nil
		}
		for _, d := range docs {
			fmt.Printf("%s  %-30s  %3d chunks  %s\n",
				d.Hash[:12], d.Title, d.ChunkCount, d.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil

	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: alexandria docs get <hash>")
		}
		d, err := a.Documents.Get(ctx, args[1])
		if err != nil {
			return fmt.Errorf("fetching document: %w", err)
		}
		fmt.Printf("hash:       %s\n", d.Hash)
		fmt.Printf("title:      %s\n", d.Title)
		fmt.Printf("source:     %s\n", d.SourceFile)
		fmt.Printf("owner:      %s\n", d.UserID)
		fmt.Printf("chunks:     %d\n", d.ChunkCount)
		fmt.Printf("created at: %s\n", d.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: alexandria docs delete <hash>")
		}
		if err := a.Ingest.DeleteDocument(ctx, args[1]); err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}
		fmt.Printf("deleted %s\n", args[1])
		return nil

	default:
		return fmt.Errorf("unknown docs subcommand %q", args[0])
	}
}

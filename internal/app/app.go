// Package app assembles the application: configuration, database pool,
// Genkit, the answer graph, and the services built on top. Dependencies
// are wired explicitly in Setup; nothing reaches for globals.
package app

import (
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexandria-ai/alexandria/internal/chat"
	"github.com/alexandria-ai/alexandria/internal/config"
	"github.com/alexandria-ai/alexandria/internal/document"
	"github.com/alexandria-ai/alexandria/internal/embed"
	"github.com/alexandria-ai/alexandria/internal/ingest"
	"github.com/alexandria-ai/alexandria/internal/library"
	"github.com/alexandria-ai/alexandria/internal/llm"
	"github.com/alexandria-ai/alexandria/internal/log"
	"github.com/alexandria-ai/alexandria/internal/pipeline"
	"github.com/alexandria-ai/alexandria/internal/session"
	"github.com/alexandria-ai/alexandria/internal/vectorindex"
)

// App is the application container. Fields are set once in Setup and
// read-only afterwards; concurrent requests share them safely.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit *genkit.Genkit
	Pool   *pgxpool.Pool

	Documents *document.Store
	Sessions  *session.Store
	Catalog   *library.Store
	Index     *vectorindex.Store

	Embedder embed.Embedder
	Models   llm.Tiers

	Graph  *pipeline.Graph
	Chat   *chat.Service
	Ingest *ingest.Pipeline

	cleanups []func()
}

// Close releases resources in reverse setup order.
func (a *App) Close() error {
	a.Logger.Info("shutting down")
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
	return nil
}

func (a *App) onClose(fn func()) {
	a.cleanups = append(a.cleanups, fn)
}

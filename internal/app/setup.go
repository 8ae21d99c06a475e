package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"golang.org/x/time/rate"

	"github.com/alexandria-ai/alexandria/db"
	"github.com/alexandria-ai/alexandria/internal/chat"
	"github.com/alexandria-ai/alexandria/internal/config"
	"github.com/alexandria-ai/alexandria/internal/document"
	"github.com/alexandria-ai/alexandria/internal/embed"
	"github.com/alexandria-ai/alexandria/internal/ingest"
	"github.com/alexandria-ai/alexandria/internal/library"
	"github.com/alexandria-ai/alexandria/internal/llm"
	"github.com/alexandria-ai/alexandria/internal/log"
	"github.com/alexandria-ai/alexandria/internal/observability"
	"github.com/alexandria-ai/alexandria/internal/pipeline"
	"github.com/alexandria-ai/alexandria/internal/search"
	"github.com/alexandria-ai/alexandria/internal/session"
	"github.com/alexandria-ai/alexandria/internal/vectorindex"
)

// Setup builds the application. On error, everything already initialized
// is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.OTLPEndpoint,
			ServiceName: cfg.ServiceName,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.onClose(func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("shutting down tracer provider", "error", err)
			}
		})
	}

	pool, err := providePool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.onClose(pool.Close)

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	a.Genkit = g

	// One limiter across completion and embedding clients: retries on one
	// call cannot starve the others of quota.
	limiter := rate.NewLimiter(rate.Limit(2), 4)

	a.Embedder = embed.NewGemini(
		googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel), logger,
		embed.WithRateLimiter(limiter),
	)
	a.Models = llm.Tiers{
		Small: llm.NewGemini(g, cfg.SmallModel, logger, llm.WithRateLimiter(limiter)),
		Big:   llm.NewGemini(g, cfg.BigModel, logger, llm.WithRateLimiter(limiter)),
	}

	a.Documents = document.New(pool, logger)
	a.Sessions = session.New(pool, logger)
	a.Catalog = library.New(pool, logger)
	a.Index = vectorindex.New(pool, logger,
		vectorindex.WithDefaults(cfg.TopK, float64(cfg.ChunkThreshold)))

	a.Graph = pipeline.New(a.Models, a.Embedder, a.Index, a.Catalog, provideSearcher(cfg, logger),
		pipeline.Config{
			TopK:             cfg.TopK,
			ChunkThreshold:   float64(cfg.ChunkThreshold),
			SummaryThreshold: float64(cfg.SummaryThreshold),
		}, logger)

	a.Chat = chat.New(a.Sessions, a.Graph, a.Models.Small, cfg.HistoryWindow, logger)

	a.Ingest = ingest.New(a.Documents, a.Index, a.Embedder,
		ingest.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		filepath.Join(cfg.DataDir, "locks"), logger)

	return a, nil
}

// providePool runs migrations and opens the connection pool. pgvector
// types are registered per connection so embeddings scan natively.
func providePool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// provideSearcher chains Tavily and the keyless DuckDuckGo scraper, with
// readability enrichment on top. Without an API key, Tavily drops out and
// the scraper carries the fallback path alone.
func provideSearcher(cfg *config.Config, logger log.Logger) search.Searcher {
	var backends []search.Searcher
	if cfg.TavilyAPIKey != "" {
		backends = append(backends, search.NewTavily(cfg.TavilyAPIKey, cfg.SearchMaxResults, logger))
	}
	backends = append(backends, search.NewDuckDuckGo(cfg.SearchMaxResults, logger))
	return search.NewEnricher(search.NewFallback(backends...), logger)
}

// Package api exposes the RAG backend over HTTP.
//
// Endpoints:
//
//	GET    /health                      liveness probe
//	GET    /ready                       readiness probe (pings the database)
//	POST   /api/chat                    answer a query within a session
//	POST   /api/documents               ingest a document
//	GET    /api/documents               list documents
//	GET    /api/documents/{hash}        fetch one document
//	DELETE /api/documents/{hash}        delete a document and its chunks
//	GET    /api/sessions                list a user's sessions
//	GET    /api/sessions/{id}/messages  session transcript
//	DELETE /api/sessions/{id}           delete a session
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alexandria-ai/alexandria/internal/chat"
	"github.com/alexandria-ai/alexandria/internal/document"
	"github.com/alexandria-ai/alexandria/internal/ingest"
	"github.com/alexandria-ai/alexandria/internal/log"
	"github.com/alexandria-ai/alexandria/internal/session"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:3400"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header clients.
	ReadHeaderTimeout = 10 * time.Second
	ReadTimeout       = 30 * time.Second
	// WriteTimeout is generous: a chat turn can spend most of a minute in
	// model calls.
	WriteTimeout = 120 * time.Second
	IdleTimeout  = 120 * time.Second
)

// Server is the HTTP server for the REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer registers all routes.
func NewServer(chatSvc *chat.Service, pipeline *ingest.Pipeline,
	documents *document.Store, sessions *session.Store,
	pool *pgxpool.Pool, logger log.Logger) *Server {
	mux := http.NewServeMux()

	NewHealthHandler(pool, logger).RegisterRoutes(mux)
	NewChatHandler(chatSvc, logger).RegisterRoutes(mux)
	NewDocumentsHandler(pipeline, documents, logger).RegisterRoutes(mux)
	NewSessionsHandler(sessions, logger).RegisterRoutes(mux)

	return &Server{mux: mux, logger: logger}
}

// Handler returns the mux with middleware applied, recovery outermost.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

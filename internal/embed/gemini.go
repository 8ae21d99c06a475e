package embed

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"

	"github.com/alexandria-ai/alexandria/internal/log"
	"github.com/alexandria-ai/alexandria/internal/retry"
)

// Gemini implements Embedder using a Genkit-registered embedding model.
type Gemini struct {
	embedder ai.Embedder
	retryCfg retry.Config
	limiter  *rate.Limiter
	logger   log.Logger
}

// Option configures a Gemini embedder.
type Option func(*Gemini)

// WithRetryConfig overrides the default backoff policy.
func WithRetryConfig(cfg retry.Config) Option {
	return func(e *Gemini) { e.retryCfg = cfg }
}

// WithRateLimiter shares a request limiter with the completion clients.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(e *Gemini) { e.limiter = l }
}

// NewGemini wraps an ai.Embedder obtained from the googlegenai plugin.
func NewGemini(embedder ai.Embedder, logger log.Logger, opts ...Option) *Gemini {
	e := &Gemini{
		embedder: embedder,
		retryCfg: retry.DefaultConfig(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EmbedQuery implements Embedder.
func (e *Gemini) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vecs[0], nil
}

// EmbedDocuments implements Embedder.
func (e *Gemini) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d documents: %w", len(texts), err)
	}
	return vecs, nil
}

func (e *Gemini) embed(ctx context.Context, texts []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := retry.Do(ctx, e.retryCfg, e.limiter, func(ctx context.Context) (*ai.EmbedResponse, error) {
		return e.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs",
			len(resp.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vecs[i] = emb.Embedding
	}
	e.logger.Debug("embedded texts", "count", len(texts))
	return vecs, nil
}

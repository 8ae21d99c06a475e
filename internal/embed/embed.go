// Package embed defines the text-embedding boundary and its Gemini
// implementation.
package embed

import "context"

// Embedder turns text into dense vectors. Implementations must be
// deterministic for identical input so the ingestion pipeline stays
// idempotent.
type Embedder interface {
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// EmbedDocuments embeds a batch of document chunks, preserving order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Package vectorindex stores embedded chunks in pgvector and answers
// cosine-similarity queries over named collections.
package vectorindex

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Collection names used by the application. Chunks carries split document
// text; Summaries carries one embedding per book summary and is queried
// with a stricter similarity threshold.
const (
	CollectionChunks    = "book_chunks"
	CollectionSummaries = "book_summaries"
)

// ErrEmptyBatch indicates Add was called with nothing to insert.
var ErrEmptyBatch = errors.New("empty chunk batch")

// Chunk is one indexed unit of text. Similarity is populated only on
// query results.
type Chunk struct {
	ID         string
	Content    string
	Embedding  []float32
	Metadata   map[string]any
	Similarity float64
}

// Querier is the slice of pgxpool.Pool the store needs. Tests substitute
// a fake; production passes the pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/alexandria-ai/alexandria/internal/log"
)

// Store reads and writes the vector_chunks table.
type Store struct {
	q      Querier
	logger log.Logger

	defaultK         int
	defaultThreshold float64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDefaults sets the fallback k and similarity threshold applied when
// a query does not override them.
func WithDefaults(k int, threshold float64) StoreOption {
	return func(s *Store) {
		s.defaultK = k
		s.defaultThreshold = threshold
	}
}

func New(q Querier, logger log.Logger, opts ...StoreOption) *Store {
	s := &Store{
		q:                q,
		logger:           logger,
		defaultK:         4,
		defaultThreshold: 0.30,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add upserts chunks into a collection. Re-adding a chunk id replaces its
// content, embedding, and metadata, which keeps re-ingestion idempotent.
func (s *Store) Add(ctx context.Context, collection string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return ErrEmptyBatch
	}

	for _, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", c.ID, err)
		}
		_, err = s.q.Exec(ctx, `
			INSERT INTO vector_chunks (collection, id, content, embedding, metadata)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (collection, id) DO UPDATE
			SET content = EXCLUDED.content,
			    embedding = EXCLUDED.embedding,
			    metadata = EXCLUDED.metadata`,
			collection, c.ID, c.Content, pgvector.NewVector(c.Embedding), meta)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}

	s.logger.Debug("indexed chunks", "collection", collection, "count", len(chunks))
	return nil
}

// queryParams collects per-call overrides.
type queryParams struct {
	k         int
	threshold float64
	filter    map[string]any
}

// QueryOption adjusts a single similarity query.
type QueryOption func(*queryParams)

// WithK caps the number of results.
func WithK(k int) QueryOption {
	return func(p *queryParams) {
		if k > 0 {
			p.k = k
		}
	}
}

// WithThreshold sets the minimum cosine similarity for a hit.
func WithThreshold(threshold float64) QueryOption {
	return func(p *queryParams) { p.threshold = threshold }
}

// WithFilter restricts hits to chunks whose metadata contains all the
// given key/value pairs (JSONB containment).
func WithFilter(filter map[string]any) QueryOption {
	return func(p *queryParams) { p.filter = filter }
}

// Query returns the chunks most similar to the embedding, best first.
// Similarity is cosine similarity in [0, 1] computed in SQL from the
// pgvector cosine distance operator.
func (s *Store) Query(ctx context.Context, collection string, embedding []float32, opts ...QueryOption) ([]Chunk, error) {
	p := queryParams{k: s.defaultK, threshold: s.defaultThreshold}
	for _, opt := range opts {
		opt(&p)
	}

	query := `
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM vector_chunks
		WHERE collection = $2
		  AND 1 - (embedding <=> $1) >= $3`
	args := []any{pgvector.NewVector(embedding), collection, p.threshold}

	if len(p.filter) > 0 {
		filterJSON, err := json.Marshal(p.filter)
		if err != nil {
			return nil, fmt.Errorf("marshal filter: %w", err)
		}
		args = append(args, filterJSON)
		query += fmt.Sprintf(" AND metadata @> $%d", len(args))
	}

	args = append(args, p.k)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var (
			c    Chunk
			meta []byte
		)
		if err := rows.Scan(&c.ID, &c.Content, &meta, &c.Similarity); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &c.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for %s: %w", c.ID, err)
			}
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteByDocument removes every chunk of a document from a collection in
// one statement, so a concurrent query sees all of them or none.
func (s *Store) DeleteByDocument(ctx context.Context, collection, documentHash string) (int64, error) {
	filter, err := json.Marshal(map[string]any{"document_hash": documentHash})
	if err != nil {
		return 0, fmt.Errorf("marshal delete filter: %w", err)
	}
	tag, err := s.q.Exec(ctx, `
		DELETE FROM vector_chunks
		WHERE collection = $1 AND metadata @> $2`, collection, filter)
	if err != nil {
		return 0, fmt.Errorf("delete document %s: %w", documentHash, err)
	}

	deleted := tag.RowsAffected()
	s.logger.Debug("deleted document chunks",
		"collection", collection, "document_hash", documentHash, "count", deleted)
	return deleted, nil
}

// Count returns the number of chunks in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := s.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM vector_chunks WHERE collection = $1`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

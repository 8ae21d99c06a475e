package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexandria-ai/alexandria/internal/log"
)

// Store manages document records in PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New creates a new Store instance. A nil logger falls back to slog.Default.
func New(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Exists reports whether a document with the given content hash is stored.
func (s *Store) Exists(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE hash = $1)`, hash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking document existence: %w", err)
	}
	return exists, nil
}

// Get retrieves a document by content hash.
// Returns ErrNotFound if no document matches.
func (s *Store) Get(ctx context.Context, hash string) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT hash, title, content, source_file, user_id, chunk_count, chunk_ids, created_at
		FROM documents WHERE hash = $1`, hash)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
		}
		return nil, fmt.Errorf("getting document %q: %w", hash, err)
	}
	return doc, nil
}

// Save persists a new document record.
// Returns ErrExists if a document with the same hash is already stored.
func (s *Store) Save(ctx context.Context, doc *Document) (*Document, error) {
	chunkIDs, err := json.Marshal(doc.ChunkIDs)
	if err != nil {
		return nil, fmt.Errorf("marshaling chunk ids: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (hash, title, content, source_file, user_id, chunk_count, chunk_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.Hash, doc.Title, doc.Content, doc.SourceFile, doc.UserID, doc.ChunkCount, chunkIDs)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, fmt.Errorf("%w: %s", ErrExists, doc.Hash)
		}
		return nil, fmt.Errorf("saving document %q: %w", doc.Hash, err)
	}

	s.logger.Debug("saved document", "hash", doc.Hash, "chunks", doc.ChunkCount)
	return s.Get(ctx, doc.Hash)
}

// SetOwner backfills the owning user on a document record. This is the only
// permitted mutation of a stored document.
func (s *Store) SetOwner(ctx context.Context, hash, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET user_id = $2 WHERE hash = $1`, hash, userID)
	if err != nil {
		return fmt.Errorf("setting document owner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	return nil
}

// Delete removes a document record by hash.
// Returns ErrNotFound if no document matches. The caller is responsible for
// deleting the document's vector chunks first (see ingest.Pipeline).
func (s *Store) Delete(ctx context.Context, hash string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE hash = $1`, hash)
	if err != nil {
		return fmt.Errorf("deleting document %q: %w", hash, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, hash)
	}

	s.logger.Debug("deleted document", "hash", hash)
	return nil
}

// List returns all document records, newest first.
func (s *Store) List(ctx context.Context) ([]*Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT hash, title, content, source_file, user_id, chunk_count, chunk_ids, created_at
		FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	var doc Document
	var chunkIDs []byte

	err := row.Scan(&doc.Hash, &doc.Title, &doc.Content, &doc.SourceFile,
		&doc.UserID, &doc.ChunkCount, &chunkIDs, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(chunkIDs, &doc.ChunkIDs); err != nil {
		return nil, fmt.Errorf("unmarshaling chunk ids: %w", err)
	}
	return &doc, nil
}

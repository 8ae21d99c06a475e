// Package document persists ingested document records keyed by content hash.
//
// The document record is the source of truth for deduplication: the vector
// index is never scanned to answer "was this content ingested before".
// Each record also carries the chunk ids written for it, so deletion can
// cascade to the vector index without a metadata scan.
package document

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no document exists for the given hash.
	ErrNotFound = errors.New("document not found")

	// ErrExists indicates a document with the same content hash already
	// exists. Callers treat this as a recoverable duplicate, not a failure.
	ErrExists = errors.New("document already exists")
)

// Document is an ingested document record.
// Hash is a deterministic function of Content; a document is never
// re-ingested under the same hash.
type Document struct {
	Hash       string
	Title      string
	Content    string
	SourceFile string
	UserID     string
	ChunkCount int
	ChunkIDs   []string
	CreatedAt  time.Time
}

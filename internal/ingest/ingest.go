// Package ingest turns raw book files into embedded chunks in the vector
// index. Ingestion is idempotent: the document's content hash is its
// identity, and re-ingesting known content is a cheap no-op.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/net/html/charset"

	"github.com/alexandria-ai/alexandria/internal/document"
	"github.com/alexandria-ai/alexandria/internal/embed"
	"github.com/alexandria-ai/alexandria/internal/log"
	"github.com/alexandria-ai/alexandria/internal/vectorindex"
)

// ErrEmptyDocument indicates the input had no extractable text.
var ErrEmptyDocument = errors.New("document has no text content")

// documentStore is the slice of the document catalog ingestion needs.
type documentStore interface {
	Exists(ctx context.Context, hash string) (bool, error)
	Get(ctx context.Context, hash string) (*document.Document, error)
	Save(ctx context.Context, doc *document.Document) (*document.Document, error)
	Delete(ctx context.Context, hash string) error
}

// chunkIndex is the slice of the vector index ingestion needs.
type chunkIndex interface {
	Add(ctx context.Context, collection string, chunks []vectorindex.Chunk) error
	DeleteByDocument(ctx context.Context, collection, documentHash string) (int64, error)
}

// Result reports what an ingestion call did.
type Result struct {
	Document *document.Document
	// Ingested is false when the content was already indexed.
	Ingested bool
	Chunks   int
}

// Pipeline coordinates split, embed, and index for one document at a time.
type Pipeline struct {
	documents documentStore
	index     chunkIndex
	embedder  embed.Embedder
	splitter  *Splitter
	lockDir   string
	logger    log.Logger
}

// New builds a pipeline. lockDir holds the per-document file locks that
// serialize concurrent ingestion of the same content across processes.
func New(documents documentStore, index chunkIndex, embedder embed.Embedder,
	splitter *Splitter, lockDir string, logger log.Logger) *Pipeline {
	return &Pipeline{
		documents: documents,
		index:     index,
		embedder:  embedder,
		splitter:  splitter,
		lockDir:   lockDir,
		logger:    logger,
	}
}

// IngestFile reads, decodes, and ingests a file. Non-UTF-8 input is
// converted using charset detection before hashing, so the same text in
// different encodings maps to the same document.
func (p *Pipeline) IngestFile(ctx context.Context, path, userID string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	reader, err := charset.NewReader(bytes.NewReader(raw), "text/plain")
	if err != nil {
		return nil, fmt.Errorf("detect charset of %s: %w", path, err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	name := filepath.Base(path)
	title := strings.TrimSuffix(name, filepath.Ext(name))
	return p.IngestText(ctx, title, string(decoded), name, userID)
}

// IngestText ingests raw text. It returns the existing document with
// Ingested=false when the content hash is already known.
func (p *Pipeline) IngestText(ctx context.Context, title, content, sourceFile, userID string) (*Result, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyDocument
	}
	hash := ContentHash(content)

	// Cheap pre-check before taking the lock.
	exists, err := p.documents.Exists(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("check document %s: %w", hash, err)
	}
	if exists {
		return p.existing(ctx, hash)
	}

	unlock, err := p.lockDocument(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// A concurrent ingester may have won the race while we waited.
	exists, err = p.documents.Exists(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("recheck document %s: %w", hash, err)
	}
	if exists {
		return p.existing(ctx, hash)
	}

	chunks := p.splitter.Split(content)
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed document %s: %w", hash, err)
	}

	indexed := make([]vectorindex.Chunk, len(chunks))
	chunkIDs := make([]string, len(chunks))
	for i, text := range chunks {
		id := ChunkID(hash, i)
		chunkIDs[i] = id
		indexed[i] = vectorindex.Chunk{
			ID:        id,
			Content:   text,
			Embedding: vectors[i],
			Metadata: map[string]any{
				"document_hash": hash,
				"chunk_index":   i,
				"total_chunks":  len(chunks),
				"source_file":   sourceFile,
			},
		}
	}

	if err := p.index.Add(ctx, vectorindex.CollectionChunks, indexed); err != nil {
		return nil, fmt.Errorf("index document %s: %w", hash, err)
	}

	doc, err := p.documents.Save(ctx, &document.Document{
		Hash:       hash,
		Title:      title,
		Content:    content,
		SourceFile: sourceFile,
		UserID:     userID,
		ChunkCount: len(chunks),
		ChunkIDs:   chunkIDs,
	})
	if err != nil {
		if errors.Is(err, document.ErrExists) {
			return p.existing(ctx, hash)
		}
		return nil, fmt.Errorf("save document %s: %w", hash, err)
	}

	p.logger.Info("document ingested",
		"hash", hash, "title", title, "chunks", len(chunks))
	return &Result{Document: doc, Ingested: true, Chunks: len(chunks)}, nil
}

// DeleteDocument removes a document's chunks from the index and then the
// catalog row. The chunk delete runs first so a half-failed delete never
// leaves orphaned vectors behind a missing catalog entry.
func (p *Pipeline) DeleteDocument(ctx context.Context, hash string) error {
	deleted, err := p.index.DeleteByDocument(ctx, vectorindex.CollectionChunks, hash)
	if err != nil {
		return fmt.Errorf("delete chunks of %s: %w", hash, err)
	}
	if err := p.documents.Delete(ctx, hash); err != nil {
		return fmt.Errorf("delete document %s: %w", hash, err)
	}
	p.logger.Info("document deleted", "hash", hash, "chunks", deleted)
	return nil
}

func (p *Pipeline) existing(ctx context.Context, hash string) (*Result, error) {
	doc, err := p.documents.Get(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("load existing document %s: %w", hash, err)
	}
	p.logger.Debug("document already ingested", "hash", hash)
	return &Result{Document: doc, Ingested: false, Chunks: doc.ChunkCount}, nil
}

// lockDocument takes a per-hash file lock so two processes cannot embed
// the same content twice.
func (p *Pipeline) lockDocument(ctx context.Context, hash string) (func(), error) {
	if p.lockDir == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(p.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	lock := flock.New(filepath.Join(p.lockDir, hash+".lock"))
	if _, err := lock.TryLockContext(ctx, 100*time.Millisecond); err != nil {
		return nil, fmt.Errorf("lock document %s: %w", hash, err)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("unlock document", "hash", hash, "error", err)
		}
	}, nil
}

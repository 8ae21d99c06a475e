package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ContentHash returns the hex SHA-256 of the document text. The hash is
// the document's identity: identical content always maps to the same
// hash, which is what makes re-ingestion a no-op.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ChunkID derives the stable id of the i-th chunk of a document.
func ChunkID(documentHash string, i int) string {
	return fmt.Sprintf("%s_chunk_%d", documentHash[:8], i)
}

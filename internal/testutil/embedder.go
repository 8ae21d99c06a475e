package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// StaticEmbedder is a deterministic stand-in for a real embedding model.
// The same text always maps to the same unit-length vector, so similarity
// queries behave consistently across test runs.
type StaticEmbedder struct {
	// Dim is the vector dimension; it must match the schema (768).
	Dim int
}

// NewStaticEmbedder returns an embedder producing 768-dimension vectors.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{Dim: 768}
}

// EmbedQuery derives a deterministic vector from the text.
func (e *StaticEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

// EmbedDocuments derives one vector per text, preserving order.
func (e *StaticEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *StaticEmbedder) vector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, e.Dim)
	var norm float32
	for i := range vec {
		// Cycle through the digest to fill the dimension.
		b := sum[(i*4)%len(sum):]
		v := float32(binary.LittleEndian.Uint16(b)%1000) / 1000.0
		vec[i] = v
		norm += v * v
	}
	if norm > 0 {
		inv := 1.0 / sqrt32(norm)
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

func sqrt32(v float32) float32 {
	// Newton's method is plenty for test vectors.
	x := v / 2
	for range 8 {
		x = (x + v/x) / 2
	}
	return x
}

// Package embedding maps text to fixed-length dense vectors and provides
// the similarity measure used for retrieval.
package embedding

import (
	"context"
	"errors"
	"math"
)

// ErrUnavailable indicates the embedding capability failed or timed out.
// Callers must fail closed: a failed embedding is never stored or matched.
var ErrUnavailable = errors.New("embedding service unavailable")

// Embedder converts text into fixed-dimension vectors. Embedding the same
// text twice yields the same vector (the model is frozen per deployment).
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension reports the length of produced vectors.
	Dimension() int
}

// CosineSimilarity returns the normalized dot product of a and b, in
// [-1, 1]. A zero vector yields 0 by convention.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// tokenPattern matches word tokens, including apostrophe contractions.
var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// Hashing is a deterministic local embedder using the feature-hashing
// trick: each token is hashed into one of Dimension buckets and the
// resulting count vector is L2-normalized. It needs no model, no network,
// and no corpus preparation, which makes it the offline fallback and the
// embedder used in tests. Vectors for texts sharing vocabulary have high
// cosine similarity; disjoint texts score near zero.
type Hashing struct {
	dimension int
}

// NewHashing creates a hashing embedder of the given dimension.
// Non-positive dimensions fall back to the deployment default.
func NewHashing(dimension int) *Hashing {
	if dimension <= 0 {
		dimension = Dimension
	}
	return &Hashing{dimension: dimension}
}

// Dimension reports the vector length.
func (e *Hashing) Dimension() int { return e.dimension }

// Embed computes the feature-hash vector for text. It never fails and
// returns a zero vector for text with no tokens.
func (e *Hashing) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, e.dimension)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%e.dimension]++
	}

	// L2 normalize
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dimension)
	if norm > 0 {
		for i, v := range vec {
			out[i] = float32(v / norm)
		}
	}
	return out, nil
}

// EmbedBatch embeds each text in order.
func (e *Hashing) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Package storage persists tenant-partitioned SOP chunks with their
// embeddings and ranks them by cosine similarity. Two implementations are
// provided: Memory, the brute-force correctness baseline, and Qdrant, the
// index-accelerated path validated against it.
package storage

import (
	"context"
	"sort"
)

// Store is the tenant-partitioned chunk collection. Every read takes the
// tenant id as a mandatory parameter; it is never inferred from context,
// which makes cross-tenant leakage structurally impossible at this layer.
type Store interface {
	// Put persists a single chunk and returns its id. Fails with
	// ErrDimensionMismatch if the embedding length differs from the
	// store's configured dimension.
	Put(ctx context.Context, chunk *Chunk) (string, error)

	// PutBatch persists all chunks or none of them. Used by ingestion for
	// document-level atomicity.
	PutBatch(ctx context.Context, chunks []*Chunk) error

	// QueryByTenant ranks the tenant's chunks by similarity to embedding,
	// descending, with ties broken by ascending chunk index then ascending
	// title. A non-empty category is an exact-match pre-filter applied
	// before ranking. An unknown tenant yields an empty result, not an
	// error.
	QueryByTenant(ctx context.Context, tenantID string, embedding []float32, topK int, category string) ([]ScoredChunk, error)

	// Stats summarizes the tenant's corpus.
	Stats(ctx context.Context, tenantID string) (*TenantStats, error)

	// DeleteDocument removes every chunk of the named document and returns
	// the number removed. Re-ingestion of an updated document is modeled
	// as DeleteDocument followed by a fresh ingest.
	DeleteDocument(ctx context.Context, tenantID, title string) (int, error)

	// Health reports whether the backing store is reachable.
	Health(ctx context.Context) error

	// Close releases any backing connections.
	Close() error
}

// sortScored orders results by descending similarity, breaking ties by
// ascending chunk index then ascending title so rankings are reproducible.
func sortScored(results []ScoredChunk) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].Chunk.ChunkIndex != results[j].Chunk.ChunkIndex {
			return results[i].Chunk.ChunkIndex < results[j].Chunk.ChunkIndex
		}
		return results[i].Chunk.Title < results[j].Chunk.Title
	})
}

package storage

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alphora/sop-rag/internal/embedding"
)

// Memory is an in-memory store using a brute-force cosine scan per tenant.
// It is the default backend and the correctness baseline the Qdrant path
// is validated against. Safe for concurrent use; PutBatch holds the write
// lock for the whole batch so readers never observe a partial document.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	tenants   map[string][]*Chunk
}

// NewMemory creates an empty in-memory store. Non-positive dimensions fall
// back to VectorDimension.
func NewMemory(dimension int) *Memory {
	if dimension <= 0 {
		dimension = VectorDimension
	}
	return &Memory{
		dimension: dimension,
		tenants:   make(map[string][]*Chunk),
	}
}

// Dimension returns the configured embedding dimension.
func (s *Memory) Dimension() int { return s.dimension }

// Put persists a single chunk, assigning a UUID when the chunk has none.
func (s *Memory) Put(_ context.Context, chunk *Chunk) (string, error) {
	stored, err := s.prepare(chunk)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[stored.TenantID] = append(s.tenants[stored.TenantID], stored)
	return stored.ID, nil
}

// PutBatch persists all chunks or none: every chunk is validated before
// the first one is appended.
func (s *Memory) PutBatch(_ context.Context, chunks []*Chunk) error {
	prepared := make([]*Chunk, len(chunks))
	for i, chunk := range chunks {
		stored, err := s.prepare(chunk)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		prepared[i] = stored
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range prepared {
		s.tenants[stored.TenantID] = append(s.tenants[stored.TenantID], stored)
	}
	return nil
}

// prepare validates a chunk and returns a defensive copy so later caller
// mutations cannot reach the stored record.
func (s *Memory) prepare(chunk *Chunk) (*Chunk, error) {
	if chunk.TenantID == "" {
		return nil, ErrTenantRequired
	}
	if len(chunk.Embedding) != s.dimension {
		return nil, fmt.Errorf("%w: got %d dimensions, expected %d",
			ErrDimensionMismatch, len(chunk.Embedding), s.dimension)
	}

	stored := *chunk
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.Embedding = append([]float32(nil), chunk.Embedding...)
	stored.Tags = append([]string(nil), chunk.Tags...)
	stored.Metadata = maps.Clone(chunk.Metadata)
	return &stored, nil
}

// QueryByTenant brute-force scans the tenant's chunks and ranks them by
// cosine similarity to the query embedding.
func (s *Memory) QueryByTenant(_ context.Context, tenantID string, queryEmbedding []float32, topK int, category string) ([]ScoredChunk, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if len(queryEmbedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(queryEmbedding), s.dimension)
	}
	if topK <= 0 {
		return []ScoredChunk{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]ScoredChunk, 0, len(s.tenants[tenantID]))
	for _, chunk := range s.tenants[tenantID] {
		if category != "" && chunk.Category != category {
			continue
		}
		results = append(results, ScoredChunk{
			Chunk:      chunk,
			Similarity: embedding.CosineSimilarity(queryEmbedding, chunk.Embedding),
		})
	}

	sortScored(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Stats summarizes the tenant's stored corpus.
func (s *Memory) Stats(_ context.Context, tenantID string) (*TenantStats, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := make(map[string]bool)
	categories := make(map[string]bool)
	chunks := s.tenants[tenantID]
	for _, chunk := range chunks {
		titles[chunk.Title] = true
		if chunk.Category != "" {
			categories[chunk.Category] = true
		}
	}

	stats := &TenantStats{
		DocumentCount: len(titles),
		ChunkCount:    len(chunks),
		Categories:    make([]string, 0, len(categories)),
	}
	for category := range categories {
		stats.Categories = append(stats.Categories, category)
	}
	sort.Strings(stats.Categories)
	return stats, nil
}

// DeleteDocument removes all chunks of the named document for the tenant.
func (s *Memory) DeleteDocument(_ context.Context, tenantID, title string) (int, error) {
	if tenantID == "" {
		return 0, ErrTenantRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.tenants[tenantID][:0]
	removed := 0
	for _, chunk := range s.tenants[tenantID] {
		if chunk.Title == title {
			removed++
			continue
		}
		kept = append(kept, chunk)
	}
	s.tenants[tenantID] = kept
	return removed, nil
}

// Health always succeeds for the in-memory store.
func (s *Memory) Health(context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *Memory) Close() error { return nil }

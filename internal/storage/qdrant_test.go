//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestQdrant creates a Qdrant store and ensures the collection exists.
// Skips the test if Qdrant is not running.
func setupTestQdrant(t *testing.T) *Qdrant {
	store, err := NewQdrant("localhost", 6334)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	err = store.EnsureCollection(context.Background())
	require.NoError(t, err, "Failed to ensure collection")

	return store
}

// uniqueTenant returns a tenant id no other test run shares.
func uniqueTenant(prefix string) string {
	return prefix + "-" + uuid.New().String()
}

func unitVector(axis int) []float32 {
	vec := make([]float32, VectorDimension)
	vec[axis] = 1
	return vec
}

func TestQdrant_ChunkRoundTrip(t *testing.T) {
	store := setupTestQdrant(t)
	defer store.Close()

	ctx := context.Background()
	tenant := uniqueTenant("roundtrip")

	chunk := &Chunk{
		TenantID:   tenant,
		Title:      "Password Reset Procedure",
		Category:   "password_reset",
		ChunkIndex: 0,
		Content:    "Verify identity before any reset.",
		Tags:       []string{"authentication", "security"},
		Metadata:   map[string]any{"version": "2.1"},
		Embedding:  unitVector(0),
	}

	id, err := store.Put(ctx, chunk)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	results, err := store.QueryByTenant(ctx, tenant, unitVector(0), 5, "")
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0].Chunk
	assert.Equal(t, tenant, got.TenantID)
	assert.Equal(t, chunk.Title, got.Title)
	assert.Equal(t, chunk.Category, got.Category)
	assert.Equal(t, chunk.ChunkIndex, got.ChunkIndex)
	assert.Equal(t, chunk.Content, got.Content)
	assert.Equal(t, chunk.Tags, got.Tags)
	assert.Equal(t, "2.1", got.Metadata["version"])
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-4)
}

func TestQdrant_DimensionMismatch(t *testing.T) {
	store := setupTestQdrant(t)
	defer store.Close()

	ctx := context.Background()

	_, err := store.Put(ctx, &Chunk{
		TenantID:  uniqueTenant("dim"),
		Title:     "Doc",
		Embedding: make([]float32, VectorDimension-1),
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = store.QueryByTenant(ctx, "tenant1", make([]float32, 7), 5, "")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestQdrant_TenantIsolationAndStats(t *testing.T) {
	store := setupTestQdrant(t)
	defer store.Close()

	ctx := context.Background()
	tenantA := uniqueTenant("iso-a")
	tenantB := uniqueTenant("iso-b")

	require.NoError(t, store.PutBatch(ctx, []*Chunk{
		{TenantID: tenantA, Title: "A Doc", Category: "password_reset", ChunkIndex: 0, Content: "a0", Embedding: unitVector(0)},
		{TenantID: tenantA, Title: "A Doc", Category: "password_reset", ChunkIndex: 1, Content: "a1", Embedding: unitVector(1)},
		{TenantID: tenantB, Title: "B Doc", Category: "vpn_access", ChunkIndex: 0, Content: "b0", Embedding: unitVector(0)},
	}))

	results, err := store.QueryByTenant(ctx, tenantA, unitVector(0), 10, "")
	require.NoError(t, err)
	for _, result := range results {
		assert.Equal(t, tenantA, result.Chunk.TenantID)
	}

	stats, err := store.Stats(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, 2, stats.ChunkCount)
	assert.Equal(t, []string{"password_reset"}, stats.Categories)
}

// TestQdrant_MatchesMemoryBaseline validates the index-accelerated path
// against the brute-force baseline on identical data.
func TestQdrant_MatchesMemoryBaseline(t *testing.T) {
	qdrantStore := setupTestQdrant(t)
	defer qdrantStore.Close()
	memoryStore := NewMemory(VectorDimension)

	ctx := context.Background()
	tenant := uniqueTenant("baseline")

	chunks := []*Chunk{
		{TenantID: tenant, Title: "Doc A", ChunkIndex: 0, Content: "a", Embedding: unitVector(0)},
		{TenantID: tenant, Title: "Doc B", ChunkIndex: 0, Content: "b", Embedding: unitVector(1)},
		{TenantID: tenant, Title: "Doc C", ChunkIndex: 0, Content: "c", Embedding: unitVector(2)},
	}
	for _, chunk := range chunks {
		copied := *chunk
		copied.Embedding = append([]float32(nil), chunk.Embedding...)
		_, err := memoryStore.Put(ctx, &copied)
		require.NoError(t, err)
	}
	require.NoError(t, qdrantStore.PutBatch(ctx, chunks))

	query := unitVector(1)
	want, err := memoryStore.QueryByTenant(ctx, tenant, query, 3, "")
	require.NoError(t, err)
	got, err := qdrantStore.QueryByTenant(ctx, tenant, query, 3, "")
	require.NoError(t, err)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equalf(t, want[i].Chunk.Title, got[i].Chunk.Title, "rank %d", i)
		assert.InDeltaf(t, want[i].Similarity, got[i].Similarity, 1e-3, "rank %d", i)
	}
}

func TestQdrant_DeleteDocument(t *testing.T) {
	store := setupTestQdrant(t)
	defer store.Close()

	ctx := context.Background()
	tenant := uniqueTenant("delete")

	require.NoError(t, store.PutBatch(ctx, []*Chunk{
		{TenantID: tenant, Title: "Keep", ChunkIndex: 0, Content: "k", Embedding: unitVector(0)},
		{TenantID: tenant, Title: "Drop", ChunkIndex: 0, Content: "d0", Embedding: unitVector(1)},
		{TenantID: tenant, Title: "Drop", ChunkIndex: 1, Content: "d1", Embedding: unitVector(2)},
	}))

	removed, err := store.DeleteDocument(ctx, tenant, "Drop")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	stats, err := store.Stats(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChunkCount)
}

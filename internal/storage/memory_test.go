package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunk(tenantID, title, category string, index int, embedding []float32) *Chunk {
	return &Chunk{
		TenantID:   tenantID,
		Title:      title,
		Category:   category,
		ChunkIndex: index,
		Content:    "chunk content",
		Embedding:  embedding,
	}
}

func TestMemory_PutAssignsID(t *testing.T) {
	store := NewMemory(3)
	ctx := context.Background()

	id, err := store.Put(ctx, testChunk("tenant1", "Doc", "cat", 0, []float32{1, 0, 0}))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestMemory_PutDimensionMismatch(t *testing.T) {
	store := NewMemory(3)
	ctx := context.Background()

	_, err := store.Put(ctx, testChunk("tenant1", "Doc", "cat", 0, []float32{1, 0}))
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	// The failed write must not corrupt the store.
	stats, err := store.Stats(ctx, "tenant1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ChunkCount)
}

func TestMemory_PutRequiresTenant(t *testing.T) {
	store := NewMemory(3)

	_, err := store.Put(context.Background(), testChunk("", "Doc", "cat", 0, []float32{1, 0, 0}))
	assert.ErrorIs(t, err, ErrTenantRequired)
}

func TestMemory_QueryRanksBySimilarity(t *testing.T) {
	store := NewMemory(3)
	ctx := context.Background()

	require.NoError(t, store.PutBatch(ctx, []*Chunk{
		testChunk("tenant1", "Far", "", 0, []float32{0, 1, 0}),
		testChunk("tenant1", "Near", "", 0, []float32{1, 0, 0}),
		testChunk("tenant1", "Middle", "", 0, []float32{1, 1, 0}),
	}))

	results, err := store.QueryByTenant(ctx, "tenant1", []float32{1, 0, 0}, 10, "")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "Near", results[0].Chunk.Title)
	assert.Equal(t, "Middle", results[1].Chunk.Title)
	assert.Equal(t, "Far", results[2].Chunk.Title)

	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.Greater(t, results[1].Similarity, results[2].Similarity)
}

func TestMemory_QueryTieBreakDeterministic(t *testing.T) {
	store := NewMemory(2)
	ctx := context.Background()

	// All chunks identical to the query: similarity ties everywhere.
	vec := []float32{1, 0}
	require.NoError(t, store.PutBatch(ctx, []*Chunk{
		testChunk("tenant1", "Bravo", "", 1, vec),
		testChunk("tenant1", "Bravo", "", 0, vec),
		testChunk("tenant1", "Alpha", "", 1, vec),
		testChunk("tenant1", "Alpha", "", 0, vec),
	}))

	results, err := store.QueryByTenant(ctx, "tenant1", vec, 10, "")
	require.NoError(t, err)
	require.Len(t, results, 4)

	// Ascending chunk index, then ascending title.
	assert.Equal(t, 0, results[0].Chunk.ChunkIndex)
	assert.Equal(t, "Alpha", results[0].Chunk.Title)
	assert.Equal(t, 0, results[1].Chunk.ChunkIndex)
	assert.Equal(t, "Bravo", results[1].Chunk.Title)
	assert.Equal(t, 1, results[2].Chunk.ChunkIndex)
	assert.Equal(t, "Alpha", results[2].Chunk.Title)
	assert.Equal(t, 1, results[3].Chunk.ChunkIndex)
	assert.Equal(t, "Bravo", results[3].Chunk.Title)
}

func TestMemory_QueryCategoryPreFilter(t *testing.T) {
	store := NewMemory(2)
	ctx := context.Background()

	require.NoError(t, store.PutBatch(ctx, []*Chunk{
		testChunk("tenant1", "Passwords", "password_reset", 0, []float32{0, 1}),
		testChunk("tenant1", "Restarts", "system_restart", 0, []float32{1, 0}),
	}))

	// The restart chunk matches the query better, but the category filter
	// excludes it before ranking.
	results, err := store.QueryByTenant(ctx, "tenant1", []float32{1, 0}, 10, "password_reset")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Passwords", results[0].Chunk.Title)
}

func TestMemory_QueryTopKBound(t *testing.T) {
	store := NewMemory(2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Put(ctx, testChunk("tenant1", "Doc", "", i, []float32{1, 0}))
		require.NoError(t, err)
	}

	results, err := store.QueryByTenant(ctx, "tenant1", []float32{1, 0}, 2, "")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = store.QueryByTenant(ctx, "tenant1", []float32{1, 0}, 0, "")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = store.QueryByTenant(ctx, "tenant1", []float32{1, 0}, -3, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemory_QueryUnknownTenantIsEmpty(t *testing.T) {
	store := NewMemory(2)
	ctx := context.Background()

	_, err := store.Put(ctx, testChunk("tenant2", "Doc", "", 0, []float32{1, 0}))
	require.NoError(t, err)

	results, err := store.QueryByTenant(ctx, "tenant1", []float32{1, 0}, 5, "")
	require.NoError(t, err, "unknown tenant is not an error")
	assert.Empty(t, results)
}

func TestMemory_TenantIsolation(t *testing.T) {
	store := NewMemory(2)
	ctx := context.Background()

	require.NoError(t, store.PutBatch(ctx, []*Chunk{
		testChunk("tenant1", "T1 Doc", "", 0, []float32{1, 0}),
		testChunk("tenant2", "T2 Doc", "", 0, []float32{1, 0}),
	}))

	results, err := store.QueryByTenant(ctx, "tenant1", []float32{1, 0}, 10, "")
	require.NoError(t, err)
	for _, result := range results {
		assert.Equal(t, "tenant1", result.Chunk.TenantID,
			"query must never return another tenant's chunk")
	}

	stats, err := store.Stats(ctx, "tenant1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChunkCount, "stats must not aggregate across tenants")
}

func TestMemory_Stats(t *testing.T) {
	store := NewMemory(2)
	ctx := context.Background()

	vec := []float32{1, 0}
	require.NoError(t, store.PutBatch(ctx, []*Chunk{
		testChunk("tenant1", "Passwords", "password_reset", 0, vec),
		testChunk("tenant1", "Passwords", "password_reset", 1, vec),
		testChunk("tenant1", "Restarts", "system_restart", 0, vec),
		testChunk("tenant1", "VPN", "vpn_access", 0, vec),
	}))

	stats, err := store.Stats(ctx, "tenant1")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.DocumentCount)
	assert.Equal(t, 4, stats.ChunkCount)
	assert.Equal(t, []string{"password_reset", "system_restart", "vpn_access"}, stats.Categories)
}

func TestMemory_DeleteDocument(t *testing.T) {
	store := NewMemory(2)
	ctx := context.Background()

	vec := []float32{1, 0}
	require.NoError(t, store.PutBatch(ctx, []*Chunk{
		testChunk("tenant1", "Keep", "", 0, vec),
		testChunk("tenant1", "Drop", "", 0, vec),
		testChunk("tenant1", "Drop", "", 1, vec),
		testChunk("tenant2", "Drop", "", 0, vec),
	}))

	removed, err := store.DeleteDocument(ctx, "tenant1", "Drop")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	stats, err := store.Stats(ctx, "tenant1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChunkCount)

	// The other tenant's document with the same title is untouched.
	stats, err = store.Stats(ctx, "tenant2")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChunkCount)
}

func TestMemory_PutBatchAllOrNothing(t *testing.T) {
	store := NewMemory(3)
	ctx := context.Background()

	err := store.PutBatch(ctx, []*Chunk{
		testChunk("tenant1", "Doc", "", 0, []float32{1, 0, 0}),
		testChunk("tenant1", "Doc", "", 1, []float32{1, 0}), // wrong dimension
	})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	stats, err := store.Stats(ctx, "tenant1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ChunkCount, "a failed batch must store nothing")
}

func TestMemory_StoredChunkIsCopied(t *testing.T) {
	store := NewMemory(2)
	ctx := context.Background()

	chunk := testChunk("tenant1", "Doc", "", 0, []float32{1, 0})
	chunk.Metadata = map[string]any{"version": "1.0"}
	_, err := store.Put(ctx, chunk)
	require.NoError(t, err)

	// Mutating the caller's slice and map must not affect the stored record.
	chunk.Embedding[0] = 0
	chunk.Embedding[1] = 1
	chunk.Metadata["version"] = "9.9"

	results, err := store.QueryByTenant(ctx, "tenant1", []float32{1, 0}, 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.Equal(t, "1.0", results[0].Chunk.Metadata["version"])
}

package ingest

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphora/sop-rag/internal/chunker"
	"github.com/alphora/sop-rag/internal/embedding"
	"github.com/alphora/sop-rag/internal/sop"
	"github.com/alphora/sop-rag/internal/storage"
)

const testDimension = 64

// brokenEmbedder fails every call, simulating an embedding outage.
type brokenEmbedder struct{}

func (brokenEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, embedding.ErrUnavailable
}

func (brokenEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, embedding.ErrUnavailable
}

func (brokenEmbedder) Dimension() int { return testDimension }

func newTestPipeline(store storage.Store) *Pipeline {
	return NewPipeline(
		chunker.New(chunker.DefaultMaxLength, chunker.DefaultOverlap),
		embedding.NewHashing(testDimension),
		store,
		slog.New(slog.DiscardHandler),
	)
}

func TestIngestDocuments_Samples(t *testing.T) {
	store := storage.NewMemory(testDimension)
	pipeline := newTestPipeline(store)
	ctx := context.Background()

	docs := sop.SampleDocuments("tenant1")
	report, err := pipeline.IngestDocuments(ctx, "tenant1", docs)
	require.NoError(t, err)

	assert.Equal(t, len(docs), report.TotalDocuments)
	assert.Equal(t, len(docs), report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.GreaterOrEqual(t, report.TotalChunks, len(docs), "every document yields at least one chunk")

	stats, err := store.Stats(ctx, "tenant1")
	require.NoError(t, err)
	assert.Equal(t, len(docs), stats.DocumentCount)
	assert.Equal(t, report.TotalChunks, stats.ChunkCount)
}

func TestIngestDocuments_RequiresTenant(t *testing.T) {
	pipeline := newTestPipeline(storage.NewMemory(testDimension))

	_, err := pipeline.IngestDocuments(context.Background(), "", sop.SampleDocuments("tenant1"))
	assert.ErrorIs(t, err, storage.ErrTenantRequired)
}

func TestIngestDocuments_SkipsMalformed(t *testing.T) {
	store := storage.NewMemory(testDimension)
	pipeline := newTestPipeline(store)
	ctx := context.Background()

	report, err := pipeline.IngestDocuments(ctx, "tenant1", []sop.Document{
		{Title: "Good Doc", Body: "Verify identity before resetting a password.", Category: "password_reset"},
		{Title: "", Body: "body without a title"},
		{Title: "Empty Doc", Body: "   "},
	})
	require.NoError(t, err, "per-document failures are reported, not returned")

	assert.Equal(t, 3, report.TotalDocuments)
	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, report.Failed, 2)
	for _, failed := range report.Failed {
		assert.Contains(t, failed.Reason, "malformed document")
	}

	stats, err := store.Stats(ctx, "tenant1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount, "only the valid document is stored")
}

func TestIngestDocuments_RejectsTenantMismatch(t *testing.T) {
	store := storage.NewMemory(testDimension)
	pipeline := newTestPipeline(store)
	ctx := context.Background()

	report, err := pipeline.IngestDocuments(ctx, "tenant1", []sop.Document{
		{TenantID: "tenant2", Title: "Foreign Doc", Body: "content owned by another tenant"},
	})
	require.NoError(t, err)

	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed[0].Reason, "tenant")

	stats, err := store.Stats(ctx, "tenant1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ChunkCount)
}

func TestIngestDocuments_EmbeddingFailureIsPerDocument(t *testing.T) {
	store := storage.NewMemory(testDimension)
	pipeline := NewPipeline(nil, brokenEmbedder{}, store, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	report, err := pipeline.IngestDocuments(ctx, "tenant1", []sop.Document{
		{Title: "Doc A", Body: "some content"},
		{Title: "Doc B", Body: "more content"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Succeeded)
	assert.Len(t, report.Failed, 2)

	stats, err := store.Stats(ctx, "tenant1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ChunkCount, "nothing is stored when embedding fails")
}

func TestIngestDocuments_ChunkIndexOrder(t *testing.T) {
	store := storage.NewMemory(testDimension)
	pipeline := NewPipeline(
		chunker.New(120, 20),
		embedding.NewHashing(testDimension),
		store,
		slog.New(slog.DiscardHandler),
	)
	ctx := context.Background()

	// Three paragraphs that cannot fit a 120-character budget together.
	body := strings.Join([]string{
		"Step one explains how to open the administration console and locate the affected account record in the directory.",
		"Step two explains how to verify the identity of the requester against the ticket before touching the account.",
		"Step three explains how to issue a temporary credential and force a change at the next successful login.",
	}, "\n\n")

	report, err := pipeline.IngestDocuments(ctx, "tenant1", []sop.Document{
		{Title: "Long Procedure", Body: body, Category: "password_reset"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Succeeded)
	require.Greater(t, report.TotalChunks, 1, "the body must split into multiple chunks")

	query, err := embedding.NewHashing(testDimension).Embed(ctx, "verify the identity of the requester")
	require.NoError(t, err)
	results, err := store.QueryByTenant(ctx, "tenant1", query, report.TotalChunks, "")
	require.NoError(t, err)
	require.Len(t, results, report.TotalChunks)

	seen := make(map[int]bool)
	for _, result := range results {
		chunk := result.Chunk
		assert.Equal(t, "Long Procedure", chunk.Title)
		assert.Equal(t, "password_reset", chunk.Category)
		assert.GreaterOrEqual(t, chunk.ChunkIndex, 0)
		assert.Less(t, chunk.ChunkIndex, report.TotalChunks)
		assert.False(t, seen[chunk.ChunkIndex], "chunk indexes must be unique per document")
		seen[chunk.ChunkIndex] = true
	}
}

func TestReingestDocument_ReplacesPreviousVersion(t *testing.T) {
	store := storage.NewMemory(testDimension)
	pipeline := newTestPipeline(store)
	ctx := context.Background()

	_, err := pipeline.IngestDocuments(ctx, "tenant1", []sop.Document{
		{Title: "Restart Procedure", Body: "Old instructions for restarting the service.", Category: "system_restart"},
	})
	require.NoError(t, err)

	report, err := pipeline.ReingestDocument(ctx, "tenant1", sop.Document{
		Title:    "Restart Procedure",
		Body:     "New instructions for restarting the service safely.",
		Category: "system_restart",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)

	stats, err := store.Stats(ctx, "tenant1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount, "the old version must be gone")
}

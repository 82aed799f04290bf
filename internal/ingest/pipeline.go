// Package ingest turns SOP documents into embedded chunks and stores
// them, one document at a time.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alphora/sop-rag/internal/chunker"
	"github.com/alphora/sop-rag/internal/embedding"
	"github.com/alphora/sop-rag/internal/sop"
	"github.com/alphora/sop-rag/internal/storage"
)

// Report contains statistics about an ingestion run.
type Report struct {
	TotalDocuments int              `json:"total_documents"`
	Succeeded      int              `json:"succeeded"`
	TotalChunks    int              `json:"total_chunks"`
	Failed         []FailedDocument `json:"failed,omitempty"`
	PerDocument    []DocumentResult `json:"per_document,omitempty"`
	Duration       time.Duration    `json:"-"`
}

// FailedDocument records a document that was skipped during ingestion.
type FailedDocument struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// DocumentResult records the chunk count for one ingested document.
type DocumentResult struct {
	Title  string `json:"title"`
	Chunks int    `json:"chunks"`
}

// Pipeline orchestrates chunking, embedding, and storage for a batch of
// documents.
type Pipeline struct {
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	store    storage.Store
	logger   *slog.Logger
}

// NewPipeline creates an ingestion pipeline with the given components.
func NewPipeline(c *chunker.Chunker, embedder embedding.Embedder, store storage.Store, logger *slog.Logger) *Pipeline {
	if c == nil {
		c = chunker.New(chunker.DefaultMaxLength, chunker.DefaultOverlap)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker:  c,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// IngestDocuments processes each document independently: a document
// either lands with all of its chunks or is recorded as failed, and one
// bad document never blocks the rest of the batch.
func (p *Pipeline) IngestDocuments(ctx context.Context, tenantID string, docs []sop.Document) (*Report, error) {
	if tenantID == "" {
		return nil, storage.ErrTenantRequired
	}

	start := time.Now()
	report := &Report{TotalDocuments: len(docs)}
	p.logger.Info("Starting ingestion", "tenant", tenantID, "documents", len(docs))

	for i := range docs {
		doc := &docs[i]
		chunks, err := p.processDocument(ctx, tenantID, doc)
		if err != nil {
			p.logger.Warn("Skipped document", "tenant", tenantID, "title", doc.Title, "error", err)
			report.Failed = append(report.Failed, FailedDocument{
				Title:  doc.Title,
				Reason: err.Error(),
			})
			continue
		}
		report.Succeeded++
		report.TotalChunks += chunks
		report.PerDocument = append(report.PerDocument, DocumentResult{
			Title:  doc.Title,
			Chunks: chunks,
		})
	}

	report.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"tenant", tenantID,
		"succeeded", report.Succeeded,
		"failed", len(report.Failed),
		"chunks", report.TotalChunks,
		"duration", report.Duration,
	)

	return report, nil
}

// processDocument handles the full pipeline for a single document and
// returns the number of chunks stored.
func (p *Pipeline) processDocument(ctx context.Context, tenantID string, doc *sop.Document) (int, error) {
	if err := doc.Validate(); err != nil {
		return 0, err
	}
	if doc.TenantID != "" && doc.TenantID != tenantID {
		return 0, fmt.Errorf("%w: document tenant %q does not match batch tenant %q",
			sop.ErrMalformedDocument, doc.TenantID, tenantID)
	}

	texts := p.chunker.Chunk(doc.Body)
	if len(texts) == 0 {
		return 0, fmt.Errorf("%w: no chunkable content", sop.ErrMalformedDocument)
	}
	p.logger.Debug("Chunked document", "title", doc.Title, "chunks", len(texts))

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embeddings: %w", err)
	}

	chunks := make([]*storage.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &storage.Chunk{
			TenantID:   tenantID,
			Title:      doc.Title,
			Category:   doc.Category,
			ChunkIndex: i,
			Content:    text,
			Tags:       doc.Tags,
			Metadata:   doc.Metadata,
			Embedding:  embeddings[i],
		}
	}

	// PutBatch is all-or-nothing, so a document never lands partially.
	if err := p.store.PutBatch(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	p.logger.Info("Ingested document", "tenant", tenantID, "title", doc.Title, "chunks", len(texts))
	return len(texts), nil
}

// ReingestDocument replaces a stored document with a new version by
// deleting its chunks and ingesting the new content.
func (p *Pipeline) ReingestDocument(ctx context.Context, tenantID string, doc sop.Document) (*Report, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if _, err := p.store.DeleteDocument(ctx, tenantID, doc.Title); err != nil {
		return nil, fmt.Errorf("delete previous version: %w", err)
	}
	return p.IngestDocuments(ctx, tenantID, []sop.Document{doc})
}

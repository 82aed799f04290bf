package storage

import "time"

// Chunk is the persisted unit of retrieval: one bounded segment of a SOP
// document together with its embedding and the document fields it inherits.
// Chunks are never mutated after creation; re-ingesting a document replaces
// its chunks wholesale.
type Chunk struct {
	ID         string         // UUID
	TenantID   string         // isolation scope, mandatory on every record
	Title      string         // owning document title
	Category   string         // owning document category
	ChunkIndex int            // 0-based position within the document
	Content    string         // chunk text
	Tags       []string       // inherited document tags
	Metadata   map[string]any // inherited document metadata
	Embedding  []float32      // fixed VectorDimension components
	CreatedAt  time.Time
}

// ScoredChunk pairs a chunk with its similarity to a query embedding.
type ScoredChunk struct {
	Chunk      *Chunk
	Similarity float64
}

// TenantStats summarizes one tenant's stored corpus.
type TenantStats struct {
	DocumentCount int      // distinct document titles
	ChunkCount    int      // total chunks
	Categories    []string // distinct categories, sorted
}

// CollectionName is the single Qdrant collection for all SOP chunks.
const CollectionName = "sop_chunks"

// VectorDimension is the embedding size every stored chunk must have.
// It must match the embedder's output dimension; a mismatch is a fatal
// error for that write.
const VectorDimension = 384

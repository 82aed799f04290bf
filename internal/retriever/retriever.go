// Package retriever turns free-text queries into ranked, thresholded,
// tenant-scoped SOP chunk results.
package retriever

import (
	"context"
	"errors"
	"fmt"

	"github.com/alphora/sop-rag/internal/embedding"
	"github.com/alphora/sop-rag/internal/storage"
)

const (
	// DefaultTopK is the result bound when a caller has no preference.
	DefaultTopK = 3

	// DefaultThreshold is the minimum similarity for general search.
	DefaultThreshold = 0.5

	// HybridThreshold is the lower bar used when the category is already
	// known from classification.
	HybridThreshold = 0.3
)

// ErrCategoryRequired is returned by HybridSearch without a category.
var ErrCategoryRequired = errors.New("hybrid search requires a category")

// Result is one retrieved chunk with its similarity to the query.
type Result struct {
	ChunkID    string  `json:"sop_id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Category   string  `json:"category"`
	Similarity float64 `json:"similarity"`
	ChunkIndex int     `json:"chunk_index"`
}

// Options controls a single search call.
type Options struct {
	TopK      int     // maximum results; <= 0 yields an empty result
	Threshold float64 // minimum similarity; > 1 yields an empty result
	Category  string  // optional exact-match pre-filter
}

// DefaultOptions returns the general-search defaults.
func DefaultOptions() Options {
	return Options{
		TopK:      DefaultTopK,
		Threshold: DefaultThreshold,
	}
}

// Retriever embeds queries and ranks stored chunks by similarity. Both
// collaborators are injected at construction; there is no ambient state.
type Retriever struct {
	store    storage.Store
	embedder embedding.Embedder
}

// New creates a Retriever over the given store and embedder.
func New(store storage.Store, embedder embedding.Embedder) *Retriever {
	return &Retriever{
		store:    store,
		embedder: embedder,
	}
}

// Search embeds the query, ranks the tenant's chunks, drops results below
// the threshold, and truncates to TopK. An empty result is the normal
// "no relevant SOP" outcome, never an error. An embedding failure is
// returned as an error with no partial results.
func (r *Retriever) Search(ctx context.Context, query, tenantID string, opts Options) ([]Result, error) {
	if opts.TopK <= 0 || opts.Threshold > 1 {
		return []Result{}, nil
	}

	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := r.store.QueryByTenant(ctx, tenantID, queryEmbedding, opts.TopK, opts.Category)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}

	results := make([]Result, 0, len(scored))
	for _, match := range scored {
		if match.Similarity < opts.Threshold {
			continue
		}
		results = append(results, Result{
			ChunkID:    match.Chunk.ID,
			Title:      match.Chunk.Title,
			Content:    match.Chunk.Content,
			Category:   match.Chunk.Category,
			Similarity: match.Similarity,
			ChunkIndex: match.Chunk.ChunkIndex,
		})
	}
	return results, nil
}

// HybridSearch is Search with a mandatory category pre-filter and a lower
// threshold, for callers that already classified the ticket.
func (r *Retriever) HybridSearch(ctx context.Context, query, tenantID, category string, topK int) ([]Result, error) {
	if category == "" {
		return nil, ErrCategoryRequired
	}
	return r.Search(ctx, query, tenantID, Options{
		TopK:      topK,
		Threshold: HybridThreshold,
		Category:  category,
	})
}

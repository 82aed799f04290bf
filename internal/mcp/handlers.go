package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alphora/sop-rag/internal/classify"
	"github.com/alphora/sop-rag/internal/retriever"
	"github.com/alphora/sop-rag/internal/storage"
)

// makeSearchHandler creates the search_sops tool handler. Defaults follow
// the HTTP search endpoint: five results at a 0.5 similarity floor.
func makeSearchHandler(ret *retriever.Retriever) func(
	context.Context, *mcp.CallToolRequest, SearchSOPsInput,
) (*mcp.CallToolResult, SearchSOPsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchSOPsInput) (
		*mcp.CallToolResult, SearchSOPsOutput, error,
	) {
		if input.TenantID == "" {
			return nil, SearchSOPsOutput{}, fmt.Errorf("tenant_id is required")
		}

		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 5
		}
		minSimilarity := input.MinSimilarity
		if minSimilarity <= 0 {
			minSimilarity = retriever.DefaultThreshold
		}

		results, err := ret.Search(ctx, input.Query, input.TenantID, retriever.Options{
			TopK:      maxResults,
			Threshold: minSimilarity,
			Category:  input.Category,
		})
		if err != nil {
			return nil, SearchSOPsOutput{}, fmt.Errorf("search failed: %w", err)
		}

		matches := make([]SOPMatch, 0, len(results))
		for _, result := range results {
			matches = append(matches, SOPMatch{
				Title:      result.Title,
				Content:    result.Content,
				Category:   result.Category,
				Similarity: result.Similarity,
				ChunkIndex: result.ChunkIndex,
			})
		}

		if len(matches) == 0 {
			return nil, SearchSOPsOutput{
				Results: []SOPMatch{},
				Message: "No matching SOPs found. Try broader search terms or a lower min_similarity.",
			}, nil
		}

		return nil, SearchSOPsOutput{Results: matches}, nil
	}
}

// makeStatsHandler creates the sop_stats tool handler.
func makeStatsHandler(store storage.Store) func(
	context.Context, *mcp.CallToolRequest, SOPStatsInput,
) (*mcp.CallToolResult, SOPStatsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SOPStatsInput) (
		*mcp.CallToolResult, SOPStatsOutput, error,
	) {
		if input.TenantID == "" {
			return nil, SOPStatsOutput{}, fmt.Errorf("tenant_id is required")
		}

		stats, err := store.Stats(ctx, input.TenantID)
		if err != nil {
			return nil, SOPStatsOutput{}, fmt.Errorf("stats failed: %w", err)
		}

		categories := stats.Categories
		if categories == nil {
			categories = []string{}
		}
		return nil, SOPStatsOutput{
			TenantID:    input.TenantID,
			TotalSOPs:   stats.DocumentCount,
			TotalChunks: stats.ChunkCount,
			Categories:  categories,
		}, nil
	}
}

// makeClassifyHandler creates the classify_ticket tool handler.
func makeClassifyHandler(classifier *classify.Classifier) func(
	context.Context, *mcp.CallToolRequest, ClassifyTicketInput,
) (*mcp.CallToolResult, ClassifyTicketOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ClassifyTicketInput) (
		*mcp.CallToolResult, ClassifyTicketOutput, error,
	) {
		result := classifier.Classify(ctx, input.Subject, input.Description)

		return nil, ClassifyTicketOutput{
			Intent:            string(result.Intent),
			Confidence:        result.Confidence,
			IsAutomatable:     result.IsAutomatable,
			Reasoning:         result.Reasoning,
			SuggestedCategory: classify.CategoryForIntent(result.Intent),
		}, nil
	}
}

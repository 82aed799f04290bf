// Package mcp exposes SOP retrieval and ticket classification as Model
// Context Protocol tools.
package mcp

// SearchSOPsInput defines the input parameters for the search_sops tool.
type SearchSOPsInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"The semantic search query for finding relevant SOPs"`
	// TenantID scopes the search to one tenant's SOP corpus.
	TenantID string `json:"tenant_id" jsonschema:"Tenant whose SOP corpus is searched"`
	// Category optionally narrows the search to one SOP category.
	Category string `json:"category,omitempty" jsonschema:"Optional SOP category filter (e.g. password_reset)"`
	// MaxResults is the maximum number of chunks to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"Maximum number of chunks to return (1-20, default 5)"`
	// MinSimilarity is the minimum similarity threshold (0-1).
	MinSimilarity float64 `json:"min_similarity,omitempty" jsonschema:"Minimum similarity threshold (0-1, default 0.5)"`
}

// SOPMatch is a single retrieved SOP chunk.
type SOPMatch struct {
	// Title is the SOP document title.
	Title string `json:"title"`
	// Content is the matching chunk text.
	Content string `json:"content"`
	// Category is the SOP category.
	Category string `json:"category"`
	// Similarity is the cosine similarity to the query (0-1).
	Similarity float64 `json:"similarity"`
	// ChunkIndex is the chunk's position within its document.
	ChunkIndex int `json:"chunk_index"`
}

// SearchSOPsOutput contains the search results.
type SearchSOPsOutput struct {
	// Results is the list of matching SOP chunks, best first.
	Results []SOPMatch `json:"results"`
	// Message provides informational context (e.g. "No matching SOPs found").
	Message string `json:"message,omitempty"`
}

// SOPStatsInput defines the input parameters for the sop_stats tool.
type SOPStatsInput struct {
	// TenantID is the tenant to summarize.
	TenantID string `json:"tenant_id" jsonschema:"Tenant whose SOP corpus is summarized"`
}

// SOPStatsOutput summarizes one tenant's SOP corpus.
type SOPStatsOutput struct {
	TenantID    string   `json:"tenant_id"`
	TotalSOPs   int      `json:"total_sops"`
	TotalChunks int      `json:"total_chunks"`
	Categories  []string `json:"categories"`
}

// ClassifyTicketInput defines the input parameters for the classify_ticket tool.
type ClassifyTicketInput struct {
	// Subject is the ticket subject line.
	Subject string `json:"subject" jsonschema:"Ticket subject line"`
	// Description is the ticket body.
	Description string `json:"description,omitempty" jsonschema:"Ticket body text"`
}

// ClassifyTicketOutput is the classification verdict for a ticket.
type ClassifyTicketOutput struct {
	Intent        string  `json:"intent"`
	Confidence    float64 `json:"confidence"`
	IsAutomatable bool    `json:"is_automatable"`
	Reasoning     string  `json:"reasoning"`
	// SuggestedCategory is the SOP category to pass to search_sops, if any.
	SuggestedCategory string `json:"suggested_category,omitempty"`
}

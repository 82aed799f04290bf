package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alphora/sop-rag/internal/classify"
	"github.com/alphora/sop-rag/internal/retriever"
	"github.com/alphora/sop-rag/internal/storage"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server     *mcp.Server
	retriever  *retriever.Retriever
	store      storage.Store
	classifier *classify.Classifier
}

// Config holds server dependencies.
type Config struct {
	Retriever  *retriever.Retriever
	Store      storage.Store
	Classifier *classify.Classifier
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "sop-rag-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_sops",
		Description: "Search a tenant's standard operating procedures semantically. Returns the most relevant SOP chunks with similarity scores.",
	}, makeSearchHandler(cfg.Retriever))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sop_stats",
		Description: "Get SOP corpus statistics for a tenant: document count, chunk count, and known categories.",
	}, makeStatsHandler(cfg.Store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "classify_ticket",
		Description: "Classify a support ticket's intent, with confidence, automation eligibility, and the SOP category to search.",
	}, makeClassifyHandler(cfg.Classifier))

	return &Server{
		server:     server,
		retriever:  cfg.Retriever,
		store:      cfg.Store,
		classifier: cfg.Classifier,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns a Streamable HTTP handler for the server, suitable
// for mounting on a mux path such as "/mcp".
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// Package api exposes the retrieval core over HTTP: ticket
// classification, RAG search, ingestion, and per-tenant statistics.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alphora/sop-rag/internal/classify"
	"github.com/alphora/sop-rag/internal/embedding"
	"github.com/alphora/sop-rag/internal/ingest"
	"github.com/alphora/sop-rag/internal/retriever"
	"github.com/alphora/sop-rag/internal/sop"
	"github.com/alphora/sop-rag/internal/storage"
)

// TicketRequest is the ticket payload shared by /classify and /rag.
type TicketRequest struct {
	TicketID       string `json:"ticketId"`
	TenantID       string `json:"tenantId"`
	Subject        string `json:"subject"`
	Description    string `json:"description"`
	Priority       string `json:"priority,omitempty"`
	RequesterEmail string `json:"requester_email,omitempty"`
}

// RAGResponse is the /rag response body.
type RAGResponse struct {
	Query        string             `json:"query"`
	TenantID     string             `json:"tenant_id"`
	Results      []retriever.Result `json:"results"`
	TotalResults int                `json:"total_results"`
}

// StatsResponse is the /stats/{tenant} response body.
type StatsResponse struct {
	TenantID    string   `json:"tenant_id"`
	TotalSOPs   int      `json:"total_sops"`
	TotalChunks int      `json:"total_chunks"`
	Categories  []string `json:"categories"`
}

// IngestRequest is the /ingest request body.
type IngestRequest struct {
	TenantID  string         `json:"tenant_id"`
	Documents []sop.Document `json:"documents"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler holds the dependencies behind the HTTP endpoints.
type Handler struct {
	retriever  *retriever.Retriever
	classifier *classify.Classifier
	pipeline   *ingest.Pipeline
	store      storage.Store
	logger     *slog.Logger
}

// NewHandler creates the API handler set.
func NewHandler(
	ret *retriever.Retriever,
	classifier *classify.Classifier,
	pipeline *ingest.Pipeline,
	store storage.Store,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		retriever:  ret,
		classifier: classifier,
		pipeline:   pipeline,
		store:      store,
		logger:     logger,
	}
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /rag", h.handleRAG)
	mux.HandleFunc("POST /classify", h.handleClassify)
	mux.HandleFunc("POST /ingest", h.handleIngest)
	mux.HandleFunc("GET /stats/{tenant}", h.handleStats)
	mux.Handle("GET /health", NewHealthHandler(h.store))
}

// handleRAG classifies the ticket and retrieves relevant SOP chunks.
// A known intent narrows the search to its category; anything else
// falls back to general semantic search.
func (h *Handler) handleRAG(w http.ResponseWriter, r *http.Request) {
	var ticket TicketRequest
	if err := json.NewDecoder(r.Body).Decode(&ticket); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if ticket.TenantID == "" {
		h.writeError(w, http.StatusBadRequest, "tenantId is required")
		return
	}

	classification := h.classifier.Classify(r.Context(), ticket.Subject, ticket.Description)
	query := ticket.Subject + " " + ticket.Description

	var (
		results []retriever.Result
		err     error
	)
	if category := classify.CategoryForIntent(classification.Intent); category != "" {
		results, err = h.retriever.HybridSearch(r.Context(), query, ticket.TenantID, category, 3)
	} else {
		results, err = h.retriever.Search(r.Context(), query, ticket.TenantID, retriever.Options{
			TopK:      5,
			Threshold: 0.5,
		})
	}
	if err != nil {
		h.writeRetrievalError(w, err)
		return
	}
	if results == nil {
		results = []retriever.Result{}
	}

	h.logger.Info("RAG retrieval",
		"tenant", ticket.TenantID,
		"intent", classification.Intent,
		"results", len(results),
	)

	h.writeJSON(w, http.StatusOK, RAGResponse{
		Query:        query,
		TenantID:     ticket.TenantID,
		Results:      results,
		TotalResults: len(results),
	})
}

// handleClassify returns the intent classification for a ticket.
func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	var ticket TicketRequest
	if err := json.NewDecoder(r.Body).Decode(&ticket); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	result := h.classifier.Classify(r.Context(), ticket.Subject, ticket.Description)
	h.writeJSON(w, http.StatusOK, result)
}

// handleIngest runs the ingestion pipeline over the posted documents
// and returns the per-document report.
func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.TenantID == "" {
		h.writeError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}
	if len(req.Documents) == 0 {
		h.writeError(w, http.StatusBadRequest, "documents must not be empty")
		return
	}

	report, err := h.pipeline.IngestDocuments(r.Context(), req.TenantID, req.Documents)
	if err != nil {
		h.writeRetrievalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// handleStats returns document, chunk, and category counts for one tenant.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")
	if tenantID == "" {
		h.writeError(w, http.StatusBadRequest, "tenant is required")
		return
	}

	stats, err := h.store.Stats(r.Context(), tenantID)
	if err != nil {
		h.writeRetrievalError(w, err)
		return
	}

	categories := stats.Categories
	if categories == nil {
		categories = []string{}
	}
	h.writeJSON(w, http.StatusOK, StatsResponse{
		TenantID:    tenantID,
		TotalSOPs:   stats.DocumentCount,
		TotalChunks: stats.ChunkCount,
		Categories:  categories,
	})
}

// writeRetrievalError maps backend failures to status codes: dependency
// outages are 503, malformed input is 400, everything else is 500.
func (h *Handler) writeRetrievalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, embedding.ErrUnavailable), errors.Is(err, storage.ErrQdrantUnreachable):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, storage.ErrTenantRequired), errors.Is(err, sop.ErrMalformedDocument):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "status", status, "error", message)
	}
	h.writeJSON(w, status, errorResponse{Error: message})
}

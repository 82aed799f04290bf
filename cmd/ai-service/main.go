// Package main provides the SOP retrieval service: HTTP API plus MCP
// tools over a shared retrieval core.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go"

	"github.com/alphora/sop-rag/internal/api"
	"github.com/alphora/sop-rag/internal/chunker"
	"github.com/alphora/sop-rag/internal/classify"
	"github.com/alphora/sop-rag/internal/embedding"
	"github.com/alphora/sop-rag/internal/ingest"
	mcpserver "github.com/alphora/sop-rag/internal/mcp"
	"github.com/alphora/sop-rag/internal/retriever"
	"github.com/alphora/sop-rag/internal/sop"
	"github.com/alphora/sop-rag/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger := slog.Default()
	port := getEnv("PORT", "8000")

	// Initialize embedder (and the OpenAI client, when configured)
	embedder, openaiClient, err := buildEmbedder()
	if err != nil {
		log.Fatalf("failed to create embedder: %v", err)
	}

	// Initialize storage
	store, err := buildStore(ctx, embedder.Dimension())
	if err != nil {
		log.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	// Assemble the retrieval core
	ret := retriever.New(store, embedder)
	var llm *classify.LLM
	if openaiClient != nil {
		llm = classify.NewLLM(openaiClient)
	}
	classifier := classify.NewClassifier(llm, logger)
	pipeline := ingest.NewPipeline(
		chunker.New(chunker.DefaultMaxLength, chunker.DefaultOverlap),
		embedder, store, logger,
	)

	// Seed sample SOPs so a fresh instance is immediately searchable
	if getEnv("SEED_SAMPLES", "true") == "true" {
		for _, tenant := range sop.SampleTenants() {
			if _, err := pipeline.IngestDocuments(ctx, tenant, sop.SampleDocuments(tenant)); err != nil {
				log.Fatalf("failed to seed sample SOPs for %s: %v", tenant, err)
			}
		}
	}

	// HTTP API + MCP on one mux
	mux := http.NewServeMux()
	api.NewHandler(ret, classifier, pipeline, store, logger).Register(mux)

	server := mcpserver.NewServer(&mcpserver.Config{
		Retriever:  ret,
		Store:      store,
		Classifier: classifier,
	})
	mux.Handle("/mcp", server.HTTPHandler())
	mux.Handle("/", mcpserver.NewLandingHandler())

	// Check if running in stdio mode (local MCP clients) or HTTP mode
	if getEnv("MCP_STDIO", "false") == "true" {
		// Keep the HTTP endpoints available in the background
		go func() {
			addr := "0.0.0.0:" + port
			log.Printf("Starting HTTP server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("HTTP server error: %v", err)
			}
		}()

		log.Println("Starting SOP RAG MCP server (stdio mode)...")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
		return
	}

	addr := "0.0.0.0:" + port
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Starting HTTP server on %s (API at /rag, MCP at /mcp, health at /health)", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server error: %v", err)
	}
}

// buildEmbedder selects the embedding backend from EMBEDDER: "openai"
// (the default when OPENAI_API_KEY is set) or "hashing" (deterministic,
// offline). The OpenAI client is returned too so the LLM classifier can
// share it.
func buildEmbedder() (embedding.Embedder, *openai.Client, error) {
	mode := getEnv("EMBEDDER", "")
	if mode == "" {
		if os.Getenv("OPENAI_API_KEY") != "" {
			mode = "openai"
		} else {
			mode = "hashing"
		}
	}

	switch mode {
	case "openai":
		embedder, err := embedding.NewOpenAI(0)
		if err != nil {
			return nil, nil, err
		}
		return embedder, embedder.Client(), nil
	case "hashing":
		log.Println("Using deterministic hashing embedder (no OpenAI key)")
		return embedding.NewHashing(embedding.Dimension), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown EMBEDDER %q (want openai or hashing)", mode)
	}
}

// buildStore selects the vector store from STORE: "memory" (default) or
// "qdrant".
func buildStore(ctx context.Context, dimension int) (storage.Store, error) {
	switch mode := getEnv("STORE", "memory"); mode {
	case "memory":
		return storage.NewMemory(dimension), nil
	case "qdrant":
		store, err := storage.NewQdrant(getEnv("QDRANT_HOST", "localhost"), getEnvInt("QDRANT_PORT", 6334))
		if err != nil {
			return nil, err
		}
		if err := store.EnsureCollection(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown STORE %q (want memory or qdrant)", mode)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

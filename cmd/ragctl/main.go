// Package main provides the ragctl CLI for managing the SOP corpus in Qdrant.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alphora/sop-rag/internal/chunker"
	"github.com/alphora/sop-rag/internal/embedding"
	"github.com/alphora/sop-rag/internal/ingest"
	"github.com/alphora/sop-rag/internal/retriever"
	"github.com/alphora/sop-rag/internal/sop"
	"github.com/alphora/sop-rag/internal/storage"
)

var (
	flagTenant    string
	flagFile      string
	flagCategory  string
	flagTopK      int
	flagThreshold float64
	flagTitle     string
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "SOP corpus management tool",
	Long:  "CLI tool for managing tenant SOP corpora in Qdrant: seeding, ingestion, search, and statistics",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Ingest the built-in sample SOPs",
	Long: `Ingests the built-in sample SOP documents.

Without --tenant, seeds every sample tenant.

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (optional; hashing embedder used without it)`,
	RunE: runSeed,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest SOP documents from a JSON file",
	Long: `Reads a JSON array of SOP documents and ingests them for one tenant.

Each document has the shape:
  {"title": "...", "content": "...", "category": "...", "tags": [...]}`,
	RunE: runIngest,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search a tenant's SOPs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics for a tenant",
	RunE:  runStats,
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete one document's chunks for a tenant",
	RunE:  runDelete,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the whole SOP collection across all tenants",
	Long:  "Drops every stored chunk for every tenant. Use before a full re-ingest.",
	RunE:  runReset,
}

func init() {
	seedCmd.Flags().StringVar(&flagTenant, "tenant", "", "tenant to seed (default: all sample tenants)")

	ingestCmd.Flags().StringVar(&flagTenant, "tenant", "", "tenant that owns the documents (required)")
	ingestCmd.Flags().StringVarP(&flagFile, "file", "f", "", "JSON file with an array of documents (required)")
	ingestCmd.MarkFlagRequired("tenant")
	ingestCmd.MarkFlagRequired("file")

	searchCmd.Flags().StringVar(&flagTenant, "tenant", "", "tenant to search (required)")
	searchCmd.Flags().StringVar(&flagCategory, "category", "", "optional category filter")
	searchCmd.Flags().IntVar(&flagTopK, "top-k", retriever.DefaultTopK, "maximum results")
	searchCmd.Flags().Float64Var(&flagThreshold, "threshold", retriever.DefaultThreshold, "minimum similarity")
	searchCmd.MarkFlagRequired("tenant")

	statsCmd.Flags().StringVar(&flagTenant, "tenant", "", "tenant to summarize (required)")
	statsCmd.MarkFlagRequired("tenant")

	deleteCmd.Flags().StringVar(&flagTenant, "tenant", "", "tenant that owns the document (required)")
	deleteCmd.Flags().StringVar(&flagTitle, "title", "", "document title to delete (required)")
	deleteCmd.MarkFlagRequired("tenant")
	deleteCmd.MarkFlagRequired("title")

	rootCmd.AddCommand(seedCmd, ingestCmd, searchCmd, statsCmd, deleteCmd, resetCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect builds the Qdrant store and the embedder the commands share.
func connect(ctx context.Context) (*storage.Qdrant, embedding.Embedder, error) {
	qdrantHost := getEnv("QDRANT_HOST", "localhost")
	qdrantPort := getEnvInt("QDRANT_PORT", 6334)

	fmt.Printf("Connecting to Qdrant at %s:%d...\n", qdrantHost, qdrantPort)
	store, err := storage.NewQdrant(qdrantHost, qdrantPort)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	if err := store.EnsureCollection(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	var embedder embedding.Embedder
	if os.Getenv("OPENAI_API_KEY") != "" {
		openaiEmbedder, err := embedding.NewOpenAI(0)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		embedder = openaiEmbedder
	} else {
		fmt.Println("No OPENAI_API_KEY set, using deterministic hashing embedder")
		embedder = embedding.NewHashing(embedding.Dimension)
	}

	return store, embedder, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	store, embedder, err := connect(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	tenants := sop.SampleTenants()
	if flagTenant != "" {
		tenants = []string{flagTenant}
	}

	pipeline := ingest.NewPipeline(
		chunker.New(chunker.DefaultMaxLength, chunker.DefaultOverlap),
		embedder, store, slog.Default(),
	)

	for _, tenant := range tenants {
		docs := sop.SampleDocuments(tenant)
		if len(docs) == 0 {
			return fmt.Errorf("no sample documents for tenant %q", tenant)
		}
		report, err := pipeline.IngestDocuments(ctx, tenant, docs)
		if err != nil {
			return fmt.Errorf("seeding %s failed: %w", tenant, err)
		}
		printReport(tenant, report)
	}

	fmt.Printf("\nTotal time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	raw, err := os.ReadFile(flagFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", flagFile, err)
	}
	var docs []sop.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return fmt.Errorf("failed to parse %s: %w", flagFile, err)
	}

	store, embedder, err := connect(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline := ingest.NewPipeline(
		chunker.New(chunker.DefaultMaxLength, chunker.DefaultOverlap),
		embedder, store, slog.Default(),
	)

	report, err := pipeline.IngestDocuments(ctx, flagTenant, docs)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	printReport(flagTenant, report)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := args[0]
	for _, arg := range args[1:] {
		query += " " + arg
	}

	store, embedder, err := connect(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := retriever.New(store, embedder).Search(ctx, query, flagTenant, retriever.Options{
		TopK:      flagTopK,
		Threshold: flagThreshold,
		Category:  flagCategory,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("\nNo matching SOPs found.")
		return nil
	}

	fmt.Println()
	for i, result := range results {
		fmt.Printf("%d. %s [%s] (similarity %.3f, chunk %d)\n",
			i+1, result.Title, result.Category, result.Similarity, result.ChunkIndex)
		fmt.Printf("   %s\n\n", result.Content)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(ctx, flagTenant)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	fmt.Println()
	fmt.Printf("Tenant:     %s\n", flagTenant)
	fmt.Printf("Documents:  %d\n", stats.DocumentCount)
	fmt.Printf("Chunks:     %d\n", stats.ChunkCount)
	fmt.Printf("Categories: %v\n", stats.Categories)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.DeleteDocument(ctx, flagTenant, flagTitle)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Printf("Removed %d chunks of %q for tenant %s\n", removed, flagTitle, flagTenant)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println("Clearing collection...")
	if err := store.ClearCollection(ctx); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	fmt.Println("Collection cleared")
	return nil
}

func printReport(tenant string, report *ingest.Report) {
	fmt.Println()
	fmt.Printf("Ingestion complete for %s\n", tenant)
	fmt.Printf("  Documents: %d/%d\n", report.Succeeded, report.TotalDocuments)
	fmt.Printf("  Chunks: %d\n", report.TotalChunks)
	fmt.Printf("  Duration: %s\n", report.Duration.Round(time.Millisecond))

	if len(report.Failed) > 0 {
		fmt.Println("Failed documents:")
		for _, failed := range report.Failed {
			fmt.Printf("  - %s: %s\n", failed.Title, failed.Reason)
		}
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

package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Qdrant is the index-accelerated store backed by a Qdrant collection with
// a cosine-distance HNSW index. Its results are re-sorted with the same
// deterministic tie-break as the Memory baseline so both backends rank
// identically.
type Qdrant struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewQdrant creates a Qdrant-backed store with health validation.
// It performs a health check with retry on startup and fails fast if the
// server is unreachable.
func NewQdrant(host string, port int) (*Qdrant, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &Qdrant{
		client: client,
		host:   host,
		port:   port,
	}

	ctx := context.Background()
	if err := store.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry performs a health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *Qdrant) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, exponentialBackoff)
}

// Health performs a single health check against Qdrant.
func (s *Qdrant) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the chunk collection if it does not exist:
// VectorDimension-sized vectors with cosine distance, plus keyword payload
// indexes for the filterable fields. Idempotent.
func (s *Qdrant) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}

	return nil
}

// createPayloadIndexes creates keyword indexes for the filterable fields.
// Without these, tenant and category filtering degrades to a full scan.
func (s *Qdrant) createPayloadIndexes(ctx context.Context) error {
	fields := []string{
		"tenant_id", // every query filters on tenant
		"category",  // hybrid search pre-filter
		"title",     // document deletion and stats
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}

	return nil
}

// ClearCollection deletes all points by dropping and recreating the
// collection. Useful for re-seeding scenarios.
func (s *Qdrant) ClearCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, CollectionName); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *Qdrant) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Put persists a single chunk and returns its id.
func (s *Qdrant) Put(ctx context.Context, chunk *Chunk) (string, error) {
	if err := s.PutBatch(ctx, []*Chunk{chunk}); err != nil {
		return "", err
	}
	return chunk.ID, nil
}

// PutBatch stores chunks in upsert batches of 100 with retry. Every chunk
// is validated before anything is written, and each point upsert is atomic
// on the server, so a reader never observes a chunk without its embedding.
func (s *Qdrant) PutBatch(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if chunk.TenantID == "" {
			return fmt.Errorf("chunk %d: %w", i, ErrTenantRequired)
		}
		if len(chunk.Embedding) != VectorDimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), VectorDimension)
		}
		if chunk.ID == "" {
			chunk.ID = uuid.New().String()
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = time.Now().UTC()
		}
	}

	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		batch := chunks[i:end]

		points := make([]*qdrant.PointStruct, len(batch))
		for j, chunk := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(chunk.ID),
				Vectors: qdrant.NewVectors(chunk.Embedding...),
				Payload: qdrant.NewValueMap(chunkPayload(chunk)),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// upsertWithRetry performs an upsert with exponential backoff.
func (s *Qdrant) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// QueryByTenant performs a filtered vector search scoped to one tenant.
// Qdrant's cosine score is the similarity directly; results are re-sorted
// locally for the deterministic tie-break.
func (s *Qdrant) QueryByTenant(ctx context.Context, tenantID string, queryEmbedding []float32, topK int, category string) ([]ScoredChunk, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if len(queryEmbedding) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(queryEmbedding), VectorDimension)
	}
	if topK <= 0 {
		return []ScoredChunk{}, nil
	}

	must := []*qdrant.Condition{
		qdrant.NewMatch("tenant_id", tenantID),
	}
	if category != "" {
		must = append(must, qdrant.NewMatch("category", category))
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter:         &qdrant.Filter{Must: must},
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}

	scored := make([]ScoredChunk, 0, len(results))
	for _, result := range results {
		scored = append(scored, ScoredChunk{
			Chunk:      payloadToChunk(result.Id.GetUuid(), result.Payload),
			Similarity: float64(result.Score),
		})
	}

	sortScored(scored)
	return scored, nil
}

// Stats scrolls the tenant's chunks and aggregates distinct titles and
// categories. Only the fields needed for aggregation are fetched.
func (s *Qdrant) Stats(ctx context.Context, tenantID string) (*TenantStats, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("tenant_id", tenantID),
		},
	}

	titles := make(map[string]bool)
	categories := make(map[string]bool)
	chunkCount := 0

	var offset *qdrant.PointId
	batchSize := uint32(256)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter:         filter,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("title", "category"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll chunks: %w", err)
		}

		for _, result := range results {
			chunkCount++
			if title := result.Payload["title"].GetStringValue(); title != "" {
				titles[title] = true
			}
			if category := result.Payload["category"].GetStringValue(); category != "" {
				categories[category] = true
			}
		}

		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	stats := &TenantStats{
		DocumentCount: len(titles),
		ChunkCount:    chunkCount,
		Categories:    sortedKeys(categories),
	}
	return stats, nil
}

// DeleteDocument removes every chunk of the named document for the tenant
// and returns the number removed.
func (s *Qdrant) DeleteDocument(ctx context.Context, tenantID, title string) (int, error) {
	if tenantID == "" {
		return 0, ErrTenantRequired
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("tenant_id", tenantID),
			qdrant.NewMatch("title", title),
		},
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: CollectionName,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks for deletion: %w", err)
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", err)
	}

	return int(count), nil
}

// chunkPayload builds the point payload for a chunk.
func chunkPayload(chunk *Chunk) map[string]any {
	tags := make([]any, len(chunk.Tags))
	for i, tag := range chunk.Tags {
		tags[i] = tag
	}

	metadata := chunk.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return map[string]any{
		"tenant_id":   chunk.TenantID,
		"title":       chunk.Title,
		"category":    chunk.Category,
		"chunk_index": chunk.ChunkIndex,
		"content":     chunk.Content,
		"tags":        tags,
		"metadata":    metadata,
		"created_at":  chunk.CreatedAt.Format(time.RFC3339),
	}
}

// payloadToChunk rebuilds a chunk from a point payload. The embedding is
// not returned by search and is left nil.
func payloadToChunk(id string, payload map[string]*qdrant.Value) *Chunk {
	createdAt, err := time.Parse(time.RFC3339, payload["created_at"].GetStringValue())
	if err != nil {
		createdAt = time.Time{}
	}

	var tags []string
	if list := payload["tags"].GetListValue(); list != nil {
		for _, val := range list.Values {
			tags = append(tags, val.GetStringValue())
		}
	}

	var metadata map[string]any
	if structVal := payload["metadata"].GetStructValue(); structVal != nil {
		metadata = make(map[string]any, len(structVal.Fields))
		for key, val := range structVal.Fields {
			metadata[key] = valueToAny(val)
		}
	}

	return &Chunk{
		ID:         id,
		TenantID:   payload["tenant_id"].GetStringValue(),
		Title:      payload["title"].GetStringValue(),
		Category:   payload["category"].GetStringValue(),
		ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
		Content:    payload["content"].GetStringValue(),
		Tags:       tags,
		Metadata:   metadata,
		CreatedAt:  createdAt,
	}
}

// valueToAny converts a qdrant payload value to a plain Go value.
func valueToAny(val *qdrant.Value) any {
	switch kind := val.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := make([]any, 0, len(kind.ListValue.Values))
		for _, item := range kind.ListValue.Values {
			items = append(items, valueToAny(item))
		}
		return items
	case *qdrant.Value_StructValue:
		fields := make(map[string]any, len(kind.StructValue.Fields))
		for key, field := range kind.StructValue.Fields {
			fields[key] = valueToAny(field)
		}
		return fields
	default:
		return nil
	}
}

// sortedKeys returns the map's keys in ascending order.
func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

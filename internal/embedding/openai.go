package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// Model is the OpenAI model used for generating embeddings.
	Model = "text-embedding-3-small"

	// Dimension is the vector size requested from the model. The model is
	// asked to truncate its output to 384 components so that the store's
	// index dimension and the embedder always agree.
	Dimension = 384

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute
	// rate limits. OpenAI supports up to 2048 texts per batch, but smaller
	// batches reduce TPM pressure.
	DefaultBatchSize = 500
)

// OpenAI generates embeddings with OpenAI's text-embedding-3-small model,
// batching requests and retrying rate-limit errors with exponential backoff.
type OpenAI struct {
	client    *openai.Client
	batchSize int
}

// NewOpenAI creates an OpenAI embedder with an optional batch size. If
// batchSize is 0, DefaultBatchSize is used. It reads OPENAI_API_KEY from
// the environment and returns an error if not set.
func NewOpenAI(batchSize int) (*OpenAI, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	// openai-go reads OPENAI_API_KEY from the environment
	client := openai.NewClient()

	return &OpenAI{
		client:    &client,
		batchSize: batchSize,
	}, nil
}

// Client returns the underlying OpenAI client so other components, such as
// the LLM classifier, can share the connection.
func (e *OpenAI) Client() *openai.Client {
	return e.client
}

// Dimension reports the fixed output vector length.
func (e *OpenAI) Dimension() int { return Dimension }

// Embed returns the embedding for a single text.
func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for the given texts, in input order.
// Transport failures are reported as ErrUnavailable so callers can treat
// the capability as down rather than the data as bad.
func (e *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var all [][]float32

	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		batch := texts[i:end]

		vectors, err := e.embedBatchWithRetry(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d-%d: %v", ErrUnavailable, i, end, err)
		}
		all = append(all, vectors...)
	}

	return all, nil
}

// embedBatchWithRetry generates embeddings for a single batch.
// Rate limit errors (HTTP 429) are retried with exponential backoff;
// other errors are permanent and fail immediately.
func (e *OpenAI) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model:      Model,
			Dimensions: openai.Int(Dimension),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err // retry with backoff
			}
			return backoff.Permanent(err)
		}

		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("got %d embeddings for %d texts", len(resp.Data), len(texts)))
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return vectors, err
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// The API returns float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}

package service

import (
	"context"
	"fmt"

	"github.com/agrivoice/agrivoice/internal/domain"
)

// DefaultEmbedBatchSize is the most segments sent to the embedding service in
// one call, matching the service's batch-size limit.
const DefaultEmbedBatchSize = 48

// BatchEmbeddingClient defines the interface for batched embedding generation
type BatchEmbeddingClient interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// TokenAcquirer defines the interface to the shared embedding-call budget.
// Acquire blocks until tokens are available; it fails only on cancellation.
type TokenAcquirer interface {
	Acquire(ctx context.Context, n int) error
}

// Embedder converts ordered text segments into index-aligned vectors. Every
// upstream batch call debits one token from the process-wide reservoir, so
// all call sites share one budget.
type Embedder struct {
	client    BatchEmbeddingClient
	limiter   TokenAcquirer
	batchSize int
}

// NewEmbedder creates an Embedder with the default batch size.
func NewEmbedder(client BatchEmbeddingClient, limiter TokenAcquirer) *Embedder {
	return NewEmbedderWithBatchSize(client, limiter, DefaultEmbedBatchSize)
}

// NewEmbedderWithBatchSize creates an Embedder with an explicit batch size.
func NewEmbedderWithBatchSize(client BatchEmbeddingClient, limiter TokenAcquirer, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &Embedder{
		client:    client,
		limiter:   limiter,
		batchSize: batchSize,
	}
}

// EmbedSegments embeds the given segments and returns vectors index-aligned
// with the input. The call is all-or-nothing: if any batch fails, vectors
// from earlier batches are discarded and the error carries the failed batch
// index, so callers never store misaligned records.
func (e *Embedder) EmbedSegments(ctx context.Context, segments []string) ([][]float32, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(segments))
	for batchIndex, start := 0, 0; start < len(segments); batchIndex, start = batchIndex+1, start+e.batchSize {
		end := start + e.batchSize
		if end > len(segments) {
			end = len(segments)
		}
		batch := segments[start:end]

		if err := e.limiter.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("failed to acquire embedding budget: %w", err)
		}

		batchVectors, err := e.client.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, &domain.EmbeddingError{BatchIndex: batchIndex, Err: err}
		}
		if len(batchVectors) != len(batch) {
			return nil, &domain.EmbeddingError{
				BatchIndex: batchIndex,
				Err:        fmt.Errorf("got %d vectors for %d segments", len(batchVectors), len(batch)),
			}
		}

		vectors = append(vectors, batchVectors...)
	}

	return vectors, nil
}

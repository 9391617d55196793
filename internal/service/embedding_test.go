package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/agrivoice/agrivoice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBatchEmbeddingClient is a mock implementation of BatchEmbeddingClient
type MockBatchEmbeddingClient struct {
	mock.Mock
}

func (m *MockBatchEmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// countingLimiter records Acquire calls without ever blocking.
type countingLimiter struct {
	acquired int
	err      error
}

func (l *countingLimiter) Acquire(ctx context.Context, n int) error {
	if l.err != nil {
		return l.err
	}
	l.acquired += n
	return nil
}

func numberedSegments(n int) []string {
	segments := make([]string, n)
	for i := range segments {
		segments[i] = fmt.Sprintf("segment-%d", i)
	}
	return segments
}

func alignedVectors(texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i)}
	}
	return vectors
}

func TestEmbedder_EmptyInput(t *testing.T) {
	limiter := &countingLimiter{}
	embedder := NewEmbedder(new(MockBatchEmbeddingClient), limiter)

	vectors, err := embedder.EmbedSegments(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Zero(t, limiter.acquired, "no batch means no token spent")
}

func TestEmbedder_SingleBatch(t *testing.T) {
	client := new(MockBatchEmbeddingClient)
	limiter := &countingLimiter{}
	embedder := NewEmbedder(client, limiter)

	segments := numberedSegments(3)
	client.On("EmbedBatch", mock.Anything, segments).Return([][]float32{{0.1}, {0.2}, {0.3}}, nil)

	vectors, err := embedder.EmbedSegments(context.Background(), segments)

	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{0.2}, vectors[1])
	assert.Equal(t, 1, limiter.acquired)
	client.AssertExpectations(t)
}

func TestEmbedder_SplitsIntoBatchesOf48(t *testing.T) {
	client := new(MockBatchEmbeddingClient)
	limiter := &countingLimiter{}
	embedder := NewEmbedder(client, limiter)

	// 100 segments split as 48 + 48 + 4.
	segments := numberedSegments(100)
	client.On("EmbedBatch", mock.Anything, segments[0:48]).Return(alignedVectors(segments[0:48]), nil)
	client.On("EmbedBatch", mock.Anything, segments[48:96]).Return(alignedVectors(segments[48:96]), nil)
	client.On("EmbedBatch", mock.Anything, segments[96:100]).Return(alignedVectors(segments[96:100]), nil)

	vectors, err := embedder.EmbedSegments(context.Background(), segments)

	require.NoError(t, err)
	assert.Len(t, vectors, 100)
	assert.Equal(t, 3, limiter.acquired, "one token per batch call")
	client.AssertNumberOfCalls(t, "EmbedBatch", 3)
}

func TestEmbedder_IndexAlignmentAcrossBatches(t *testing.T) {
	client := new(MockBatchEmbeddingClient)
	embedder := NewEmbedderWithBatchSize(client, &countingLimiter{}, 2)

	segments := numberedSegments(5)
	client.On("EmbedBatch", mock.Anything, segments[0:2]).Return([][]float32{{0}, {1}}, nil)
	client.On("EmbedBatch", mock.Anything, segments[2:4]).Return([][]float32{{2}, {3}}, nil)
	client.On("EmbedBatch", mock.Anything, segments[4:5]).Return([][]float32{{4}}, nil)

	vectors, err := embedder.EmbedSegments(context.Background(), segments)

	require.NoError(t, err)
	for i, v := range vectors {
		assert.Equal(t, []float32{float32(i)}, v)
	}
}

func TestEmbedder_BatchFailureCarriesIndexAndDiscardsAll(t *testing.T) {
	client := new(MockBatchEmbeddingClient)
	embedder := NewEmbedderWithBatchSize(client, &countingLimiter{}, 2)

	segments := numberedSegments(6)
	serviceErr := errors.New("upstream 500")
	client.On("EmbedBatch", mock.Anything, segments[0:2]).Return([][]float32{{0}, {1}}, nil)
	client.On("EmbedBatch", mock.Anything, segments[2:4]).Return(nil, serviceErr)

	vectors, err := embedder.EmbedSegments(context.Background(), segments)

	assert.Nil(t, vectors, "earlier batches must be discarded")
	var embErr *domain.EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, 1, embErr.BatchIndex)
	assert.ErrorIs(t, err, serviceErr)
	client.AssertNotCalled(t, "EmbedBatch", mock.Anything, segments[4:6])
}

func TestEmbedder_MisalignedBatchIsError(t *testing.T) {
	client := new(MockBatchEmbeddingClient)
	embedder := NewEmbedder(client, &countingLimiter{})

	segments := numberedSegments(2)
	client.On("EmbedBatch", mock.Anything, segments).Return([][]float32{{0}}, nil)

	vectors, err := embedder.EmbedSegments(context.Background(), segments)

	assert.Nil(t, vectors)
	var embErr *domain.EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, 0, embErr.BatchIndex)
}

func TestEmbedder_LimiterCancellation(t *testing.T) {
	client := new(MockBatchEmbeddingClient)
	limiter := &countingLimiter{err: context.Canceled}
	embedder := NewEmbedder(client, limiter)

	vectors, err := embedder.EmbedSegments(context.Background(), numberedSegments(1))

	assert.Nil(t, vectors)
	assert.ErrorIs(t, err, context.Canceled)
	client.AssertNotCalled(t, "EmbedBatch", mock.Anything, mock.Anything)
}

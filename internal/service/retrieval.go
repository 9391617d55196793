package service

import (
	"context"
	"log"

	"github.com/agrivoice/agrivoice/internal/domain"
	"github.com/agrivoice/agrivoice/internal/telemetry"
)

const (
	// RetrievalTopK is the most similarity hits returned per query.
	RetrievalTopK = 10
	// RetrievalCandidatePool bounds the approximate search's candidate pool.
	RetrievalCandidatePool = 100
)

// QueryEmbedder defines the interface for embedding a retrieval query
type QueryEmbedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SimilaritySearcher defines the vector-search interface of the chunk store
type SimilaritySearcher interface {
	SearchBySources(ctx context.Context, queryVector []float32, allowedSources []string, topK, candidatePool int) ([]domain.ScoredChunk, error)
}

// RetrievalService merges freshly scraped content with similarity hits over
// already-indexed sources into one grounding-content list.
type RetrievalService struct {
	embedder QueryEmbedder
	store    SimilaritySearcher
}

func NewRetrievalService(embedder QueryEmbedder, store SimilaritySearcher) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		store:    store,
	}
}

// RetrieveInput carries one retrieval request. FreshContent holds text
// fetched during this call, in discovery order; KnownSources scopes the
// vector-search branch to exactly the already-indexed sources.
type RetrieveInput struct {
	Query        string
	FreshContent []domain.ExtractResult
	KnownSources []string
}

// Retrieve returns fresh content first (discovery order), then similarity
// hits in descending score order. It never fails: embedding or search errors
// degrade to whatever the fresh branch produced, and an empty result is a
// valid outcome the caller must handle as "insufficient verified
// information", not as an error.
func (s *RetrievalService) Retrieve(ctx context.Context, input RetrieveInput) []domain.ContentItem {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Retrieve", telemetry.SpanAttributes{
		Query:     input.Query,
		Operation: "retrieve",
	})
	defer span.End()

	items := make([]domain.ContentItem, 0, len(input.FreshContent)+RetrievalTopK)
	for _, fresh := range input.FreshContent {
		items = append(items, domain.ContentItem{
			Source:  fresh.Source,
			Content: fresh.Content,
		})
	}

	if len(input.KnownSources) == 0 || input.Query == "" {
		return items
	}

	queryVector, err := s.embedder.GenerateEmbedding(ctx, input.Query)
	if err != nil {
		log.Printf("retrieve: query embedding failed, returning fresh content only: %v", err)
		return items
	}

	hits, err := s.store.SearchBySources(ctx, queryVector, input.KnownSources, RetrievalTopK, RetrievalCandidatePool)
	if err != nil {
		log.Printf("retrieve: similarity search failed, returning fresh content only: %v", err)
		return items
	}

	for _, hit := range hits {
		items = append(items, domain.ContentItem{
			Source:  hit.Chunk.Source,
			Content: hit.Chunk.Content,
			Score:   hit.Score,
		})
	}

	return items
}

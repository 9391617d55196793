package service

import (
	"context"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/agrivoice/agrivoice/internal/domain"
	"github.com/agrivoice/agrivoice/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

// DefaultSearchResults is how many web-search hits are considered per query.
const DefaultSearchResults = 5

// maxSearchableQueryLen caps the query sent to the search collaborator.
const maxSearchableQueryLen = 200

// WebSearcher defines the interface to the web search collaborator
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.SearchHit, error)
}

// ContentExtractor defines the interface to the content extraction collaborator
type ContentExtractor interface {
	Extract(ctx context.Context, source string) (domain.ExtractResult, error)
}

// SourcePartitioner splits candidate sources into already-indexed and unknown
type SourcePartitioner interface {
	Partition(ctx context.Context, sources []string) (known, unknown []string, err error)
}

// IngestionEnqueuer queues background ingestion for discovered sources
type IngestionEnqueuer interface {
	Enqueue(ctx context.Context, query string, sources []string) (jobID string, err error)
}

// ContentRetriever merges fresh and indexed content for a query
type ContentRetriever interface {
	Retrieve(ctx context.Context, input RetrieveInput) []domain.ContentItem
}

// GroundingService is the synchronous entry point for the agent layer: it
// searches the web for a query, extracts content from sources not yet
// indexed, queues them for background ingestion, and vector-retrieves over
// the already-indexed ones.
type GroundingService struct {
	searcher         WebSearcher
	extractor        ContentExtractor
	partitioner      SourcePartitioner
	queue            IngestionEnqueuer
	retriever        ContentRetriever
	maxResults       int
	fetchConcurrency int
}

func NewGroundingService(
	searcher WebSearcher,
	extractor ContentExtractor,
	partitioner SourcePartitioner,
	queue IngestionEnqueuer,
	retriever ContentRetriever,
) *GroundingService {
	return &GroundingService{
		searcher:         searcher,
		extractor:        extractor,
		partitioner:      partitioner,
		queue:            queue,
		retriever:        retriever,
		maxResults:       DefaultSearchResults,
		fetchConcurrency: DefaultFetchConcurrency,
	}
}

// GroundingResult is the outcome of one Ground call. Grounded is false when
// no verified content could be gathered; the caller must surface that state
// instead of fabricating an answer.
type GroundingResult struct {
	Query         string               `json:"query"`
	Items         []domain.ContentItem `json:"items"`
	WebsitesFound int                  `json:"websites_found"`
	FreshScraped  int                  `json:"fresh_scraped"`
	KnownSources  int                  `json:"known_sources"`
	JobID         string               `json:"job_id,omitempty"`
	Grounded      bool                 `json:"grounded"`
}

// Ground gathers grounding content for a query. Collaborator failures are
// logged and degrade the result; the only error returned is an empty query.
func (s *GroundingService) Ground(ctx context.Context, query string) (*GroundingResult, error) {
	searchable := searchableQuery(query)
	if searchable == "" {
		return nil, domain.ErrEmptyQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "GroundingService.Ground", telemetry.SpanAttributes{
		Query:     searchable,
		Operation: "ground",
	})
	defer span.End()

	result := &GroundingResult{
		Query: searchable,
		Items: []domain.ContentItem{},
	}

	hits, err := s.searcher.Search(ctx, searchable, s.maxResults)
	if err != nil {
		log.Printf("ground: web search failed for %q: %v", searchable, err)
		return result, nil
	}

	sources := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.URL != "" {
			sources = append(sources, hit.URL)
		}
	}
	result.WebsitesFound = len(sources)
	if len(sources) == 0 {
		return result, nil
	}

	known, unknown, err := s.partitioner.Partition(ctx, sources)
	if err != nil {
		log.Printf("ground: partitioning sources failed for %q: %v", searchable, err)
		return result, nil
	}
	result.KnownSources = len(known)

	fresh := s.extractFresh(ctx, searchable, unknown)
	result.FreshScraped = len(fresh)

	if len(unknown) > 0 {
		jobID, err := s.queue.Enqueue(ctx, searchable, unknown)
		if err != nil {
			log.Printf("ground: enqueueing ingestion failed for %q: %v", searchable, err)
		} else {
			result.JobID = jobID
		}
	}

	result.Items = s.retriever.Retrieve(ctx, RetrieveInput{
		Query:        searchable,
		FreshContent: fresh,
		KnownSources: known,
	})
	result.Grounded = len(result.Items) > 0

	return result, nil
}

// extractFresh extracts content for the unknown sources concurrently under
// the fetch bound, keeping discovery order and dropping per-source failures.
func (s *GroundingService) extractFresh(ctx context.Context, query string, sources []string) []domain.ExtractResult {
	if len(sources) == 0 {
		return nil
	}

	results := make([]*domain.ExtractResult, len(sources))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)
	for i, source := range sources {
		g.Go(func() error {
			extracted, err := s.extractor.Extract(gctx, source)
			if err != nil {
				log.Printf("ground: extracting %s failed: %v", source, err)
				return nil
			}
			mu.Lock()
			results[i] = &extracted
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	fresh := make([]domain.ExtractResult, 0, len(sources))
	for _, r := range results {
		if r != nil && strings.TrimSpace(r.Content) != "" {
			fresh = append(fresh, *r)
		}
	}
	return fresh
}

var nonSearchable = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)

// searchableQuery normalizes a raw farmer query into a form the search
// collaborator accepts: collapsed whitespace, no special characters, bounded
// length.
func searchableQuery(query string) string {
	clean := strings.Join(strings.Fields(query), " ")
	clean = nonSearchable.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(clean)

	runes := []rune(clean)
	if len(runes) > maxSearchableQueryLen {
		clean = string(runes[:maxSearchableQueryLen])
	}
	return clean
}

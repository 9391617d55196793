package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/agrivoice/agrivoice/internal/domain"
	"github.com/agrivoice/agrivoice/internal/telemetry"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchConcurrency bounds in-flight fetches so ingestion does not
// overwhelm source websites or the extraction service.
const DefaultFetchConcurrency = 5

// Fetcher obtains the raw text of one source. Any non-nil error is treated as
// a per-source failure.
type Fetcher func(ctx context.Context, source string) (string, error)

// ChunkStore defines the persistence interface for chunk records
type ChunkStore interface {
	ExistingSources(ctx context.Context, sources []string) (map[string]struct{}, error)
	Insert(ctx context.Context, chunks []domain.Chunk) error
	EnsureVectorIndex(ctx context.Context) error
}

// SegmentEmbedder defines the interface for embedding ordered segments
type SegmentEmbedder interface {
	EmbedSegments(ctx context.Context, segments []string) ([][]float32, error)
}

// Archiver stores raw fetched documents before chunking. Optional; archive
// failures never abort ingestion.
type Archiver interface {
	ArchiveRawDocument(ctx context.Context, source, content string) error
}

// IngestionCoordinator partitions candidate sources into already-indexed and
// new, and drives fetch, chunk, embed and store for the new ones. Ingestion
// is idempotent at the source level: a known source is never re-fetched or
// re-embedded.
type IngestionCoordinator struct {
	store            ChunkStore
	embedder         SegmentEmbedder
	archiver         Archiver
	chunkCfg         ChunkConfig
	fetchConcurrency int
}

// NewIngestionCoordinator creates an IngestionCoordinator with default
// chunking parameters and fetch concurrency.
func NewIngestionCoordinator(store ChunkStore, embedder SegmentEmbedder) *IngestionCoordinator {
	return &IngestionCoordinator{
		store:            store,
		embedder:         embedder,
		chunkCfg:         DefaultChunkConfig(),
		fetchConcurrency: DefaultFetchConcurrency,
	}
}

// WithArchiver enables raw-document archiving.
func (c *IngestionCoordinator) WithArchiver(a Archiver) *IngestionCoordinator {
	c.archiver = a
	return c
}

// WithChunkConfig overrides the chunking parameters.
func (c *IngestionCoordinator) WithChunkConfig(cfg ChunkConfig) *IngestionCoordinator {
	c.chunkCfg = cfg
	return c
}

// WithFetchConcurrency overrides the fetch concurrency bound.
func (c *IngestionCoordinator) WithFetchConcurrency(n int) *IngestionCoordinator {
	if n > 0 {
		c.fetchConcurrency = n
	}
	return c
}

// IngestReport summarizes one Ingest call.
type IngestReport struct {
	Known    []string         // sources skipped because they were already indexed
	Ingested []string         // sources fetched, embedded and stored this call
	Skipped  []string         // sources whose fetched text produced no segments
	Failed   map[string]error // per-source failures
}

// Partition splits candidate sources into already-indexed and unknown. The
// partition is recomputed from the store on every call, never cached.
func (c *IngestionCoordinator) Partition(ctx context.Context, sources []string) (known, unknown []string, err error) {
	sources = dedupeSources(sources)
	if len(sources) == 0 {
		return nil, nil, nil
	}

	existing, err := c.store.ExistingSources(ctx, sources)
	if err != nil {
		return nil, nil, err
	}

	for _, s := range sources {
		if _, ok := existing[s]; ok {
			known = append(known, s)
		} else {
			unknown = append(unknown, s)
		}
	}
	return known, unknown, nil
}

// Ingest fetches, chunks, embeds and stores every candidate source that is
// not yet indexed. One source's failure never aborts its siblings. The error
// return covers only the partition query; per-source failures are reported
// in the IngestReport.
func (c *IngestionCoordinator) Ingest(ctx context.Context, sources []string, fetch Fetcher) (*IngestReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionCoordinator.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	known, unknown, err := c.Partition(ctx, sources)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	report := &IngestReport{
		Known:  known,
		Failed: make(map[string]error),
	}
	if len(unknown) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fetchConcurrency)

	for _, source := range unknown {
		g.Go(func() error {
			stored, err := c.ingestSource(gctx, source, fetch)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				log.Printf("ingest: source %s failed: %v", source, err)
				telemetry.CaptureError(ctx, err)
				report.Failed[source] = err
			case !stored:
				report.Skipped = append(report.Skipped, source)
			default:
				report.Ingested = append(report.Ingested, source)
			}
			return nil
		})
	}
	// Worker funcs never return errors; Wait only joins them.
	_ = g.Wait()

	if len(report.Ingested) > 0 {
		if err := c.store.EnsureVectorIndex(ctx); err != nil {
			log.Printf("ingest: vector index creation failed (retrieval degrades to empty): %v", err)
		}
	}

	return report, nil
}

// ingestSource runs the fetch, chunk, embed, store pipeline for one source.
// Segment order is preserved end-to-end: segments, vectors and stored records
// stay index-aligned. Returns false when the fetched text yields no segments.
func (c *IngestionCoordinator) ingestSource(ctx context.Context, source string, fetch Fetcher) (bool, error) {
	text, err := fetch(ctx, source)
	if err != nil {
		return false, &domain.FetchError{Source: source, Err: err}
	}

	if c.archiver != nil {
		if err := c.archiver.ArchiveRawDocument(ctx, source, text); err != nil {
			log.Printf("ingest: archiving %s failed: %v", source, err)
		}
	}

	segments := SplitText(text, c.chunkCfg)
	if len(segments) == 0 {
		return false, nil
	}

	vectors, err := c.embedder.EmbedSegments(ctx, segments)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	chunks := make([]domain.Chunk, 0, len(segments))
	for i, segment := range segments {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.NewString(),
			Source:     source,
			ChunkIndex: i,
			Content:    segment,
			Embedding:  vectors[i],
			CreatedAt:  now,
		})
	}

	if err := c.store.Insert(ctx, chunks); err != nil {
		return false, err
	}

	return true, nil
}

// dedupeSources drops duplicates while preserving first-seen order.
func dedupeSources(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

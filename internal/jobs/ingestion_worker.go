package jobs

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/agrivoice/agrivoice/internal/domain"
	"github.com/agrivoice/agrivoice/internal/service"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3

	// claimBatchSize bounds how many jobs one poll picks up
	claimBatchSize = 10
)

// IngestionJobRepository defines the interface for ingestion job persistence
type IngestionJobRepository interface {
	// ClaimPending retrieves and claims pending ingestion jobs
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestionJob, error)

	// UpdateStatus updates the status of an ingestion job
	UpdateStatus(ctx context.Context, jobID string, status domain.IngestionJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, jobID string) error
}

// Ingester runs the fetch, chunk, embed, store pipeline for a job's sources
type Ingester interface {
	Ingest(ctx context.Context, sources []string, fetch service.Fetcher) (*service.IngestReport, error)
}

// IngestionWorker drains the ingestion job queue: each job carries the
// candidate sources discovered for one query, and processing a job indexes
// every source that is not yet known.
type IngestionWorker struct {
	repo     IngestionJobRepository
	ingester Ingester
	fetch    service.Fetcher
}

// NewIngestionWorker creates a new IngestionWorker instance
func NewIngestionWorker(repo IngestionJobRepository, ingester Ingester, fetch service.Fetcher) *IngestionWorker {
	return &IngestionWorker{
		repo:     repo,
		ingester: ingester,
		fetch:    fetch,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestionWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending ingestion jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IngestionWorker) processJob(ctx context.Context, job *domain.IngestionJob) error {
	log.Printf("Processing job %s: %d sources for query %q", job.ID, len(job.Sources), job.Query)

	report, err := w.ingester.Ingest(ctx, job.Sources, w.fetch)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	// Per-source failures stay in the report; the job as a whole only fails
	// when not a single source could be resolved.
	if len(report.Failed) > 0 && len(report.Ingested) == 0 && len(report.Known) == 0 && len(report.Skipped) == 0 {
		return w.handleJobFailure(ctx, job, fmt.Errorf("all %d sources failed: %s", len(report.Failed), summarizeFailures(report.Failed)))
	}

	errMsg := ""
	if len(report.Failed) > 0 {
		errMsg = fmt.Sprintf("partial: %s", summarizeFailures(report.Failed))
	}
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestionJobStatusCompleted, errMsg); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed: %d ingested, %d known, %d skipped, %d failed",
		job.ID, len(report.Ingested), len(report.Known), len(report.Skipped), len(report.Failed))
	return nil
}

// handleJobFailure handles a failed job with retry logic
func (w *IngestionWorker) handleJobFailure(ctx context.Context, job *domain.IngestionJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestionJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestionJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}
	return nil
}

func summarizeFailures(failed map[string]error) string {
	sources := make([]string, 0, len(failed))
	for source := range failed {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	parts := make([]string, 0, len(sources))
	for _, source := range sources {
		parts = append(parts, fmt.Sprintf("%s: %v", source, failed[source]))
	}
	return strings.Join(parts, "; ")
}

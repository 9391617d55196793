package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/agrivoice/agrivoice/internal/domain"
	"github.com/google/uuid"
)

// JobCreator persists new ingestion jobs
type JobCreator interface {
	Create(ctx context.Context, job *domain.IngestionJob) error
}

// Queue enqueues ingestion jobs for the background worker. Enqueue is the
// fire-and-forget half of the pipeline: the answer path calls it and moves
// on without waiting for processing.
type Queue struct {
	repo JobCreator
}

func NewQueue(repo JobCreator) *Queue {
	return &Queue{repo: repo}
}

// Enqueue creates a pending job for the given sources and returns its ID.
func (q *Queue) Enqueue(ctx context.Context, query string, sources []string) (string, error) {
	job := domain.NewIngestionJob(uuid.NewString(), query, sources, time.Now().UTC())
	if err := q.repo.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to enqueue ingestion job: %w", err)
	}
	return job.ID, nil
}

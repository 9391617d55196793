package domain

import (
	"fmt"
	"time"
)

// IngestionJobStatus represents the status of an ingestion job
type IngestionJobStatus string

const (
	IngestionJobStatusPending    IngestionJobStatus = "pending"
	IngestionJobStatusProcessing IngestionJobStatus = "processing"
	IngestionJobStatusCompleted  IngestionJobStatus = "completed"
	IngestionJobStatusFailed     IngestionJobStatus = "failed"
)

// IngestionJob represents a queued request to fetch, chunk, embed and store a
// set of candidate sources discovered for a query. Jobs decouple ingestion
// from the answer path: the trigger enqueues and returns immediately.
type IngestionJob struct {
	ID          string
	Query       string // the query that discovered the sources, kept for diagnostics
	Sources     []string
	Status      IngestionJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewIngestionJob creates a pending IngestionJob for the given candidate sources.
func NewIngestionJob(id, query string, sources []string, createdAt time.Time) *IngestionJob {
	return &IngestionJob{
		ID:        id,
		Query:     query,
		Sources:   sources,
		Status:    IngestionJobStatusPending,
		CreatedAt: createdAt,
	}
}

// ValidateIngestionJob validates an IngestionJob instance
func ValidateIngestionJob(j *IngestionJob) error {
	if j == nil {
		return fmt.Errorf("ingestion job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("ingestion job ID is required")
	}

	if len(j.Sources) == 0 {
		return fmt.Errorf("ingestion job must carry at least one source")
	}

	if !isValidIngestionJobStatus(j.Status) {
		return fmt.Errorf("ingestion job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("ingestion job Retries cannot be negative")
	}

	return nil
}

// isValidIngestionJobStatus checks if an IngestionJobStatus is valid
func isValidIngestionJobStatus(s IngestionJobStatus) bool {
	switch s {
	case IngestionJobStatusPending, IngestionJobStatusProcessing,
		IngestionJobStatusCompleted, IngestionJobStatusFailed:
		return true
	}
	return false
}

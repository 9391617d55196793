package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestionJobStatusConstants(t *testing.T) {
	tests := []struct {
		name     string
		status   IngestionJobStatus
		expected string
	}{
		{"Pending", IngestionJobStatusPending, "pending"},
		{"Processing", IngestionJobStatusProcessing, "processing"},
		{"Completed", IngestionJobStatusCompleted, "completed"},
		{"Failed", IngestionJobStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestNewIngestionJob(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	sources := []string{"https://agmarknet.gov.in/prices", "https://pmkisan.gov.in"}

	job := NewIngestionJob("job-1", "onion mandi price", sources, createdAt)

	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, "onion mandi price", job.Query)
	assert.Equal(t, sources, job.Sources)
	assert.Equal(t, IngestionJobStatusPending, job.Status)
	assert.Equal(t, int32(0), job.Retries)
	assert.Equal(t, createdAt, job.CreatedAt)
	assert.Nil(t, job.ProcessedAt)
}

func TestValidateIngestionJob(t *testing.T) {
	job := NewIngestionJob("job-1", "wheat msp", []string{"https://agricoop.gov.in/msp"}, time.Now().UTC())
	require.NoError(t, ValidateIngestionJob(job))
}

func TestValidateIngestionJob_Invalid(t *testing.T) {
	base := func() *IngestionJob {
		return NewIngestionJob("job-1", "wheat msp", []string{"https://agricoop.gov.in/msp"}, time.Now().UTC())
	}

	tests := []struct {
		name   string
		mutate func(*IngestionJob)
		errMsg string
	}{
		{"NoID", func(j *IngestionJob) { j.ID = "" }, "ID is required"},
		{"NoSources", func(j *IngestionJob) { j.Sources = nil }, "at least one source"},
		{"BadStatus", func(j *IngestionJob) { j.Status = "queued" }, "Status is invalid"},
		{"NegativeRetries", func(j *IngestionJob) { j.Retries = -1 }, "cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := base()
			tt.mutate(job)
			err := ValidateIngestionJob(job)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("Nil", func(t *testing.T) {
		require.Error(t, ValidateIngestionJob(nil))
	})
}

func TestValidateIngestionJob_AllStatusesValid(t *testing.T) {
	for _, status := range []IngestionJobStatus{
		IngestionJobStatusPending,
		IngestionJobStatusProcessing,
		IngestionJobStatusCompleted,
		IngestionJobStatusFailed,
	} {
		job := NewIngestionJob("job-1", "", []string{"https://agricoop.gov.in/msp"}, time.Now().UTC())
		job.Status = status
		assert.NoError(t, ValidateIngestionJob(job), string(status))
	}
}

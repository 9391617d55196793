package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/agrivoice/agrivoice/internal/api"
	"github.com/agrivoice/agrivoice/internal/domain"
	"github.com/go-chi/chi/v5"
)

// Partitioner splits candidate sources into known and unknown
type Partitioner interface {
	Partition(ctx context.Context, sources []string) (known, unknown []string, err error)
}

// Enqueuer queues background ingestion jobs
type Enqueuer interface {
	Enqueue(ctx context.Context, query string, sources []string) (string, error)
}

// JobGetter looks up ingestion jobs by ID
type JobGetter interface {
	GetByID(ctx context.Context, id string) (*domain.IngestionJob, error)
}

type SourceHandler struct {
	partitioner Partitioner
	queue       Enqueuer
	jobs        JobGetter
	sources     SourceLister
}

func NewSourceHandler(partitioner Partitioner, queue Enqueuer, jobs JobGetter, sources SourceLister) *SourceHandler {
	return &SourceHandler{
		partitioner: partitioner,
		queue:       queue,
		jobs:        jobs,
		sources:     sources,
	}
}

type DiscoveredRequest struct {
	Query   string   `json:"query"`
	Sources []string `json:"sources"`
}

type DiscoveredResponse struct {
	Known   []string `json:"known"`
	Unknown []string `json:"unknown"`
	JobID   string   `json:"job_id,omitempty"`
}

// Discovered handles POST /sources/discovered: candidate sources found
// outside the grounding flow are deduplicated against the store and the
// unknown ones queued for ingestion. The response returns as soon as the job
// row exists.
func (h *SourceHandler) Discovered(w http.ResponseWriter, r *http.Request) {
	var req DiscoveredRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Sources) == 0 {
		api.HandleError(w, domain.ErrNoCandidateSources)
		return
	}

	known, unknown, err := h.partitioner.Partition(r.Context(), req.Sources)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := DiscoveredResponse{Known: known, Unknown: unknown}
	if len(unknown) > 0 {
		jobID, err := h.queue.Enqueue(r.Context(), req.Query, unknown)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		resp.JobID = jobID
	}

	api.Success(w, http.StatusAccepted, resp)
}

type JobResponse struct {
	ID          string   `json:"id"`
	Query       string   `json:"query"`
	Sources     []string `json:"sources"`
	Status      string   `json:"status"`
	Retries     int32    `json:"retries"`
	Error       string   `json:"error,omitempty"`
	CreatedAt   string   `json:"created_at"`
	ProcessedAt string   `json:"processed_at,omitempty"`
}

// GetJob handles GET /jobs/{id}: ingestion job status lookup.
func (h *SourceHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.jobs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrIngestionJobNotFound) {
			api.Error(w, http.StatusNotFound, "ingestion job not found")
			return
		}
		api.HandleError(w, err)
		return
	}

	resp := JobResponse{
		ID:        job.ID,
		Query:     job.Query,
		Sources:   job.Sources,
		Status:    string(job.Status),
		Retries:   job.Retries,
		Error:     job.Error,
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.ProcessedAt != nil {
		resp.ProcessedAt = job.ProcessedAt.UTC().Format(time.RFC3339)
	}

	api.Success(w, http.StatusOK, resp)
}

type SourcesResponse struct {
	Sources []domain.SourceSummary `json:"sources"`
}

// List handles GET /sources: every indexed source with its chunk count.
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.sources.ListSources(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SourcesResponse{Sources: summaries})
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/agrivoice/agrivoice/internal/api"
	"github.com/agrivoice/agrivoice/internal/domain"
	"github.com/agrivoice/agrivoice/internal/service"
)

// GroundingOrchestrator runs the full search-partition-scrape-retrieve flow
type GroundingOrchestrator interface {
	Ground(ctx context.Context, query string) (*service.GroundingResult, error)
}

// Retriever merges fresh and indexed content for a query
type Retriever interface {
	Retrieve(ctx context.Context, input service.RetrieveInput) []domain.ContentItem
}

// SourceLister enumerates indexed sources
type SourceLister interface {
	ListSources(ctx context.Context) ([]domain.SourceSummary, error)
}

type GroundingHandler struct {
	grounder  GroundingOrchestrator
	retriever Retriever
	sources   SourceLister
}

func NewGroundingHandler(grounder GroundingOrchestrator, retriever Retriever, sources SourceLister) *GroundingHandler {
	return &GroundingHandler{
		grounder:  grounder,
		retriever: retriever,
		sources:   sources,
	}
}

type GroundRequest struct {
	Query string `json:"query"`
}

// Ground handles POST /ground: gather verified content for a farmer query.
func (h *GroundingHandler) Ground(w http.ResponseWriter, r *http.Request) {
	var req GroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.grounder.Ground(r.Context(), req.Query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

type RetrieveRequest struct {
	Query   string   `json:"query"`
	Sources []string `json:"sources,omitempty"`
}

type RetrieveResponse struct {
	Query string               `json:"query"`
	Items []domain.ContentItem `json:"items"`
}

// Retrieve handles POST /retrieve: similarity search over indexed content
// without the web-search branch. When no sources are given the search spans
// every indexed source.
func (h *GroundingHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	sources := req.Sources
	if len(sources) == 0 {
		summaries, err := h.sources.ListSources(r.Context())
		if err != nil {
			api.HandleError(w, err)
			return
		}
		for _, s := range summaries {
			sources = append(sources, s.Source)
		}
	}

	items := h.retriever.Retrieve(r.Context(), service.RetrieveInput{
		Query:        req.Query,
		KnownSources: sources,
	})

	api.Success(w, http.StatusOK, RetrieveResponse{Query: req.Query, Items: items})
}

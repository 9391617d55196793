package server

import (
	"net/http"

	"github.com/agrivoice/agrivoice/internal/api"
	"github.com/agrivoice/agrivoice/internal/api/handlers"
	"github.com/agrivoice/agrivoice/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	GroundingHandler *handlers.GroundingHandler
	SourceHandler    *handlers.SourceHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/ground", cfg.GroundingHandler.Ground)
	r.Post("/retrieve", cfg.GroundingHandler.Retrieve)

	r.Route("/sources", func(r chi.Router) {
		r.Get("/", cfg.SourceHandler.List)
		r.Post("/discovered", cfg.SourceHandler.Discovered)
	})

	r.Get("/jobs/{id}", cfg.SourceHandler.GetJob)

	return r
}

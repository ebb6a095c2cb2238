package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/morphovis/internal/morphservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// runHook, if non-nil, is called after a manual sync finishes.
func NewRouter(svc *morphservice.Service, authEnabled bool, token string, sseHandler http.Handler, runHook RunHook) chi.Router {
	h := NewHandler(svc, runHook)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Library CRUD.
	r.Get("/morphologies", h.ListMorphologies)
	r.Post("/morphologies", h.CreateMorphology)
	r.Post("/morphologies/upload", h.UploadMorphology)
	r.Post("/morphologies/move", h.MoveMorphology)
	r.Get("/morphologies/*", h.GetMorphology)
	r.Put("/morphologies/*", h.UpdateMorphology)
	r.Delete("/morphologies/*", h.DeleteMorphology)

	// Analysis.
	r.Get("/kernels", h.Kernels)
	r.Get("/kernels/{variable}/*", h.RunKernel)
	r.Get("/distributions", h.Distributions)
	r.Get("/distributions/{variable}/*", h.Distribution)
	r.Post("/analyze", h.Analyze)
	r.Get("/rank", h.Rank)

	// Skeleton reconstruction.
	r.Get("/skeleton/*", h.Skeleton)

	// Runs.
	r.Post("/sync", h.Sync)
	r.Get("/runs", h.Runs)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

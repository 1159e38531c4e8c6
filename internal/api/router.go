package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/openlms/edflex-connector/internal/middleware"
)

// maxRequestBody bounds ops API request bodies (settings and import lists).
const maxRequestBody = 1 << 20

// settingsBodyAllowlist keeps the client secret out of debug request logs.
var settingsBodyAllowlist = []string{
	"base_url", "client_id", "catalog_id", "sync_interval_seconds",
	"course_id", "section", "content_ids",
}

// Router builds the ops API router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.MaxBodySize(maxRequestBody))
	r.Use(middleware.HTTPLogging(h.logger, settingsBodyAllowlist))

	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(h.TokenAuthMiddleware)

		r.Get("/settings", h.handleGetSettings)
		r.Put("/settings", h.handlePutSettings)
		r.Post("/sync", h.handleSync)
		r.Get("/contents", h.handleContents)
		r.Get("/catalogs", h.handleCatalogs)
		r.Post("/import", h.handleImport)
		r.Delete("/contents", h.handleDeleteContents)
	})

	return r
}

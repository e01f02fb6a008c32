// Package api serves the pipeline over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/erazemk/bookbin/internal/enrich"
	"github.com/erazemk/bookbin/internal/events"
	"github.com/erazemk/bookbin/internal/export"
	"github.com/erazemk/bookbin/internal/intake"
	"github.com/erazemk/bookbin/internal/store"
)

// Deps are the services behind the API.
type Deps struct {
	Store     store.Repository
	Recorder  *intake.Recorder
	Enricher  *enrich.Enricher
	Runner    *enrich.Runner
	Exporter  *export.Exporter
	Publisher events.Publisher
	// ExportDir is where POST /api/exports writes files.
	ExportDir string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware)

	scans := &ScansHandler{Store: d.Store, Recorder: d.Recorder}
	enrichment := &EnrichmentHandler{Enricher: d.Enricher, Runner: d.Runner}
	exports := &ExportsHandler{Exporter: d.Exporter, Dir: d.ExportDir}
	sales := &SalesHandler{Store: d.Store, Publisher: d.Publisher}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health(d.Store))

		r.Post("/scans", scans.Create)
		r.Get("/scans", scans.List)
		r.Delete("/scans/{id}", scans.Delete)
		r.Get("/inventory/{identifier}", scans.Inventory)
		r.Get("/covers/{identifier}", scans.Cover)

		r.Post("/identifiers/{identifier}/enrich", enrichment.EnrichOne)
		r.Post("/enrichment", enrichment.Start)
		r.Get("/enrichment/{job}", enrichment.Get)
		r.Delete("/enrichment/{job}", enrichment.Cancel)

		r.Get("/exports/preview", exports.Preview)
		r.Get("/exports/ready", exports.Ready)
		r.Post("/exports", exports.Run)

		r.Post("/sales", sales.Import)
	})
	return r
}

func health(s store.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Ping(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "record store unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/bookbin/internal/enrich"
)

// EnrichmentHandler handles enrichment endpoints.
type EnrichmentHandler struct {
	Enricher *enrich.Enricher
	Runner   *enrich.Runner
}

// EnrichOne handles POST /api/identifiers/{identifier}/enrich.
func (h *EnrichmentHandler) EnrichOne(w http.ResponseWriter, r *http.Request) {
	res := h.Enricher.EnrichIdentifier(r.Context(), chi.URLParam(r, "identifier"))
	switch {
	case res.Rejected:
		jsonResponse(w, http.StatusBadRequest, res)
	case res.Busy:
		jsonResponse(w, http.StatusConflict, res)
	case !res.Success:
		jsonResponse(w, http.StatusUnprocessableEntity, res)
	default:
		jsonResponse(w, http.StatusOK, res)
	}
}

// Start handles POST /api/enrichment.
func (h *EnrichmentHandler) Start(w http.ResponseWriter, r *http.Request) {
	job, err := h.Runner.Start()
	if errors.Is(err, enrich.ErrJobRunning) {
		jsonError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to start enrichment")
		return
	}
	w.Header().Set("Location", "/api/enrichment/"+job.ID)
	jsonResponse(w, http.StatusAccepted, job)
}

// Get handles GET /api/enrichment/{job}.
func (h *EnrichmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, ok := h.Runner.Get(chi.URLParam(r, "job"))
	if !ok {
		jsonError(w, http.StatusNotFound, "job not found")
		return
	}
	jsonResponse(w, http.StatusOK, job)
}

// Cancel handles DELETE /api/enrichment/{job}.
func (h *EnrichmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "job")
	if !h.Runner.Cancel(id) {
		jsonError(w, http.StatusNotFound, "job not found")
		return
	}
	job, _ := h.Runner.Get(id)
	jsonResponse(w, http.StatusAccepted, job)
}

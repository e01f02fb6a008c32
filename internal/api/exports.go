package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/bookbin/internal/export"
)

// ExportsHandler handles export endpoints.
type ExportsHandler struct {
	Exporter *export.Exporter
	Dir      string
}

// parseDate reads the date query parameter. Empty means no filter,
// "today" means the current local day.
func parseDate(r *http.Request) (*time.Time, bool) {
	v := r.URL.Query().Get("date")
	switch v {
	case "":
		return nil, true
	case "today":
		now := time.Now()
		return &now, true
	}
	d, err := time.ParseInLocation(time.DateOnly, v, time.Local)
	if err != nil {
		return nil, false
	}
	return &d, true
}

// Preview handles GET /api/exports/preview?date=&limit=.
func (h *ExportsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "date must be YYYY-MM-DD or today")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	groups, err := h.Exporter.Preview(r.Context(), date, limit)
	if err != nil {
		slog.Error("previewing export", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to preview export")
		return
	}
	if groups == nil {
		groups = []export.Group{}
	}
	jsonResponse(w, http.StatusOK, groups)
}

// Ready handles GET /api/exports/ready?date=.
func (h *ExportsHandler) Ready(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "date must be YYYY-MM-DD or today")
		return
	}
	rd, err := h.Exporter.Ready(r.Context(), date)
	if err != nil {
		slog.Error("checking export readiness", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to check export")
		return
	}
	jsonResponse(w, http.StatusOK, rd)
}

// Run handles POST /api/exports?date=.
func (h *ExportsHandler) Run(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "date must be YYYY-MM-DD or today")
		return
	}
	res := h.Exporter.Run(r.Context(), export.Options{Date: date, Dir: h.Dir})
	switch {
	case res.Outcome == export.OutcomeFailed:
		jsonResponse(w, http.StatusInternalServerError, res)
	case res.Outcome == export.OutcomeExported:
		jsonResponse(w, http.StatusCreated, res)
	default:
		jsonResponse(w, http.StatusOK, res)
	}
}

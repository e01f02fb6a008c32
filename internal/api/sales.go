package api

import (
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/erazemk/bookbin/internal/events"
	"github.com/erazemk/bookbin/internal/ingest"
	"github.com/erazemk/bookbin/internal/model"
	"github.com/erazemk/bookbin/internal/store"
)

// maxReportSize bounds uploaded sales reports.
const maxReportSize = 10 << 20

// SalesHandler handles sales report imports.
type SalesHandler struct {
	Store     store.Repository
	Publisher events.Publisher
}

type salesResponse struct {
	ingest.SalesResult
	RowErrors []ingest.RowError `json:"row_errors,omitempty"`
}

// Import handles POST /api/sales. The body is either a JSON list of sales
// or a CSV report (Content-Type text/csv).
func (h *SalesHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReportSize)

	var (
		sales   []model.Sale
		rowErrs []ingest.RowError
	)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "text/csv" {
		var err error
		sales, rowErrs, err = ingest.ReadSales(r.Body, time.Now())
		if err != nil {
			jsonError(w, http.StatusBadRequest, fmt.Sprintf("reading report: %v", err))
			return
		}
	} else if err := decodeJSON(r, &sales); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for i, s := range sales {
		if s.Identifier == "" || s.Quantity <= 0 {
			jsonError(w, http.StatusBadRequest, fmt.Sprintf("sale %d: identifier and positive quantity are required", i+1))
			return
		}
	}

	res := ingest.ApplySales(r.Context(), h.Store, h.Publisher, sales)
	jsonResponse(w, http.StatusOK, salesResponse{SalesResult: res, RowErrors: rowErrs})
}

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/bookbin/internal/intake"
	"github.com/erazemk/bookbin/internal/model"
	"github.com/erazemk/bookbin/internal/store"
)

// ScansHandler handles scan, inventory and cover endpoints.
type ScansHandler struct {
	Store    store.Repository
	Recorder *intake.Recorder
}

type createScanRequest struct {
	intake.Input
	// Line is a raw scanner line, e.g. "C001 9781234567890 USED". It
	// replaces the other fields when set.
	Line string `json:"line,omitempty"`
}

// Create handles POST /api/scans.
func (h *ScansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createScanRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := req.Input
	if req.Line != "" {
		parsed, err := h.Recorder.ParseLine(req.Line)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		parsed.Dimensions = req.Dimensions
		if req.Quantity > 0 {
			parsed.Quantity = req.Quantity
		}
		in = parsed
	}

	scan, err := h.Recorder.Record(r.Context(), in)
	switch {
	case errors.Is(err, intake.ErrBinConflict):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, intake.ErrInvalidIdentifier), errors.Is(err, intake.ErrInvalidBin),
		errors.Is(err, intake.ErrInvalidCondition), errors.Is(err, intake.ErrInvalidQuantity):
		jsonError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		slog.Error("recording scan", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to record scan")
	default:
		jsonResponse(w, http.StatusCreated, scan)
	}
}

// List handles GET /api/scans?identifier=.
func (h *ScansHandler) List(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")
	if identifier == "" {
		jsonError(w, http.StatusBadRequest, "identifier is required")
		return
	}
	scans, err := h.Store.GetScans(r.Context(), identifier)
	if err != nil {
		slog.Error("listing scans", "identifier", identifier, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list scans")
		return
	}
	if scans == nil {
		scans = []model.ScanRecord{}
	}
	jsonResponse(w, http.StatusOK, scans)
}

// Delete handles DELETE /api/scans/{id}.
func (h *ScansHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid scan id")
		return
	}
	err = h.Store.DeleteScan(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		slog.Error("deleting scan", "id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete scan")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Inventory handles GET /api/inventory/{identifier}.
func (h *ScansHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	inv, err := h.Store.GetInventory(r.Context(), identifier)
	if err != nil {
		slog.Error("getting inventory", "identifier", identifier, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get inventory")
		return
	}
	if inv == nil {
		jsonError(w, http.StatusNotFound, "identifier not in manifest")
		return
	}
	jsonResponse(w, http.StatusOK, inv)
}

// Cover handles GET /api/covers/{identifier}.
func (h *ScansHandler) Cover(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	data, mime, err := h.Store.GetCover(r.Context(), identifier)
	if err != nil {
		slog.Error("getting cover", "identifier", identifier, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get cover")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no cover")
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/prudhvinik1/kaucjaflow/internal/models"
	"github.com/prudhvinik1/kaucjaflow/internal/services"
)

func (h *Handler) PushEvents(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var req models.PushRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY")
		return
	}

	result, err := h.events.Push(r.Context(), claims, req.Events)
	if errors.Is(err, services.ErrNoValidEvents) {
		writeJSON(w, http.StatusBadRequest, result)
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PullEvents lists events in [from, to) given as epoch milliseconds. Without
// both parameters it returns the current UTC day.
func (h *Handler) PullEvents(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var window models.DayWindow
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from != "" || to != "" {
		var errFrom, errTo error
		window.From, errFrom = strconv.ParseInt(from, 10, 64)
		window.To, errTo = strconv.ParseInt(to, 10, 64)
		if errFrom != nil || errTo != nil {
			writeError(w, http.StatusBadRequest, "INVALID_RANGE")
			return
		}
	}

	events, err := h.events.Pull(r.Context(), claims.ShopID, window)
	if errors.Is(err, services.ErrInvalidRange) {
		writeError(w, http.StatusBadRequest, "INVALID_RANGE")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.PullResponse{OK: true, Events: events})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	day, summary, err := h.events.Summary(r.Context(), claims.ShopID, r.URL.Query().Get("date"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "day": day, "summary": summary})
}

func (h *Handler) ByDay(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	q := r.URL.Query()

	rows, totals, err := h.events.ByDay(r.Context(), claims.ShopID, q.Get("from"), q.Get("to"))
	if errors.Is(err, services.ErrInvalidRange) {
		writeError(w, http.StatusBadRequest, "INVALID_RANGE")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "rows": rows, "totals": totals})
}

// Report exports the daily summary. Only CSV is produced.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	q := r.URL.Query()

	if format := q.Get("format"); format != "" && format != "csv" {
		writeError(w, http.StatusBadRequest, "UNSUPPORTED_FORMAT")
		return
	}

	day, summary, err := h.events.Summary(r.Context(), claims.ShopID, q.Get("date"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+services.ReportFilename(day)+`"`)
	w.Header().Set("Cache-Control", "no-store")
	if err := services.WriteCSVReport(w, summary); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write report", "error", err)
	}
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pennywise/ledger/apperr"
)

// BalanceSheet — GET /api/ledgers/{ledgerId}/reports/balance-sheet?as_of=RFC3339.
func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, apperr.Validation("invalid as_of timestamp %q", raw))
			return
		}
		asOf = parsed
	}
	sheet, err := h.reports.BalanceSheet(r.Context(), ledgerID, asOf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

// IncomeStatement — GET /api/ledgers/{ledgerId}/reports/income-statement?start=RFC3339&end=RFC3339.
func (h *Handler) IncomeStatement(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	startRaw, endRaw := q.Get("start"), q.Get("end")
	if startRaw == "" || endRaw == "" {
		writeError(w, apperr.Validation("start and end query parameters are required"))
		return
	}
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		writeError(w, apperr.Validation("invalid start timestamp %q", startRaw))
		return
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		writeError(w, apperr.Validation("invalid end timestamp %q", endRaw))
		return
	}
	statement, err := h.reports.IncomeStatement(r.Context(), ledgerID, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statement)
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pennywise/ledger/scheduler"
)

// CreateRecurringTemplate — POST /api/ledgers/{ledgerId}/recurring-templates.
func (h *Handler) CreateRecurringTemplate(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req CreateRecurringTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := h.recurring.Create(r.Context(), scheduler.CreateInput{
		LedgerID:      ledgerID,
		Name:          req.Name,
		Type:          req.Type,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Description:   req.Description,
		Frequency:     req.Frequency,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListRecurringTemplates — GET /api/ledgers/{ledgerId}/recurring-templates.
func (h *Handler) ListRecurringTemplates(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	templates, err := h.recurring.List(r.Context(), ledgerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// ListDueRecurringTemplates — GET /api/recurring-templates/due. Lists the
// due templates across every ledger.
func (h *Handler) ListDueRecurringTemplates(w http.ResponseWriter, r *http.Request) {
	due, err := h.recurring.ListDue(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, due)
}

// ApproveRecurringTemplate — POST /api/recurring-templates/{id}/approve.
func (h *Handler) ApproveRecurringTemplate(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	templateID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.recurring.Approve(r.Context(), actor, templateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// DeleteRecurringTemplate — DELETE /api/recurring-templates/{id}.
func (h *Handler) DeleteRecurringTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.recurring.Delete(r.Context(), templateID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pennywise/ledger/scheduler"
)

// CreateInstallmentPlan — POST /api/ledgers/{ledgerId}/installment-plans.
// Creation eagerly posts every installment transaction (scheduler.InstallmentEngine.Create).
func (h *Handler) CreateInstallmentPlan(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req CreateInstallmentPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.installment.Create(r.Context(), actor, scheduler.CreateInstallmentInput{
		LedgerID:         ledgerID,
		Name:             req.Name,
		Type:             req.Type,
		TotalAmount:      req.TotalAmount,
		InstallmentCount: req.InstallmentCount,
		StartDate:        req.StartDate,
		FromAccountID:    req.FromAccountID,
		ToAccountID:      req.ToAccountID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListInstallmentPlans — GET /api/ledgers/{ledgerId}/installment-plans.
func (h *Handler) ListInstallmentPlans(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	plans, err := h.installment.List(r.Context(), ledgerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// GetInstallmentPlan — GET /api/installment-plans/{id}.
func (h *Handler) GetInstallmentPlan(w http.ResponseWriter, r *http.Request) {
	planID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.installment.Get(r.Context(), planID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteInstallmentPlan — DELETE /api/installment-plans/{id}. Removes
// the plan row only; its already-posted installment transactions
// remain (consistent with transaction.Engine.Delete being the only way
// to remove a posting).
func (h *Handler) DeleteInstallmentPlan(w http.ResponseWriter, r *http.Request) {
	planID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.installment.Delete(r.Context(), planID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

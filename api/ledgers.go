package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pennywise/ledger/money"
)

// CreateLedger — POST /api/ledgers. The authenticated caller becomes
// the ledger's owner.
func (h *Handler) CreateLedger(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req CreateLedgerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	initial := money.Zero
	if req.InitialBalance != nil {
		initial = *req.InitialBalance
	}
	l, err := h.ledgers.Create(r.Context(), actor, req.Name, req.Currency, initial)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// ListLedgers — GET /api/ledgers, scoped to the authenticated caller.
func (h *Handler) ListLedgers(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ledgers, err := h.ledgers.ListForUser(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledgers)
}

// GetLedger — GET /api/ledgers/{id}.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	l, err := h.ledgers.Get(r.Context(), ledgerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// UpdateLedger — PATCH /api/ledgers/{id}: renames the ledger.
func (h *Handler) UpdateLedger(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req UpdateLedgerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	l, err := h.ledgers.UpdateName(r.Context(), ledgerID, actor, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// DeleteLedger — DELETE /api/ledgers/{id}.
func (h *Handler) DeleteLedger(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.ledgers.Delete(r.Context(), ledgerID, actor); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearTransactions — POST /api/ledgers/{id}/clear-transactions.
func (h *Handler) ClearTransactions(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.ledgers.ClearTransactions(r.Context(), ledgerID, actor); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearAccounts — POST /api/ledgers/{id}/clear-accounts.
func (h *Handler) ClearAccounts(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.ledgers.ClearAccounts(r.Context(), ledgerID, actor); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/transaction"
)

type CreateTransactionTemplateRequest struct {
	Name          string                 `json:"name"`
	Type          domain.TransactionType `json:"type"`
	FromAccountID string                 `json:"from_account_id"`
	ToAccountID   string                 `json:"to_account_id"`
	Amount        money.Amount           `json:"amount"`
	Description   string                 `json:"description"`
	SortOrder     int                    `json:"sort_order"`
}

type ApplyTransactionTemplateRequest struct {
	Amount *money.Amount `json:"amount,omitempty"`
	Date   *time.Time    `json:"date,omitempty"`
}

// CreateTransactionTemplate — POST /api/ledgers/{ledgerId}/templates.
func (h *Handler) CreateTransactionTemplate(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req CreateTransactionTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	fromID, err := parseIDParam(r, req.FromAccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	toID, err := parseIDParam(r, req.ToAccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.tx.CreateTemplate(r.Context(), transaction.CreateTemplateInput{
		LedgerID:      ledgerID,
		Name:          req.Name,
		Type:          req.Type,
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        req.Amount,
		Description:   req.Description,
		SortOrder:     req.SortOrder,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTransactionTemplates — GET /api/ledgers/{ledgerId}/templates.
func (h *Handler) ListTransactionTemplates(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	templates, err := h.tx.ListTemplates(r.Context(), ledgerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// DeleteTransactionTemplate — DELETE /api/templates/{id}.
func (h *Handler) DeleteTransactionTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.tx.DeleteTemplate(r.Context(), templateID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyTransactionTemplate — POST /api/ledgers/{ledgerId}/templates/{id}/apply:
// posts a real transaction from the preset, with optional amount/date overrides.
func (h *Handler) ApplyTransactionTemplate(w http.ResponseWriter, r *http.Request) {
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
	templateID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req ApplyTransactionTemplateRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	date := time.Now().UTC()
	if req.Date != nil {
		date = *req.Date
	}
	t, err := h.tx.ApplyTemplate(r.Context(), actor, ledgerID, templateID, req.Amount, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

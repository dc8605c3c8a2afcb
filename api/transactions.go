package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/transaction"
)

// PostTransaction — POST /api/ledgers/{ledgerId}/transactions.
func (h *Handler) PostTransaction(w http.ResponseWriter, r *http.Request) {
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
	var req PostTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := h.tx.Post(r.Context(), actor, transaction.PostInput{
		LedgerID:      ledgerID,
		Type:          req.Type,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Date:          req.Date,
		Description:   req.Description,
		Notes:         req.Notes,
		TagIDs:        req.TagIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GetTransaction — GET /api/transactions/{id}.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.tx.Get(r.Context(), txID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ListTransactions — GET /api/ledgers/{ledgerId}/transactions with
// cursor pagination and optional account/type/date/search filters.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()

	filter := transaction.ListFilter{
		LedgerID: ledgerID,
		Search:   q.Get("search"),
		Cursor:   q.Get("cursor"),
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Limit = n
		}
	}
	if raw := q.Get("account_id"); raw != "" {
		accID, err := parseIDParam(r, raw)
		if err != nil {
			writeError(w, err)
			return
		}
		filter.AccountID = &accID
	}
	if raw := q.Get("type"); raw != "" {
		t := domain.TransactionType(raw)
		filter.TransactionType = &t
	}
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, apperr.Validation("invalid from timestamp %q", raw))
			return
		}
		filter.FromDate = &parsed
	}
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, apperr.Validation("invalid to timestamp %q", raw))
			return
		}
		filter.ToDate = &parsed
	}

	page, err := h.tx.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// DeleteTransaction — DELETE /api/transactions/{id}.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	txID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.tx.Delete(r.Context(), txID, actor); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pennywise/ledger/apperr"
)

// CreateAccount — POST /api/ledgers/{ledgerId}/accounts.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.accounts.Create(r.Context(), ledgerID, req.Name, req.Type, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ListAccounts — GET /api/ledgers/{ledgerId}/accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	accounts, err := h.accounts.List(r.Context(), ledgerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// GetAccount — GET /api/accounts/{id}.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := h.accounts.Get(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// UpdateAccount — PATCH /api/accounts/{id}: rename, reparent, and/or
// archive, applied in that order when more than one field is set.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req UpdateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var a interface{}
	if req.Name != nil {
		updated, err := h.accounts.Rename(r.Context(), accountID, *req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		a = updated
	}
	if req.ParentID != nil {
		updated, err := h.accounts.Reparent(r.Context(), accountID, *req.ParentID)
		if err != nil {
			writeError(w, err)
			return
		}
		a = updated
	}
	if req.Archive != nil && *req.Archive {
		updated, err := h.accounts.Archive(r.Context(), accountID)
		if err != nil {
			writeError(w, err)
			return
		}
		a = updated
	}
	if a == nil {
		current, err := h.accounts.Get(r.Context(), accountID)
		if err != nil {
			writeError(w, err)
			return
		}
		a = current
	}
	writeJSON(w, http.StatusOK, a)
}

// CheckAccountDeletion — GET /api/accounts/{id}/deletion-check.
func (h *Handler) CheckAccountDeletion(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.accounts.CheckDelete(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DeleteAccount — DELETE /api/accounts/{id}, optionally reassigning its
// transactions to replacement_account_id first.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	accountID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req DeleteAccountRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.ReplacementAccountID != nil {
		if err := h.accounts.DeleteWithReassignment(r.Context(), accountID, *req.ReplacementAccountID, actor); err != nil {
			writeError(w, err)
			return
		}
	} else if err := h.accounts.Delete(r.Context(), accountID, actor); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAccountBalance — GET /api/accounts/{id}/balance?as_of=RFC3339.
func (h *Handler) GetAccountBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseIDParam(r, chi.URLParam(r, "id"))
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
	balance, err := h.accounts.Balance(r.Context(), accountID, asOf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Balance interface{} `json:"balance"`
		AsOf    time.Time   `json:"as_of"`
	}{Balance: balance, AsOf: asOf})
}

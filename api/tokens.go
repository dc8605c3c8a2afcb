package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pennywise/ledger/apperr"
)

// CreateToken — POST /api/auth/tokens. Unauthenticated for the same
// reason CreateUser is: it mints the first token a caller can then use
// as a bearer credential for every other route.
func (h *Handler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserID.IsNil() {
		writeError(w, apperr.Validation("user_id must not be empty"))
		return
	}
	if _, err := h.store.GetUser(r.Context(), req.UserID); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.tokens.Create(r.Context(), req.UserID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Token string `json:"token"`
		ID    string `json:"id"`
		Name  string `json:"name"`
	}{Token: created.Raw, ID: created.Token.ID.String(), Name: created.Token.Name})
}

// ListTokens — GET /api/users/{id}/tokens?include_revoked=true.
func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	uid, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	includeRevoked := r.URL.Query().Get("include_revoked") == "true"
	tokens, err := h.tokens.List(r.Context(), uid, includeRevoked)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

// RevokeToken — DELETE /api/tokens/{id}.
func (h *Handler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	tokenID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.tokens.Revoke(r.Context(), tokenID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pennywise/ledger/apperr"
)

// CreateChannelCode — POST /api/channels/codes. Authenticated: the
// caller is the first-party user who wants to link a chat identity.
func (h *Handler) CreateChannelCode(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req CreateChannelCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	code, err := h.channels.GenerateCode(actor, req.DefaultLedgerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Code string `json:"code"`
	}{Code: code})
}

// VerifyChannelCode — POST /api/channels/verify. Unauthenticated: it is
// called by an anonymous chat-platform adapter on behalf of the
// external identity that typed the code in, not by the first-party user holding a bearer token.
func (h *Handler) VerifyChannelCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyChannelCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Code == "" || req.ExternalUserID == "" {
		writeError(w, apperr.Validation("code and external_user_id must not be empty"))
		return
	}
	binding, err := h.channels.Verify(r.Context(), req.Code, req.Channel, req.ExternalUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, binding)
}

// ListChannelBindings — GET /api/users/{id}/channels.
func (h *Handler) ListChannelBindings(w http.ResponseWriter, r *http.Request) {
	uid, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	bindings, err := h.channels.List(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bindings)
}

// UnbindChannel — DELETE /api/channels/{id}.
func (h *Handler) UnbindChannel(w http.ResponseWriter, r *http.Request) {
	bindingID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.channels.Unbind(r.Context(), bindingID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

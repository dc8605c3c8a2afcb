package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
)

// CreateUser — POST /api/users. Unauthenticated: this is the only way
// to mint the very first user, since there is no password login to
// gate it behind.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" {
		writeError(w, apperr.Validation("email must not be empty"))
		return
	}
	if _, err := h.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, apperr.Conflict("a user with this email already exists"))
		return
	} else if !apperr.IsNotFound(err) {
		writeError(w, err)
		return
	}

	u := domain.User{ID: id.New(), Email: req.Email, CreatedAt: time.Now().UTC()}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// GetUser — GET /api/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	uid, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	u, err := h.store.GetUser(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

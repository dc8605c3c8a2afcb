package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pennywise/ledger/apperr"
)

type ConnectEmailAuthRequest struct {
	Provider     string `json:"provider"`
	RefreshToken string `json:"refresh_token"`
	PDFPassword  string `json:"pdf_password,omitempty"`
}

// ConnectEmailAuth — POST /api/ledgers/{ledgerId}/email-auth. Stores an
// encrypted mailbox credential and arms the daily Gmail-scan cron entry
// for this ledger (the scheduler's Start, called from cmd/ledgerd, loads
// CONNECTED jobs at boot; this handler also registers the entry at once
// via h.sched.RegisterGmailJob when a scheduler is wired).
func (h *Handler) ConnectEmailAuth(w http.ResponseWriter, r *http.Request) {
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
	var req ConnectEmailAuthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Provider == "" {
		writeError(w, apperr.Validation("provider must not be empty"))
		return
	}
	a, err := h.emailAuth.Connect(r.Context(), actor, ledgerID, req.Provider, req.RefreshToken, req.PDFPassword)
	if err != nil {
		writeError(w, err)
		return
	}

	// Start only loads CONNECTED jobs at process boot; a mailbox
	// connected while the process is already running needs its cron
	// entry registered on the spot, or it won't scan until a restart.
	if h.sched != nil {
		job, err := h.emailAuth.Status(r.Context(), ledgerID)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := h.sched.RegisterGmailJob(job); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, a)
}

// GetEmailAuthStatus — GET /api/ledgers/{ledgerId}/email-auth. Reports
// connection status only; neither encrypted secret is ever returned
// (domain.EmailAuthorization's fields carry json:"-").
func (h *Handler) GetEmailAuthStatus(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := h.emailAuth.Status(r.Context(), ledgerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

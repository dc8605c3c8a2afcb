package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/importpipeline"
)

// maxImportUploadBytes bounds the multipart body chi/net-http will
// read before CreatePreview gets a chance to apply its own,
// content-only MaxContentBytes limit.
const maxImportUploadBytes = 16 * 1024 * 1024

// CreatePreview — POST /api/ledgers/{ledgerId}/imports (multipart form:
// "file" field plus "import_type" and optional "bank_code" fields).
// This is the one route that isn't pure JSON — spec.md's import
// pipeline takes a file, and the teacher's stack carries no JSON
// file-upload convention, so this follows the stdlib multipart idiom.
func (h *Handler) CreatePreview(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportUploadBytes)
	if err := r.ParseMultipartForm(maxImportUploadBytes); err != nil {
		writeError(w, apperr.Validation("invalid multipart upload: %s", err.Error()))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.Validation("missing file field"))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, apperr.Validation("read upload: %s", err.Error()))
		return
	}

	preview, err := h.imports.CreatePreview(r.Context(), importpipeline.PreviewInput{
		LedgerID:   ledgerID,
		ImportType: domain.ImportType(r.FormValue("import_type")),
		BankCode:   r.FormValue("bank_code"),
		Content:    content,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, preview)
}

// ExecuteImport — POST /api/ledgers/{ledgerId}/imports/{id}/execute.
func (h *Handler) ExecuteImport(w http.ResponseWriter, r *http.Request) {
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
	sessionID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req ExecuteImportRequest
	if r.ContentLength > 0 {
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			writeError(w, apperr.Validation("invalid request body: %s", err.Error()))
			return
		}
	}

	finalMappings := make(map[int]importpipeline.RowMapping, len(req.FinalMappings))
	for k, v := range req.FinalMappings {
		n, err := strconv.Atoi(k)
		if err != nil {
			writeError(w, apperr.Validation("invalid row number key %q in final_mappings", k))
			return
		}
		finalMappings[n] = importpipeline.RowMapping{FromAccountName: v.FromAccountName, ToAccountName: v.ToAccountName}
	}
	skip := make(map[int]bool, len(req.SkipRowNumbers))
	for _, n := range req.SkipRowNumbers {
		skip[n] = true
	}

	session, err := h.imports.Execute(r.Context(), importpipeline.ExecuteInput{
		SessionID:      sessionID,
		LedgerID:       ledgerID,
		FinalMappings:  finalMappings,
		SkipRowNumbers: skip,
		ActorID:        actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// GetImportSession — GET /api/imports/{id}.
func (h *Handler) GetImportSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseIDParam(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	session, err := h.store.GetImportSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// ListImportSessions — GET /api/ledgers/{ledgerId}/imports.
func (h *Handler) ListImportSessions(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := parseIDParam(r, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	sessions, err := h.store.ListImportSessions(r.Context(), ledgerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

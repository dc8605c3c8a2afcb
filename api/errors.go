/*
errors.go - JSON envelope helpers and apperr.Kind -> HTTP status mapping

The edge never contains business logic (SPEC_FULL.md §4.L); every
handler calls the engine (or store) methods it needs and translates
whatever apperr.Kind they return through statusFor. No error carries a stack
trace into the response body (spec.md §7).
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/pennywise/ledger/apperr"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(apperr.KindOf(err)), ErrorResponse{Error: err.Error()})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbiddenSystem:
		return http.StatusForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindTokenRevoked:
		return http.StatusUnauthorized
	case apperr.KindImportExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message})
}

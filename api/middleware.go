/*
middleware.go - bearer token authentication

There is no password login in this module (spec.md's non-goals exclude
general multi-user auth); a user's first token is minted directly by
POST /api/auth/tokens right after POST /api/users creates the account.
Every other route in server.go runs behind requireAuth, which resolves
the Authorization header through auth.TokenEngine.Validate and stores
the caller's user ID on the request context.
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/auth"
	"github.com/pennywise/ledger/id"
)

type ctxKey int

const userIDCtxKey ctxKey = 0

func userIDFromContext(ctx context.Context) (id.ID, bool) {
	uid, ok := ctx.Value(userIDCtxKey).(id.ID)
	return uid, ok
}

// requireAuth resolves "Authorization: Bearer ldo_..." into a user ID,
// rejecting the request with 401 if the header is missing, malformed,
// or the token doesn't validate.
func requireAuth(tokens *auth.TokenEngine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				writeError(w, apperr.New(apperr.KindUnauthorized, "missing bearer token"))
				return
			}
			raw := strings.TrimPrefix(header, prefix)

			t, err := tokens.Validate(r.Context(), raw)
			if err != nil {
				writeError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDCtxKey, t.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

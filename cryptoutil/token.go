/*
Package cryptoutil holds the two cryptographic primitives the API-token
and Gmail-connection features need: a one-way digest for bearer tokens,
and envelope encryption for refresh tokens and PDF passwords at rest.

Neither primitive touches the store or engine layers directly — callers
hash or encrypt before a value reaches store.Store, and decrypt only
when a value is about to be used (e.g. handed to a Gmail API client),
never when it is merely being listed or displayed.
*/
package cryptoutil

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/pennywise/ledger/domain"
)

// HashToken returns the hex-encoded SHA-256 digest of a raw API token
// secret. Only the digest and the Prefix (see DisplayPrefix) are ever
// persisted; the raw secret is shown to the caller exactly once.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEqual compares two hex-encoded digests without leaking
// timing information about where they first differ.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// GenerateToken returns a new opaque bearer token: domain.TokenPrefix
// followed by a random hex body of domain.TokenBodyLength characters.
func GenerateToken() (string, error) {
	buf := make([]byte, domain.TokenBodyLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptoutil: generate token: %w", err)
	}
	return domain.TokenPrefix + hex.EncodeToString(buf), nil
}

// DisplayPrefix returns domain.TokenPrefix followed by the first 8
// characters after it, shown alongside a token's Name so a user can tell tokens apart
// without ever seeing the full secret again.
func DisplayPrefix(raw string) string {
	body := raw[len(domain.TokenPrefix):]
	if len(body) > 8 {
		body = body[:8]
	}
	return domain.TokenPrefix + body
}

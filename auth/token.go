/*
Package auth implements the auth surface (component I): opaque,
long-lived API tokens and the OTP-based channel-binding handshake that
links a chat-platform identity to a user.

TOKEN SECRECY:
  The raw secret exists only between GenerateToken and the moment the
  caller persists its digest; Create returns it exactly once and never
  stores it. Validate recomputes the digest and compares it against the
  stored value with cryptoutil.ConstantTimeEqual so a timing side
  channel can't narrow down a guess.
*/
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/cryptoutil"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/store"
)

// TokenEngine implements API token create/validate/revoke/list.
type TokenEngine struct {
	store store.Store
}

func NewTokenEngine(s store.Store) *TokenEngine {
	return &TokenEngine{store: s}
}

// CreatedToken is returned by Create; Raw is shown to the caller
// exactly once and is not present in any later read.
type CreatedToken struct {
	Token domain.ApiToken
	Raw   string
}

// Create mints a new opaque bearer token for userID, rejecting the
// request if the user already holds domain.MaxTokensPerUser non-revoked
// tokens.
func (e *TokenEngine) Create(ctx context.Context, userID id.ID, name string) (CreatedToken, error) {
	if name == "" {
		return CreatedToken{}, apperr.Validation("token name must not be empty")
	}
	count, err := e.store.CountActiveTokens(ctx, userID)
	if err != nil {
		return CreatedToken{}, err
	}
	if count >= domain.MaxTokensPerUser {
		return CreatedToken{}, apperr.Validation("user already holds the maximum of %d active tokens", domain.MaxTokensPerUser)
	}

	raw, err := cryptoutil.GenerateToken()
	if err != nil {
		return CreatedToken{}, fmt.Errorf("auth: generate token: %w", err)
	}
	now := time.Now().UTC()
	t := domain.ApiToken{
		ID:        id.New(),
		UserID:    userID,
		Name:      name,
		TokenHash: cryptoutil.HashToken(raw),
		Prefix:    cryptoutil.DisplayPrefix(raw),
		CreatedAt: now,
	}
	if err := e.store.CreateToken(ctx, t); err != nil {
		return CreatedToken{}, err
	}
	return CreatedToken{Token: t, Raw: raw}, nil
}

// Validate looks up the non-revoked token matching raw's digest and
// touches its LastUsedAt. Returns an apperr.KindUnauthorized error if raw
// matches no stored token, or an apperr.KindTokenRevoked error if it
// matches a revoked one.
func (e *TokenEngine) Validate(ctx context.Context, raw string) (domain.ApiToken, error) {
	digest := cryptoutil.HashToken(raw)
	t, err := e.store.GetTokenByHash(ctx, digest)
	if err != nil {
		if apperr.IsNotFound(err) {
			return domain.ApiToken{}, apperr.New(apperr.KindUnauthorized, "unknown token")
		}
		return domain.ApiToken{}, err
	}
	if !cryptoutil.ConstantTimeEqual(t.TokenHash, digest) {
		return domain.ApiToken{}, apperr.New(apperr.KindUnauthorized, "unknown token")
	}
	if !t.IsActive() {
		return domain.ApiToken{}, apperr.New(apperr.KindTokenRevoked, "token has been revoked")
	}
	now := time.Now().UTC()
	if err := e.store.TouchTokenLastUsed(ctx, t.ID, now); err != nil {
		return domain.ApiToken{}, err
	}
	t.LastUsedAt = &now
	return t, nil
}

// Revoke soft-deletes a token; it remains listable with includeRevoked
// but can no longer Validate successfully.
func (e *TokenEngine) Revoke(ctx context.Context, tokenID id.ID) error {
	return e.store.RevokeToken(ctx, tokenID, time.Now().UTC())
}

// List returns a user's tokens, excluding revoked ones unless includeRevoked.
func (e *TokenEngine) List(ctx context.Context, userID id.ID, includeRevoked bool) ([]domain.ApiToken, error) {
	return e.store.ListTokens(ctx, userID, includeRevoked)
}

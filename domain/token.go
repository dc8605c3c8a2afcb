package domain

import (
	"time"

	"github.com/pennywise/ledger/id"
)

// ApiToken is an opaque bearer credential. The raw secret is shown to
// the caller exactly once, at creation; only its SHA-256 digest and a
// display prefix (TokenPrefix plus the secret's first 8 characters, for
// display/lookup disambiguation) are persisted.
type ApiToken struct {
	ID         id.ID      `json:"id"`
	UserID     id.ID      `json:"user_id"`
	Name       string     `json:"name"`
	TokenHash  string     `json:"-"`
	Prefix     string     `json:"prefix"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (t ApiToken) IsActive() bool { return t.RevokedAt == nil }

const (
	TokenPrefix        = "ldo_"
	TokenBodyLength     = 48
	MaxTokensPerUser    = 10
)

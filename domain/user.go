package domain

import (
	"time"

	"github.com/pennywise/ledger/id"
)

// User is the account owner. Authentication mechanics (password
// hashing, session cookies) are outside this module's scope per
// spec.md's non-goals; User exists so ledgers, tokens, and channel
// bindings have an owner to reference.
type User struct {
	ID        id.ID     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

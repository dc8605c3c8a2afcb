/*
Package domain holds the plain data types shared by every engine:
ledgers, accounts, transactions, templates, tokens, channel bindings,
import sessions, and audit entries. Engines import domain but never the
other way around.
*/
package domain

import (
	"time"

	"github.com/pennywise/ledger/id"
)

// Ledger is the top-level book a user owns. Every account and
// transaction belongs to exactly one ledger.
type Ledger struct {
	ID        id.ID     `json:"id"`
	OwnerID   id.ID     `json:"owner_id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

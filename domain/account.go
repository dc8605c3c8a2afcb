package domain

import (
	"time"

	"github.com/pennywise/ledger/id"
)

// AccountType classifies an account for reporting and for the
// transaction-type compatibility matrix. Equity is not its own
// AccountType: the "Equity" system account is stored as ASSET (see
// DESIGN.md's Open Question resolution) and special-cased by name in
// the reporting engine.
type AccountType string

const (
	AccountAsset     AccountType = "ASSET"
	AccountLiability AccountType = "LIABILITY"
	AccountIncome    AccountType = "INCOME"
	AccountExpense   AccountType = "EXPENSE"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountAsset, AccountLiability, AccountIncome, AccountExpense:
		return true
	default:
		return false
	}
}

// System account names. Every ledger gets exactly one of each at
// creation; neither can be deleted or reparented.
const (
	SystemAccountCash   = "Cash"
	SystemAccountEquity = "Equity"
)

// Account is a node in a ledger's account tree. Depth is 1 for a root
// account, up to a maximum of 3. Depth and ParentID are maintained
// columns, not derived from an in-memory tree walk, so a lookup never
// needs to load siblings.
type Account struct {
	ID         id.ID       `json:"id"`
	LedgerID   id.ID       `json:"ledger_id"`
	ParentID   *id.ID      `json:"parent_id,omitempty"`
	Name       string      `json:"name"`
	Type       AccountType `json:"type"`
	Depth      int         `json:"depth"`
	SortOrder  int         `json:"sort_order"`
	IsSystem   bool        `json:"is_system"`
	IsArchived bool        `json:"is_archived"`
	ArchivedAt *time.Time  `json:"archived_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// IsEquity reports whether this is the ledger's undeletable Equity
// system account, which the reporting engine treats as credit-normal
// despite being typed ASSET.
func (a Account) IsEquity() bool {
	return a.IsSystem && a.Name == SystemAccountEquity
}

const MaxAccountDepth = 3

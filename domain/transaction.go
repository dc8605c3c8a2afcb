package domain

import (
	"time"

	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/money"
)

// TransactionType classifies the economic meaning of a transaction and
// constrains which account types may sit at its From/To ends.
type TransactionType string

const (
	TxExpense  TransactionType = "EXPENSE"
	TxIncome   TransactionType = "INCOME"
	TxTransfer TransactionType = "TRANSFER"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxExpense, TxIncome, TxTransfer:
		return true
	default:
		return false
	}
}

// Transaction is a double-entry posting: it moves Amount from
// FromAccountID to ToAccountID, both within the same ledger. A posted
// transaction has no general update path; it can be deleted, and its
// account references are re-pointed when an account is deleted with
// reassignment.
type Transaction struct {
	ID              id.ID           `json:"id"`
	LedgerID        id.ID           `json:"ledger_id"`
	Type            TransactionType `json:"type"`
	FromAccountID   id.ID           `json:"from_account_id"`
	ToAccountID     id.ID           `json:"to_account_id"`
	Amount          money.Amount    `json:"amount"`
	Date            time.Time       `json:"date"`
	Description     string          `json:"description"`
	Notes           string          `json:"notes,omitempty"`
	AmountExpression string         `json:"amount_expression,omitempty"`
	TagIDs          []id.ID         `json:"tag_ids,omitempty"`

	RecurringTemplateID *id.ID `json:"recurring_template_id,omitempty"`
	InstallmentPlanID   *id.ID `json:"installment_plan_id,omitempty"`
	InstallmentNumber   *int   `json:"installment_number,omitempty"`

	SourceChannel    *ChannelType `json:"source_channel,omitempty"`
	ChannelMessageID string       `json:"channel_message_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tag is a user-defined label attachable to transactions, unique per
// (LedgerID, Name).
type Tag struct {
	ID        id.ID     `json:"id"`
	LedgerID  id.ID     `json:"ledger_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TypeMatrix enumerates which (from-type, to-type) pairs a
// TransactionType permits. Checked by the transaction engine before any
// row is posted.
var TypeMatrix = map[TransactionType]func(from, to AccountType) bool{
	TxExpense: func(from, to AccountType) bool {
		return (from == AccountAsset || from == AccountLiability) && to == AccountExpense
	},
	TxIncome: func(from, to AccountType) bool {
		return from == AccountIncome && (to == AccountAsset || to == AccountLiability)
	},
	TxTransfer: func(from, to AccountType) bool {
		return (from == AccountAsset || from == AccountLiability) &&
			(to == AccountAsset || to == AccountLiability)
	},
}

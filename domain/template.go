package domain

import (
	"time"

	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/money"
)

// TransactionTemplate is a one-click preset for a recurring shape of
// transaction (e.g. "Rent", "Paycheck"), not itself scheduled.
type TransactionTemplate struct {
	ID              id.ID           `json:"id"`
	LedgerID        id.ID           `json:"ledger_id"`
	Name            string          `json:"name"`
	Type            TransactionType `json:"type"`
	FromAccountID   id.ID           `json:"from_account_id"`
	ToAccountID     id.ID           `json:"to_account_id"`
	Amount          money.Amount    `json:"amount"`
	Description     string          `json:"description"`
	SortOrder       int             `json:"sort_order"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Frequency drives both RecurringTemplate due-date computation and
// GmailScanJob cron scheduling.
type Frequency string

const (
	FreqDaily   Frequency = "DAILY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqMonthly Frequency = "MONTHLY"
	FreqYearly  Frequency = "YEARLY"
)

// RecurringTemplate generates a Transaction each time its due date
// arrives; the scheduler engine owns the due-date computation.
type RecurringTemplate struct {
	ID                id.ID           `json:"id"`
	LedgerID          id.ID           `json:"ledger_id"`
	Name              string          `json:"name"`
	Type              TransactionType `json:"type"`
	FromAccountID     id.ID           `json:"from_account_id"`
	ToAccountID       id.ID           `json:"to_account_id"`
	Amount            money.Amount    `json:"amount"`
	Description       string          `json:"description"`
	Frequency         Frequency       `json:"frequency"`
	StartDate         time.Time       `json:"start_date"`
	EndDate           *time.Time      `json:"end_date,omitempty"`
	LastGeneratedDate *time.Time      `json:"last_generated_date,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// InstallmentPlan expands eagerly, at creation time, into N linked
// transactions dated one month apart; it is not itself polled by the
// scheduler.
type InstallmentPlan struct {
	ID                id.ID           `json:"id"`
	LedgerID          id.ID           `json:"ledger_id"`
	Name              string          `json:"name"`
	Type              TransactionType `json:"type"`
	TotalAmount       money.Amount    `json:"total_amount"`
	InstallmentCount  int             `json:"installment_count"`
	StartDate         time.Time       `json:"start_date"`
	FromAccountID     id.ID           `json:"from_account_id"`
	ToAccountID       id.ID           `json:"to_account_id"`
	CreatedAt         time.Time       `json:"created_at"`
}

package domain

import (
	"time"

	"github.com/pennywise/ledger/id"
)

// ImportStatus tracks an ImportSession through its two-phase lifecycle:
// a preview is proposed as PENDING, then either COMPLETED or FAILED
// once execute runs.
type ImportStatus string

const (
	ImportPending    ImportStatus = "PENDING"
	ImportProcessing ImportStatus = "PROCESSING"
	ImportCompleted  ImportStatus = "COMPLETED"
	ImportFailed     ImportStatus = "FAILED"
)

// ImportType names the source format a Parser implementation handles.
type ImportType string

const (
	ImportMYABCSV       ImportType = "MYAB_CSV"
	ImportCreditCardCSV ImportType = "CREDIT_CARD_CSV"
	ImportGmailCC       ImportType = "GMAIL_CC"
	ImportBankRecord    ImportType = "BANK_RECORD"
)

// ImportSession records one run of the import pipeline: a preview
// proposes mapped transactions, held in PENDING until execute commits
// them. A preview that is never executed stays PENDING; nothing expires it.
type ImportSession struct {
	ID                   id.ID        `json:"id"`
	LedgerID             id.ID        `json:"ledger_id"`
	ImportType           ImportType   `json:"import_type"`
	BankCode             string       `json:"bank_code,omitempty"`
	Status               ImportStatus `json:"status"`
	ProgressCurrent      int          `json:"progress_current"`
	ProgressTotal        int          `json:"progress_total"`
	ImportedCount        int          `json:"imported_count"`
	SkippedCount         int          `json:"skipped_count"`
	ErrorCount           int          `json:"error_count"`
	CreatedAccountsCount int          `json:"created_accounts_count"`
	ErrorMessage         string       `json:"error_message,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// ProposedTransaction is one row of a preview: the parsed source
// record mapped onto concrete (or to-be-created) accounts, plus a
// duplicate flag set when an existing transaction has the same calendar
// date, amount, from-account and to-account.
type ProposedTransaction struct {
	Date                time.Time  `json:"date"`
	Description         string     `json:"description"`
	Amount              string     `json:"amount"`
	SuggestedCategory   string     `json:"suggested_category,omitempty"`
	CategoryConfidence  float64    `json:"category_confidence"`
	FromAccountName     string     `json:"from_account_name"`
	ToAccountName       string     `json:"to_account_name"`
	IsNewAccount        bool       `json:"is_new_account"`
	IsDuplicate         bool       `json:"is_duplicate"`
	DuplicateOfTxID     *id.ID     `json:"duplicate_of_transaction_id,omitempty"`
}

/*
dto.go - Request bodies for the HTTP edge

NAMING CONVENTION (same as the teacher's api/dto.go):
  *Request: JSON bodies the client sends in.

Responses are the engine/domain types directly (domain.Ledger,
domain.Account, transaction.Page, report.BalanceSheet, ...): they
already carry the json tags the wire format needs (id.ID and
money.Amount both marshal to quoted strings, time.Time to RFC3339), so
a second response-DTO layer would only duplicate field names.
*/
package api

import (
	"time"

	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/money"
)

type CreateUserRequest struct {
	Email string `json:"email"`
}

type CreateTokenRequest struct {
	UserID id.ID  `json:"user_id"`
	Name   string `json:"name"`
}

type CreateLedgerRequest struct {
	Name           string       `json:"name"`
	Currency       string       `json:"currency"`
	InitialBalance *money.Amount `json:"initial_balance,omitempty"`
}

type UpdateLedgerRequest struct {
	Name string `json:"name"`
}

type CreateAccountRequest struct {
	Name     string            `json:"name"`
	Type     domain.AccountType `json:"type"`
	ParentID *id.ID            `json:"parent_id,omitempty"`
}

// UpdateAccountRequest supports rename, reparent, and archive. A nil
// field leaves that aspect of the account unchanged; ParentID is a
// double pointer so "move to root" (explicit null) is distinguishable
// from "leave parent as-is" (field omitted).
type UpdateAccountRequest struct {
	Name     *string  `json:"name,omitempty"`
	ParentID **id.ID  `json:"parent_id,omitempty"`
	Archive  *bool    `json:"archive,omitempty"`
}

type DeleteAccountRequest struct {
	ReplacementAccountID *id.ID `json:"replacement_account_id,omitempty"`
}

type PostTransactionRequest struct {
	Type          domain.TransactionType `json:"type"`
	FromAccountID id.ID                  `json:"from_account_id"`
	ToAccountID   id.ID                  `json:"to_account_id"`
	Amount        money.Amount           `json:"amount"`
	Date          time.Time              `json:"date"`
	Description   string                 `json:"description"`
	Notes         string                 `json:"notes,omitempty"`
	TagIDs        []id.ID                `json:"tag_ids,omitempty"`
}

type CreateChannelCodeRequest struct {
	DefaultLedgerID *id.ID `json:"default_ledger_id,omitempty"`
}

type VerifyChannelCodeRequest struct {
	Code           string             `json:"code"`
	Channel        domain.ChannelType `json:"channel"`
	ExternalUserID string             `json:"external_user_id"`
}

type CreateRecurringTemplateRequest struct {
	Name          string                 `json:"name"`
	Type          domain.TransactionType `json:"type"`
	FromAccountID id.ID                  `json:"from_account_id"`
	ToAccountID   id.ID                  `json:"to_account_id"`
	Amount        money.Amount           `json:"amount"`
	Description   string                 `json:"description"`
	Frequency     domain.Frequency       `json:"frequency"`
	StartDate     time.Time              `json:"start_date"`
	EndDate       *time.Time             `json:"end_date,omitempty"`
}

type CreateInstallmentPlanRequest struct {
	Name             string                 `json:"name"`
	Type             domain.TransactionType `json:"type"`
	TotalAmount      money.Amount           `json:"total_amount"`
	InstallmentCount int                    `json:"installment_count"`
	StartDate        time.Time              `json:"start_date"`
	FromAccountID    id.ID                  `json:"from_account_id"`
	ToAccountID      id.ID                  `json:"to_account_id"`
}

type ExecuteImportRequest struct {
	FinalMappings  map[string]RowMappingDTO `json:"final_mappings,omitempty"`
	SkipRowNumbers []int                    `json:"skip_row_numbers,omitempty"`
}

type RowMappingDTO struct {
	FromAccountName string `json:"from_account_name,omitempty"`
	ToAccountName   string `json:"to_account_name,omitempty"`
}

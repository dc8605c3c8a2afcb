/*
Package store defines the persistence interface every engine depends
on. Two implementations exist: store/sqlite (production, WAL-mode
SQLite) and store/memory (in-process, used by engine unit tests).

TRANSACTION ROWS:
  Transaction rows have no general update method. Two paths still
  change them: DeleteTransaction removes a row, and
  ReassignAccountTransactions re-points rows from one account to another
  when an account is deleted with reassignment. Every other entity
  (Ledger, Account, templates, tokens, bindings) supports ordinary
  CRUD, since those are configuration, not the ledger itself.

UNIT OF WORK:
  Any operation that writes more than one table — posting a
  transaction plus its audit entry, executing an import plus marking
  the session COMPLETED — runs inside WithTx so a mid-operation failure
  leaves no partial state.
*/
package store

import (
	"context"
	"time"

	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
)

// TransactionFilter narrows a transaction listing; used by the
// transaction engine's cursor-paginated List.
type TransactionFilter struct {
	LedgerID      id.ID
	AccountID     *id.ID
	TagID         *id.ID
	Type          *domain.TransactionType
	Search        string
	From          *time.Time
	To            *time.Time
	CursorDate    *time.Time
	CursorID      *id.ID
	Limit         int
}

// Store is the full persistence surface. store/sqlite and store/memory
// both implement it; engines depend only on this interface.
type Store interface {
	// WithTx runs fn inside a unit of work. If fn returns an error the
	// unit of work is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Users
	CreateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, userID id.ID) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// Ledgers
	CreateLedger(ctx context.Context, l domain.Ledger) error
	GetLedger(ctx context.Context, ledgerID id.ID) (domain.Ledger, error)
	ListLedgers(ctx context.Context, ownerID id.ID) ([]domain.Ledger, error)
	UpdateLedger(ctx context.Context, l domain.Ledger) error
	DeleteLedger(ctx context.Context, ledgerID id.ID) error

	// Accounts
	CreateAccount(ctx context.Context, a domain.Account) error
	GetAccount(ctx context.Context, accountID id.ID) (domain.Account, error)
	ListAccounts(ctx context.Context, ledgerID id.ID) ([]domain.Account, error)
	ListChildAccounts(ctx context.Context, parentID id.ID) ([]domain.Account, error)
	UpdateAccount(ctx context.Context, a domain.Account) error
	DeleteAccount(ctx context.Context, accountID id.ID) error
	CountAccountTransactions(ctx context.Context, accountID id.ID) (int, error)
	ReassignAccountTransactions(ctx context.Context, fromAccountID, toAccountID id.ID) (int, error)

	// Transactions
	CreateTransaction(ctx context.Context, t domain.Transaction) error
	GetTransaction(ctx context.Context, txID id.ID) (domain.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
	ListTransactionsInRange(ctx context.Context, ledgerID id.ID, from, to time.Time) ([]domain.Transaction, error)
	ListTransactionsByRecurringTemplate(ctx context.Context, templateID id.ID) ([]domain.Transaction, error)
	// DeleteTransaction removes a single transaction row. It is called by
	// the ledger engine's clear_transactions/clear_accounts shortcuts and
	// by transaction.Engine.Delete.
	DeleteTransaction(ctx context.Context, txID id.ID) error

	// Tags
	CreateTag(ctx context.Context, t domain.Tag) error
	GetTagByName(ctx context.Context, ledgerID id.ID, name string) (domain.Tag, error)
	ListTags(ctx context.Context, ledgerID id.ID) ([]domain.Tag, error)

	// Templates
	CreateTemplate(ctx context.Context, t domain.TransactionTemplate) error
	ListTemplates(ctx context.Context, ledgerID id.ID) ([]domain.TransactionTemplate, error)
	DeleteTemplate(ctx context.Context, templateID id.ID) error

	// Recurring templates
	CreateRecurringTemplate(ctx context.Context, t domain.RecurringTemplate) error
	GetRecurringTemplate(ctx context.Context, templateID id.ID) (domain.RecurringTemplate, error)
	ListRecurringTemplates(ctx context.Context, ledgerID id.ID) ([]domain.RecurringTemplate, error)
	ListAllActiveRecurringTemplates(ctx context.Context) ([]domain.RecurringTemplate, error)
	UpdateRecurringTemplate(ctx context.Context, t domain.RecurringTemplate) error
	DeleteRecurringTemplate(ctx context.Context, templateID id.ID) error

	// Installment plans
	CreateInstallmentPlan(ctx context.Context, p domain.InstallmentPlan) error
	GetInstallmentPlan(ctx context.Context, planID id.ID) (domain.InstallmentPlan, error)
	ListInstallmentPlans(ctx context.Context, ledgerID id.ID) ([]domain.InstallmentPlan, error)
	DeleteInstallmentPlan(ctx context.Context, planID id.ID) error

	// Audit
	AppendAudit(ctx context.Context, entry domain.AuditLog) error
	ListAudit(ctx context.Context, ledgerID id.ID, resourceID *id.ID, limit int) ([]domain.AuditLog, error)

	// API tokens
	CreateToken(ctx context.Context, t domain.ApiToken) error
	GetTokenByHash(ctx context.Context, hash string) (domain.ApiToken, error)
	ListTokens(ctx context.Context, userID id.ID, includeRevoked bool) ([]domain.ApiToken, error)
	CountActiveTokens(ctx context.Context, userID id.ID) (int, error)
	RevokeToken(ctx context.Context, tokenID id.ID, revokedAt time.Time) error
	TouchTokenLastUsed(ctx context.Context, tokenID id.ID, at time.Time) error

	// Channel bindings
	CreateChannelBinding(ctx context.Context, b domain.ChannelBinding) error
	GetActiveChannelBinding(ctx context.Context, channelType domain.ChannelType, externalUserID string) (domain.ChannelBinding, error)
	ListChannelBindings(ctx context.Context, userID id.ID) ([]domain.ChannelBinding, error)
	UnbindChannel(ctx context.Context, bindingID id.ID, unboundAt time.Time) error

	// Import sessions
	CreateImportSession(ctx context.Context, s domain.ImportSession) error
	GetImportSession(ctx context.Context, sessionID id.ID) (domain.ImportSession, error)
	UpdateImportSession(ctx context.Context, s domain.ImportSession) error
	ListImportSessions(ctx context.Context, ledgerID id.ID) ([]domain.ImportSession, error)

	// Gmail scan jobs
	UpsertGmailScanJob(ctx context.Context, j domain.GmailScanJob) error
	GetGmailScanJob(ctx context.Context, ledgerID id.ID) (domain.GmailScanJob, error)
	ListAllGmailScanJobs(ctx context.Context) ([]domain.GmailScanJob, error)

	// Email authorizations
	UpsertEmailAuthorization(ctx context.Context, a domain.EmailAuthorization) error
	GetEmailAuthorization(ctx context.Context, ledgerID id.ID) (domain.EmailAuthorization, error)

	Close() error
}

/*
Package scheduler implements component J: recurring-template due-date
tracking and approval, eager installment-plan expansion, and the
in-process cron dispatcher (github.com/robfig/cron/v3) that drives both
of them plus Gmail scan jobs on a restart-safe schedule.

RECURRING TEMPLATES:
  A template's next-due date is last_generated_date + frequency, or
  start_date if it has never generated. ListDue reports templates whose
  next-due date is on or before the reference time; Approve posts the
  one transaction the due date represents and advances
  last_generated_date. The daily cron tick calls ListDue/Approve exactly
  the way an interactive caller would — there is no separate "automatic"
  code path to keep in sync.
*/
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/store"
	"github.com/pennywise/ledger/transaction"
)

// RecurringEngine implements create/list/approve/delete for recurring
// transaction templates.
type RecurringEngine struct {
	store store.Store
	tx    *transaction.Engine
}

func NewRecurringEngine(s store.Store, tx *transaction.Engine) *RecurringEngine {
	return &RecurringEngine{store: s, tx: tx}
}

// CreateInput mirrors domain.RecurringTemplate's caller-supplied fields.
type CreateInput struct {
	LedgerID      id.ID
	Name          string
	Type          domain.TransactionType
	FromAccountID id.ID
	ToAccountID   id.ID
	Amount        money.Amount
	Description   string
	Frequency     domain.Frequency
	StartDate     time.Time
	EndDate       *time.Time
}

func (e *RecurringEngine) Create(ctx context.Context, in CreateInput) (domain.RecurringTemplate, error) {
	if in.Name == "" {
		return domain.RecurringTemplate{}, apperr.Validation("recurring template name must not be empty")
	}
	if !validFrequency(in.Frequency) {
		return domain.RecurringTemplate{}, apperr.Validation("invalid frequency %q", in.Frequency)
	}
	if !in.Amount.IsPositive() {
		return domain.RecurringTemplate{}, apperr.Validation("recurring template amount must be positive")
	}
	if in.FromAccountID == in.ToAccountID {
		return domain.RecurringTemplate{}, apperr.Validation("from and to accounts must differ")
	}
	now := time.Now().UTC()
	t := domain.RecurringTemplate{
		ID:            id.New(),
		LedgerID:      in.LedgerID,
		Name:          in.Name,
		Type:          in.Type,
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		Amount:        in.Amount,
		Description:   in.Description,
		Frequency:     in.Frequency,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.store.CreateRecurringTemplate(ctx, t); err != nil {
		return domain.RecurringTemplate{}, fmt.Errorf("scheduler: create recurring template: %w", err)
	}
	return t, nil
}

func (e *RecurringEngine) Get(ctx context.Context, templateID id.ID) (domain.RecurringTemplate, error) {
	return e.store.GetRecurringTemplate(ctx, templateID)
}

func (e *RecurringEngine) List(ctx context.Context, ledgerID id.ID) ([]domain.RecurringTemplate, error) {
	return e.store.ListRecurringTemplates(ctx, ledgerID)
}

func (e *RecurringEngine) Delete(ctx context.Context, templateID id.ID) error {
	return e.store.DeleteRecurringTemplate(ctx, templateID)
}

// NextDue returns t's next due date: last_generated_date + frequency,
// or start_date if it has never generated.
func NextDue(t domain.RecurringTemplate) time.Time {
	if t.LastGeneratedDate == nil {
		return t.StartDate
	}
	return advance(*t.LastGeneratedDate, t.Frequency)
}

func advance(from time.Time, freq domain.Frequency) time.Time {
	switch freq {
	case domain.FreqDaily:
		return from.AddDate(0, 0, 1)
	case domain.FreqWeekly:
		return from.AddDate(0, 0, 7)
	case domain.FreqMonthly:
		return from.AddDate(0, 1, 0)
	case domain.FreqYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from
	}
}

func validFrequency(f domain.Frequency) bool {
	switch f {
	case domain.FreqDaily, domain.FreqWeekly, domain.FreqMonthly, domain.FreqYearly:
		return true
	default:
		return false
	}
}

// ListDue returns every active (non-expired) recurring template whose
// next-due date is on or before asOf.
func (e *RecurringEngine) ListDue(ctx context.Context, asOf time.Time) ([]domain.RecurringTemplate, error) {
	all, err := e.store.ListAllActiveRecurringTemplates(ctx)
	if err != nil {
		return nil, err
	}
	var due []domain.RecurringTemplate
	for _, t := range all {
		if !NextDue(t).After(asOf) {
			due = append(due, t)
		}
	}
	return due, nil
}

// Approve posts the transaction templateID's next due date represents
// and advances last_generated_date to that date, in one unit of work.
// It duplicates transaction.Engine.Post's validate-then-write shape
// rather than calling Post directly, since store.Store.WithTx is not
// reentrant: Post opens its own unit of work, and calling it from
// inside this one would re-enter a locked store (see importpipeline's
// postImportedRow for the same pattern).
func (e *RecurringEngine) Approve(ctx context.Context, actorID, templateID id.ID) (domain.Transaction, error) {
	t, err := e.store.GetRecurringTemplate(ctx, templateID)
	if err != nil {
		return domain.Transaction{}, err
	}
	due := NextDue(t)

	var posted domain.Transaction
	err = e.store.WithTx(ctx, func(tx store.Store) error {
		p, err := postRecurringOccurrence(ctx, tx, actorID, t, due)
		if err != nil {
			return err
		}
		posted = p

		t.LastGeneratedDate = &due
		t.UpdatedAt = time.Now().UTC()
		return tx.UpdateRecurringTemplate(ctx, t)
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return posted, nil
}

// postRecurringOccurrence validates and writes one recurring template's
// due occurrence as a Transaction plus its CREATE audit entry against
// the tx-scoped store.
func postRecurringOccurrence(ctx context.Context, tx store.Store, actorID id.ID, t domain.RecurringTemplate, date time.Time) (domain.Transaction, error) {
	if !t.Amount.IsPositive() {
		return domain.Transaction{}, apperr.Validation("recurring template amount must be positive")
	}
	if t.FromAccountID == t.ToAccountID {
		return domain.Transaction{}, apperr.Validation("from and to accounts must differ")
	}
	from, err := tx.GetAccount(ctx, t.FromAccountID)
	if err != nil {
		return domain.Transaction{}, err
	}
	to, err := tx.GetAccount(ctx, t.ToAccountID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if from.LedgerID != t.LedgerID || to.LedgerID != t.LedgerID {
		return domain.Transaction{}, apperr.Validation("from/to accounts must belong to the recurring template's ledger")
	}
	if err := requireLeafAccount(ctx, tx, from); err != nil {
		return domain.Transaction{}, err
	}
	if err := requireLeafAccount(ctx, tx, to); err != nil {
		return domain.Transaction{}, err
	}
	matches, ok := domain.TypeMatrix[t.Type]
	if !ok || !matches(from.Type, to.Type) {
		return domain.Transaction{}, apperr.Validation(
			"transaction type %q does not permit %s -> %s", t.Type, from.Type, to.Type)
	}

	now := time.Now().UTC()
	posted := domain.Transaction{
		ID:                  id.New(),
		LedgerID:            t.LedgerID,
		Type:                t.Type,
		FromAccountID:       from.ID,
		ToAccountID:         to.ID,
		Amount:              t.Amount,
		Date:                date,
		Description:         t.Description,
		RecurringTemplateID: &t.ID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := tx.CreateTransaction(ctx, posted); err != nil {
		return domain.Transaction{}, fmt.Errorf("scheduler: create transaction: %w", err)
	}
	if err := tx.AppendAudit(ctx, domain.AuditLog{
		ID:           id.New(),
		LedgerID:     t.LedgerID,
		Action:       domain.AuditCreate,
		ResourceType: "transaction",
		ResourceID:   posted.ID,
		ActorID:      actorID,
		NewValue:     fmt.Sprintf("%+v", posted),
		CreatedAt:    now,
	}); err != nil {
		return domain.Transaction{}, fmt.Errorf("scheduler: append audit: %w", err)
	}
	return posted, nil
}

func requireLeafAccount(ctx context.Context, tx store.Store, a domain.Account) error {
	children, err := tx.ListChildAccounts(ctx, a.ID)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return apperr.Validation("account %q is not a leaf account and cannot appear on a transaction", a.Name)
	}
	return nil
}

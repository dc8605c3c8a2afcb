/*
Package transaction implements the transaction engine (component F):
double-entry validation and posting, filtered and cursor-paginated
reads, and deletion. Every posting and deletion here produces exactly
one audit row in the same unit of work — see the ledger and account
engines for the same pattern. Tag and template writes (tags.go,
templates.go) record no audit row.

TYPE VALIDATION:
  A transaction names a TransactionType plus a from/to account pair.
  domain.TypeMatrix is the single source of truth for which
  (from.Type, to.Type) pairs a given TransactionType permits; this
  package never duplicates that table.

CURSOR PAGINATION:
  List returns at most Limit rows ordered by (date desc, id desc) plus
  an opaque NextCursor when more rows exist. The cursor encodes the
  boundary row's (date, id) tuple (see cursor.go); it is stable under
  concurrent inserts because the underlying query is a strict "less
  than" comparison on that tuple, not an offset.
*/
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/store"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Engine implements the transaction-engine operations against a store.Store.
type Engine struct {
	store store.Store
}

func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// PostInput carries the fields a caller supplies when posting a new
// transaction; ID and timestamps are assigned by the engine.
type PostInput struct {
	LedgerID      id.ID
	Type          domain.TransactionType
	FromAccountID id.ID
	ToAccountID   id.ID
	Amount        money.Amount
	Date          time.Time
	Description   string
	Notes         string
	TagIDs        []id.ID

	RecurringTemplateID *id.ID
	InstallmentPlanID   *id.ID
	InstallmentNumber   *int
	SourceChannel       *domain.ChannelType
	ChannelMessageID    string
}

// Post validates amount, distinctness, ledger membership, leaf-ness,
// and the (from.Type, to.Type, Type) triple, then writes the
// transaction and a CREATE audit row in one unit of work.
func (e *Engine) Post(ctx context.Context, actorID id.ID, in PostInput) (domain.Transaction, error) {
	from, to, err := e.validate(ctx, in)
	if err != nil {
		return domain.Transaction{}, err
	}

	now := time.Now().UTC()
	t := domain.Transaction{
		ID:                  id.New(),
		LedgerID:            in.LedgerID,
		Type:                in.Type,
		FromAccountID:       from.ID,
		ToAccountID:         to.ID,
		Amount:              in.Amount,
		Date:                in.Date,
		Description:         in.Description,
		Notes:               in.Notes,
		TagIDs:              in.TagIDs,
		RecurringTemplateID: in.RecurringTemplateID,
		InstallmentPlanID:   in.InstallmentPlanID,
		InstallmentNumber:   in.InstallmentNumber,
		SourceChannel:       in.SourceChannel,
		ChannelMessageID:    in.ChannelMessageID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = e.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.CreateTransaction(ctx, t); err != nil {
			return fmt.Errorf("transaction: create: %w", err)
		}
		return tx.AppendAudit(ctx, domain.AuditLog{
			ID:           id.New(),
			LedgerID:     in.LedgerID,
			Action:       domain.AuditCreate,
			ResourceType: "transaction",
			ResourceID:   t.ID,
			ActorID:      actorID,
			NewValue:     fmt.Sprintf("%+v", t),
			CreatedAt:    now,
		})
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}

// validate checks the posting invariants in spec.md §3/§8.1 and returns
// the resolved from/to accounts so Post doesn't re-fetch them.
func (e *Engine) validate(ctx context.Context, in PostInput) (from, to domain.Account, err error) {
	if !in.Amount.IsPositive() {
		return domain.Account{}, domain.Account{}, apperr.Validation("transaction amount must be positive")
	}
	if !in.Type.Valid() {
		return domain.Account{}, domain.Account{}, apperr.Validation("invalid transaction type %q", in.Type)
	}
	if in.FromAccountID == in.ToAccountID {
		return domain.Account{}, domain.Account{}, apperr.Validation("from and to accounts must differ")
	}

	from, err = e.store.GetAccount(ctx, in.FromAccountID)
	if err != nil {
		return domain.Account{}, domain.Account{}, err
	}
	to, err = e.store.GetAccount(ctx, in.ToAccountID)
	if err != nil {
		return domain.Account{}, domain.Account{}, err
	}
	if from.LedgerID != in.LedgerID || to.LedgerID != in.LedgerID {
		return domain.Account{}, domain.Account{}, apperr.Validation("from/to accounts must belong to the transaction's ledger")
	}
	if err := e.requireLeaf(ctx, from); err != nil {
		return domain.Account{}, domain.Account{}, err
	}
	if err := e.requireLeaf(ctx, to); err != nil {
		return domain.Account{}, domain.Account{}, err
	}

	matches, ok := domain.TypeMatrix[in.Type]
	if !ok || !matches(from.Type, to.Type) {
		return domain.Account{}, domain.Account{}, apperr.Validation(
			"transaction type %q does not permit %s -> %s", in.Type, from.Type, to.Type)
	}
	return from, to, nil
}

func (e *Engine) requireLeaf(ctx context.Context, a domain.Account) error {
	children, err := e.store.ListChildAccounts(ctx, a.ID)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return apperr.Validation("account %q is not a leaf account and cannot appear on a transaction", a.Name)
	}
	return nil
}

func (e *Engine) Get(ctx context.Context, txID id.ID) (domain.Transaction, error) {
	return e.store.GetTransaction(ctx, txID)
}

// ListFilter narrows List; Cursor is the opaque string returned as
// NextCursor by a previous call, or "" for the first page.
type ListFilter struct {
	LedgerID        id.ID
	Search          string
	FromDate        *time.Time
	ToDate          *time.Time
	AccountID       *id.ID
	TransactionType *domain.TransactionType
	Cursor          string
	Limit           int
}

// Page is one page of a cursor-paginated transaction listing.
type Page struct {
	Transactions []domain.Transaction
	NextCursor   string
	HasMore      bool
}

// List returns at most Limit transactions matching filter, ordered by
// (date desc, id desc), honoring the opaque cursor if present. An
// invalid cursor is treated as no cursor, not an error (spec.md §4.F).
func (e *Engine) List(ctx context.Context, filter ListFilter) (Page, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	sf := store.TransactionFilter{
		LedgerID:  filter.LedgerID,
		AccountID: filter.AccountID,
		Type:      filter.TransactionType,
		Search:    filter.Search,
		From:      filter.FromDate,
		To:        filter.ToDate,
		// Fetch one extra row to detect whether a further page exists.
		Limit: limit + 1,
	}
	if cur, ok := DecodeCursor(filter.Cursor); ok {
		sf.CursorDate = &cur.Date
		sf.CursorID = &cur.ID
	}

	rows, err := e.store.ListTransactions(ctx, sf)
	if err != nil {
		return Page{}, err
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	page := Page{Transactions: rows, HasMore: hasMore}
	if hasMore {
		last := rows[len(rows)-1]
		page.NextCursor = EncodeCursor(last.Date, last.ID)
	}
	return page, nil
}

// Delete removes a single transaction row and writes a DELETE audit
// entry in the same unit of work. Unlike ordinary corrections (which
// should post a reversing entry), Delete is a true row removal; it
// exists for the ledger engine's clear_transactions/clear_accounts
// shortcuts and for correcting a transaction entered in error.
func (e *Engine) Delete(ctx context.Context, txID, actorID id.ID) error {
	t, err := e.store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	return e.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.DeleteTransaction(ctx, txID); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, domain.AuditLog{
			ID:           id.New(),
			LedgerID:     t.LedgerID,
			Action:       domain.AuditDelete,
			ResourceType: "transaction",
			ResourceID:   txID,
			ActorID:      actorID,
			OldValue:     fmt.Sprintf("%+v", t),
			CreatedAt:    time.Now().UTC(),
		})
	})
}

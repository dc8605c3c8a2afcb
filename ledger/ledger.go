/*
Package ledger implements the ledger engine (component D): creating a
ledger and its two system accounts in one unit of work, renaming,
deletion, and the two "keep the ledger but wipe its contents" shortcuts
clear_transactions and clear_accounts.

SYSTEM ACCOUNTS:
  Every ledger is born with exactly two accounts: Cash (ASSET) and
  Equity (ASSET, but credit-normal in reporting — see domain.Account.IsEquity).
  Both are is_system=true and can never be deleted or reparented; see
  the account engine for that enforcement.

UNIT OF WORK:
  create_ledger writes the ledger row, both system accounts, and the
  optional opening-balance transaction inside one store.WithTx call so a
  mid-failure never leaves a ledger without its system accounts.
*/
package ledger

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

// Engine implements the ledger-engine operations against a store.Store.
type Engine struct {
	store store.Store
}

func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// Create writes a new ledger along with its Cash and Equity system
// accounts. If initialBalance is positive, an opening Equity→Cash
// TRANSFER is posted in the same unit of work.
func (e *Engine) Create(ctx context.Context, ownerID id.ID, name, currency string, initialBalance money.Amount) (domain.Ledger, error) {
	if name == "" {
		return domain.Ledger{}, apperr.Validation("ledger name must not be empty")
	}
	if initialBalance.IsNegative() {
		return domain.Ledger{}, apperr.Validation("initial balance must not be negative")
	}

	now := time.Now().UTC()
	l := domain.Ledger{
		ID:        id.New(),
		OwnerID:   ownerID,
		Name:      name,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := e.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.CreateLedger(ctx, l); err != nil {
			return fmt.Errorf("ledger: create ledger: %w", err)
		}

		cash := systemAccount(l.ID, domain.SystemAccountCash, domain.AccountAsset, now)
		if err := tx.CreateAccount(ctx, cash); err != nil {
			return fmt.Errorf("ledger: create cash account: %w", err)
		}
		equity := systemAccount(l.ID, domain.SystemAccountEquity, domain.AccountAsset, now)
		if err := tx.CreateAccount(ctx, equity); err != nil {
			return fmt.Errorf("ledger: create equity account: %w", err)
		}
		if err := appendAudit(ctx, tx, l.ID, domain.AuditCreate, "ledger", l.ID, ownerID, "", l); err != nil {
			return err
		}

		if initialBalance.IsZero() {
			return nil
		}
		openingTx := domain.Transaction{
			ID:            id.New(),
			LedgerID:      l.ID,
			Type:          domain.TxTransfer,
			FromAccountID: equity.ID,
			ToAccountID:   cash.ID,
			Amount:        initialBalance,
			Date:          now,
			Description:   "Opening balance",
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.CreateTransaction(ctx, openingTx); err != nil {
			return fmt.Errorf("ledger: create opening transaction: %w", err)
		}
		return appendAudit(ctx, tx, l.ID, domain.AuditCreate, "transaction", openingTx.ID, ownerID, "", openingTx)
	})
	if err != nil {
		return domain.Ledger{}, err
	}
	return l, nil
}

func systemAccount(ledgerID id.ID, name string, typ domain.AccountType, now time.Time) domain.Account {
	return domain.Account{
		ID:        id.New(),
		LedgerID:  ledgerID,
		Name:      name,
		Type:      typ,
		Depth:     1,
		IsSystem:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *Engine) Get(ctx context.Context, ledgerID id.ID) (domain.Ledger, error) {
	return e.store.GetLedger(ctx, ledgerID)
}

func (e *Engine) ListForUser(ctx context.Context, ownerID id.ID) ([]domain.Ledger, error) {
	return e.store.ListLedgers(ctx, ownerID)
}

// UpdateName renames a ledger, writing an UPDATE audit row.
func (e *Engine) UpdateName(ctx context.Context, ledgerID id.ID, actorID id.ID, newName string) (domain.Ledger, error) {
	if newName == "" {
		return domain.Ledger{}, apperr.Validation("ledger name must not be empty")
	}

	var updated domain.Ledger
	err := e.store.WithTx(ctx, func(tx store.Store) error {
		l, err := tx.GetLedger(ctx, ledgerID)
		if err != nil {
			return err
		}
		before := l
		l.Name = newName
		l.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateLedger(ctx, l); err != nil {
			return err
		}
		updated = l
		return appendAudit(ctx, tx, ledgerID, domain.AuditUpdate, "ledger", ledgerID, actorID, before, l)
	})
	return updated, err
}

// Delete permanently removes a ledger and everything in it. Unlike
// ClearAccounts, the system accounts are not recreated.
func (e *Engine) Delete(ctx context.Context, ledgerID id.ID, actorID id.ID) error {
	return e.store.WithTx(ctx, func(tx store.Store) error {
		l, err := tx.GetLedger(ctx, ledgerID)
		if err != nil {
			return err
		}
		if err := tx.DeleteLedger(ctx, ledgerID); err != nil {
			return err
		}
		return appendAudit(ctx, tx, ledgerID, domain.AuditDelete, "ledger", ledgerID, actorID, l, "")
	})
}

// ClearTransactions deletes every transaction in the ledger but
// preserves accounts, including the system accounts. This resets every
// account's computed balance to zero without touching the chart of
// accounts.
func (e *Engine) ClearTransactions(ctx context.Context, ledgerID id.ID, actorID id.ID) error {
	return e.store.WithTx(ctx, func(tx store.Store) error {
		txs, err := tx.ListTransactionsInRange(ctx, ledgerID, time.Time{}, time.Now().UTC().AddDate(100, 0, 0))
		if err != nil {
			return err
		}
		for _, t := range txs {
			if err := tx.DeleteTransaction(ctx, t.ID); err != nil {
				return err
			}
		}
		return appendAudit(ctx, tx, ledgerID, domain.AuditDelete, "ledger_transactions", ledgerID, actorID, len(txs), 0)
	})
}

// ClearAccounts deletes every transaction and every account, then
// recreates the two system accounts with zero balance. This is not
// equivalent to Delete: the ledger row itself, its name, and its owner
// survive.
func (e *Engine) ClearAccounts(ctx context.Context, ledgerID id.ID, actorID id.ID) error {
	return e.store.WithTx(ctx, func(tx store.Store) error {
		accounts, err := tx.ListAccounts(ctx, ledgerID)
		if err != nil {
			return err
		}
		txs, err := tx.ListTransactionsInRange(ctx, ledgerID, time.Time{}, time.Now().UTC().AddDate(100, 0, 0))
		if err != nil {
			return err
		}
		for _, t := range txs {
			if err := tx.DeleteTransaction(ctx, t.ID); err != nil {
				return err
			}
		}
		for _, a := range accounts {
			if err := tx.DeleteAccount(ctx, a.ID); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		cash := systemAccount(ledgerID, domain.SystemAccountCash, domain.AccountAsset, now)
		if err := tx.CreateAccount(ctx, cash); err != nil {
			return err
		}
		equity := systemAccount(ledgerID, domain.SystemAccountEquity, domain.AccountAsset, now)
		if err := tx.CreateAccount(ctx, equity); err != nil {
			return err
		}
		return appendAudit(ctx, tx, ledgerID, domain.AuditDelete, "ledger_accounts", ledgerID, actorID, len(accounts), 0)
	})
}

func appendAudit(ctx context.Context, tx store.Store, ledgerID id.ID, action domain.AuditAction, resourceType string, resourceID id.ID, actorID id.ID, oldValue, newValue interface{}) error {
	return tx.AppendAudit(ctx, domain.AuditLog{
		ID:           id.New(),
		LedgerID:     ledgerID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ActorID:      actorID,
		OldValue:     fmt.Sprintf("%v", oldValue),
		NewValue:     fmt.Sprintf("%v", newValue),
		CreatedAt:    time.Now().UTC(),
	})
}

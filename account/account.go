/*
Package account implements the account engine (component E): chart of
accounts tree CRUD, archiving, deletion with optional reassignment, and
the authoritative (never cached) balance computation.

TREE INVARIANTS:
  Every account has depth in [1,3]. A child's Type must equal its
  parent's Type — the tree never mixes ASSET and EXPENSE nodes under one
  root. (ledger, name) is unique among non-archived accounts only, so an
  archived name can be reused by a fresh account.

BALANCE COMPUTATION:
  Balance walks the ledger's transaction log and applies each account
  type's normal side (see normalSideContribution below), then sums a
  parent's own postings with the recursive balance of its children. This
  mirrors the teacher's BalanceAt walk over a ledger's append-only
  transaction log, generalized from a single numeric resource balance to
  a signed debit/credit contribution per account type.
*/
package account

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

// Engine implements the account-engine operations against a store.Store.
type Engine struct {
	store store.Store
}

func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// DeletionReport is returned by CheckDelete so a caller can decide
// whether to retry with a ReassignTo target.
type DeletionReport struct {
	CanDelete        bool `json:"can_delete"`
	HasChildren      bool `json:"has_children"`
	HasTransactions  bool `json:"has_transactions"`
	TransactionCount int  `json:"transaction_count"`
	ChildCount       int  `json:"child_count"`
}

// Create validates the depth, parent/child type compatibility, and
// (ledger, name) uniqueness before writing a new account.
func (e *Engine) Create(ctx context.Context, ledgerID id.ID, name string, typ domain.AccountType, parentID *id.ID) (domain.Account, error) {
	if name == "" {
		return domain.Account{}, apperr.Validation("account name must not be empty")
	}
	if !typ.Valid() {
		return domain.Account{}, apperr.Validation("invalid account type %q", typ)
	}

	if err := e.checkNameUnique(ctx, ledgerID, name, nil); err != nil {
		return domain.Account{}, err
	}

	depth := 1
	if parentID != nil {
		parent, err := e.store.GetAccount(ctx, *parentID)
		if err != nil {
			return domain.Account{}, err
		}
		if parent.LedgerID != ledgerID {
			return domain.Account{}, apperr.Validation("parent account belongs to a different ledger")
		}
		if parent.Type != typ {
			return domain.Account{}, apperr.Validation("child type %q must match parent type %q", typ, parent.Type)
		}
		depth = parent.Depth + 1
	}
	if depth > domain.MaxAccountDepth {
		return domain.Account{}, apperr.Validation("account depth %d exceeds maximum of %d", depth, domain.MaxAccountDepth)
	}

	now := time.Now().UTC()
	a := domain.Account{
		ID:        id.New(),
		LedgerID:  ledgerID,
		ParentID:  parentID,
		Name:      name,
		Type:      typ,
		Depth:     depth,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.CreateAccount(ctx, a); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

func (e *Engine) checkNameUnique(ctx context.Context, ledgerID id.ID, name string, excludeID *id.ID) error {
	existing, err := e.store.ListAccounts(ctx, ledgerID)
	if err != nil {
		return err
	}
	for _, a := range existing {
		if a.IsArchived || a.Name != name {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		return apperr.Conflict("an account named %q already exists in this ledger", name)
	}
	return nil
}

func (e *Engine) Get(ctx context.Context, accountID id.ID) (domain.Account, error) {
	return e.store.GetAccount(ctx, accountID)
}

func (e *Engine) List(ctx context.Context, ledgerID id.ID) ([]domain.Account, error) {
	return e.store.ListAccounts(ctx, ledgerID)
}

// Rename changes an account's name, re-checking uniqueness.
func (e *Engine) Rename(ctx context.Context, accountID id.ID, newName string) (domain.Account, error) {
	if newName == "" {
		return domain.Account{}, apperr.Validation("account name must not be empty")
	}
	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	if err := e.checkNameUnique(ctx, a.LedgerID, newName, &accountID); err != nil {
		return domain.Account{}, err
	}
	a.Name = newName
	a.UpdatedAt = time.Now().UTC()
	if err := e.store.UpdateAccount(ctx, a); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

// Reparent moves an account (and its whole subtree) under a new parent,
// re-validating depth for the subtree's full height: a subtree of
// height h attached at a node of depth d requires d+h <= MaxAccountDepth.
func (e *Engine) Reparent(ctx context.Context, accountID id.ID, newParentID *id.ID) (domain.Account, error) {
	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	if a.IsSystem {
		return domain.Account{}, apperr.New(apperr.KindForbiddenSystem, "system accounts cannot be reparented")
	}

	height, err := e.subtreeHeight(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}

	newDepth := 1
	if newParentID != nil {
		if *newParentID == accountID {
			return domain.Account{}, apperr.Validation("an account cannot be its own parent")
		}
		parent, err := e.store.GetAccount(ctx, *newParentID)
		if err != nil {
			return domain.Account{}, err
		}
		if parent.LedgerID != a.LedgerID {
			return domain.Account{}, apperr.Validation("parent account belongs to a different ledger")
		}
		if parent.Type != a.Type {
			return domain.Account{}, apperr.Validation("child type %q must match parent type %q", a.Type, parent.Type)
		}
		if isDescendant, err := e.isDescendant(ctx, *newParentID, accountID); err != nil {
			return domain.Account{}, err
		} else if isDescendant {
			return domain.Account{}, apperr.Validation("cannot reparent an account under its own descendant")
		}
		newDepth = parent.Depth + 1
	}
	if newDepth+height-1 > domain.MaxAccountDepth {
		return domain.Account{}, apperr.Validation("moving this subtree would exceed depth %d", domain.MaxAccountDepth)
	}

	if err := e.shiftSubtreeDepth(ctx, accountID, newDepth-a.Depth); err != nil {
		return domain.Account{}, err
	}

	a.ParentID = newParentID
	a.Depth = newDepth
	a.UpdatedAt = time.Now().UTC()
	if err := e.store.UpdateAccount(ctx, a); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

// subtreeHeight returns 1 for a leaf, 2 if it has children, 3 if it has
// grandchildren (the account tree never exceeds depth 3 so this never
// recurses further).
func (e *Engine) subtreeHeight(ctx context.Context, accountID id.ID) (int, error) {
	children, err := e.store.ListChildAccounts(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if len(children) == 0 {
		return 1, nil
	}
	maxChildHeight := 0
	for _, c := range children {
		h, err := e.subtreeHeight(ctx, c.ID)
		if err != nil {
			return 0, err
		}
		if h > maxChildHeight {
			maxChildHeight = h
		}
	}
	return 1 + maxChildHeight, nil
}

func (e *Engine) isDescendant(ctx context.Context, candidateID, ancestorID id.ID) (bool, error) {
	current, err := e.store.GetAccount(ctx, candidateID)
	if err != nil {
		return false, err
	}
	for current.ParentID != nil {
		if *current.ParentID == ancestorID {
			return true, nil
		}
		current, err = e.store.GetAccount(ctx, *current.ParentID)
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

func (e *Engine) shiftSubtreeDepth(ctx context.Context, accountID id.ID, delta int) error {
	if delta == 0 {
		return nil
	}
	children, err := e.store.ListChildAccounts(ctx, accountID)
	if err != nil {
		return err
	}
	for _, c := range children {
		c.Depth += delta
		c.UpdatedAt = time.Now().UTC()
		if err := e.store.UpdateAccount(ctx, c); err != nil {
			return err
		}
		if err := e.shiftSubtreeDepth(ctx, c.ID, delta); err != nil {
			return err
		}
	}
	return nil
}

// Archive soft-deletes an account from the active tree while preserving
// its transaction history; its name becomes reusable by a new account.
func (e *Engine) Archive(ctx context.Context, accountID id.ID) (domain.Account, error) {
	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	if a.IsSystem {
		return domain.Account{}, apperr.New(apperr.KindForbiddenSystem, "system accounts cannot be archived")
	}
	now := time.Now().UTC()
	a.IsArchived = true
	a.ArchivedAt = &now
	a.UpdatedAt = now
	if err := e.store.UpdateAccount(ctx, a); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

// CheckDelete reports whether accountID can be deleted outright, and if
// not, what is blocking it.
func (e *Engine) CheckDelete(ctx context.Context, accountID id.ID) (DeletionReport, error) {
	children, err := e.store.ListChildAccounts(ctx, accountID)
	if err != nil {
		return DeletionReport{}, err
	}
	count, err := e.store.CountAccountTransactions(ctx, accountID)
	if err != nil {
		return DeletionReport{}, err
	}
	report := DeletionReport{
		HasChildren:      len(children) > 0,
		HasTransactions:  count > 0,
		TransactionCount: count,
		ChildCount:       len(children),
	}
	report.CanDelete = !report.HasChildren && !report.HasTransactions
	return report, nil
}

// Delete removes a leaf account with no transactions. System accounts
// are never deletable; accounts with children must be emptied first;
// accounts with transactions must go through DeleteWithReassignment.
func (e *Engine) Delete(ctx context.Context, accountID id.ID, actorID id.ID) error {
	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if a.IsSystem {
		return apperr.New(apperr.KindForbiddenSystem, "system accounts cannot be deleted")
	}
	report, err := e.CheckDelete(ctx, accountID)
	if err != nil {
		return err
	}
	if !report.CanDelete {
		return apperr.Conflict("account has children or transactions; reassign before deleting")
	}
	return e.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.DeleteAccount(ctx, accountID); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, domain.AuditLog{
			ID:           id.New(),
			LedgerID:     a.LedgerID,
			Action:       domain.AuditDelete,
			ResourceType: "account",
			ResourceID:   accountID,
			ActorID:      actorID,
			OldValue:     a.Name,
			CreatedAt:    time.Now().UTC(),
		})
	})
}

// DeleteWithReassignment rewrites every transaction referencing
// accountID to reference replacementID instead, writes a REASSIGN audit
// entry recording the transaction count, then deletes the now-empty
// source account — all in one unit of work.
func (e *Engine) DeleteWithReassignment(ctx context.Context, accountID, replacementID, actorID id.ID) error {
	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if a.IsSystem {
		return apperr.New(apperr.KindForbiddenSystem, "system accounts cannot be deleted")
	}
	replacement, err := e.store.GetAccount(ctx, replacementID)
	if err != nil {
		return err
	}
	if replacement.LedgerID != a.LedgerID {
		return apperr.Validation("replacement account belongs to a different ledger")
	}
	if replacement.Type != a.Type {
		return apperr.Validation("replacement account must be the same type")
	}
	children, err := e.store.ListChildAccounts(ctx, accountID)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return apperr.Conflict("account has children; empty it before reassigning its transactions")
	}

	return e.store.WithTx(ctx, func(tx store.Store) error {
		n, err := tx.ReassignAccountTransactions(ctx, accountID, replacementID)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, domain.AuditLog{
			ID:           id.New(),
			LedgerID:     a.LedgerID,
			Action:       domain.AuditReassign,
			ResourceType: "account",
			ResourceID:   accountID,
			ActorID:      actorID,
			OldValue:     a.Name,
			NewValue:     fmt.Sprintf("%s (%d transactions)", replacement.Name, n),
			CreatedAt:    time.Now().UTC(),
		}); err != nil {
			return err
		}
		return tx.DeleteAccount(ctx, accountID)
	})
}

// normalSideContribution returns the signed contribution of an amount
// posted to an account of typ, on the "to" (debit) or "from" (credit)
// side of a transaction, per the table in the account engine's balance
// computation rules.
func normalSideContribution(typ domain.AccountType, amount money.Amount, isDebitSide bool) money.Amount {
	switch typ {
	case domain.AccountAsset, domain.AccountExpense:
		if isDebitSide {
			return amount
		}
		return amount.Neg()
	case domain.AccountLiability, domain.AccountIncome:
		if isDebitSide {
			return amount.Neg()
		}
		return amount
	default:
		return money.Zero
	}
}

// Balance computes the authoritative balance of accountID as of asOf,
// walking the ledger's transaction log rather than trusting any cached
// column. For a non-leaf account this is the sum of its own direct
// postings (ordinarily zero) and the recursive balance of its children.
func (e *Engine) Balance(ctx context.Context, accountID id.ID, asOf time.Time) (money.Amount, error) {
	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return money.Zero, err
	}

	total, err := e.directBalance(ctx, a, asOf)
	if err != nil {
		return money.Zero, err
	}

	children, err := e.store.ListChildAccounts(ctx, accountID)
	if err != nil {
		return money.Zero, err
	}
	for _, c := range children {
		childBalance, err := e.Balance(ctx, c.ID, asOf)
		if err != nil {
			return money.Zero, err
		}
		total = total.Add(childBalance)
	}
	return total, nil
}

func (e *Engine) directBalance(ctx context.Context, a domain.Account, asOf time.Time) (money.Amount, error) {
	txs, err := e.store.ListTransactionsInRange(ctx, a.LedgerID, time.Time{}, asOf)
	if err != nil {
		return money.Zero, err
	}
	total := money.Zero
	for _, t := range txs {
		if t.ToAccountID == a.ID {
			total = total.Add(normalSideContribution(a.Type, t.Amount, true))
		}
		if t.FromAccountID == a.ID {
			total = total.Add(normalSideContribution(a.Type, t.Amount, false))
		}
	}
	return total, nil
}

package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/ledger"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/store"
	"github.com/pennywise/ledger/store/memory"
)

func newTestLedgerEngine(t *testing.T) (*ledger.Engine, store.Store) {
	t.Helper()
	s := memory.New()
	t.Cleanup(func() { _ = s.Close() })
	return ledger.New(s), s
}

func TestCreateLedgerWritesSystemAccounts(t *testing.T) {
	ctx := context.Background()
	e, s := newTestLedgerEngine(t)
	owner := id.New()

	l, err := e.Create(ctx, owner, "Personal", "USD", money.Zero)
	require.NoError(t, err)
	assert.Equal(t, "Personal", l.Name)

	accounts, err := s.ListAccounts(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	var names []string
	for _, a := range accounts {
		names = append(names, a.Name)
		assert.True(t, a.IsSystem)
	}
	assert.Contains(t, names, domain.SystemAccountCash)
	assert.Contains(t, names, domain.SystemAccountEquity)
}

func TestCreateLedgerWithInitialBalancePostsOpeningTransfer(t *testing.T) {
	ctx := context.Background()
	e, s := newTestLedgerEngine(t)
	owner := id.New()

	opening, err := money.Parse("500.00")
	require.NoError(t, err)

	l, err := e.Create(ctx, owner, "Checking", "USD", opening)
	require.NoError(t, err)

	txs, err := s.ListTransactions(ctx, store.TransactionFilter{LedgerID: l.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxTransfer, txs[0].Type)
	assert.True(t, txs[0].Amount.Equal(opening))
}

func TestCreateLedgerRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestLedgerEngine(t)
	_, err := e.Create(ctx, id.New(), "", "USD", money.Zero)
	assert.Error(t, err)
}

func TestCreateLedgerRejectsNegativeInitialBalance(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestLedgerEngine(t)
	neg, err := money.Parse("-1.00")
	require.NoError(t, err)
	_, err = e.Create(ctx, id.New(), "Checking", "USD", neg)
	assert.Error(t, err)
}

func TestUpdateNameWritesAuditEntry(t *testing.T) {
	ctx := context.Background()
	e, s := newTestLedgerEngine(t)
	owner := id.New()
	l, err := e.Create(ctx, owner, "Old Name", "USD", money.Zero)
	require.NoError(t, err)

	updated, err := e.UpdateName(ctx, l.ID, owner, "New Name")
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)

	logs, err := s.ListAudit(ctx, l.ID, nil, 10)
	require.NoError(t, err)
	var sawUpdate bool
	for _, a := range logs {
		if a.Action == domain.AuditUpdate && a.ResourceType == "ledger" {
			sawUpdate = true
		}
	}
	assert.True(t, sawUpdate)
}

func TestClearTransactionsPreservesAccounts(t *testing.T) {
	ctx := context.Background()
	e, s := newTestLedgerEngine(t)
	owner := id.New()
	opening, err := money.Parse("100.00")
	require.NoError(t, err)
	l, err := e.Create(ctx, owner, "Checking", "USD", opening)
	require.NoError(t, err)

	before, err := s.ListAccounts(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, before, 2)

	require.NoError(t, e.ClearTransactions(ctx, l.ID, owner))

	after, err := s.ListAccounts(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, after, 2, "accounts must survive a transactions clear")

	txs, err := s.ListTransactions(ctx, store.TransactionFilter{LedgerID: l.ID, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestClearAccountsRecreatesSystemAccountsAtZero(t *testing.T) {
	ctx := context.Background()
	e, s := newTestLedgerEngine(t)
	owner := id.New()
	opening, err := money.Parse("100.00")
	require.NoError(t, err)
	l, err := e.Create(ctx, owner, "Checking", "USD", opening)
	require.NoError(t, err)

	require.NoError(t, e.ClearAccounts(ctx, l.ID, owner))

	accounts, err := s.ListAccounts(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	for _, a := range accounts {
		assert.True(t, a.IsSystem)
	}

	txs, err := s.ListTransactions(ctx, store.TransactionFilter{LedgerID: l.ID, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestDeleteLedgerRemovesEverything(t *testing.T) {
	ctx := context.Background()
	e, s := newTestLedgerEngine(t)
	owner := id.New()
	l, err := e.Create(ctx, owner, "Checking", "USD", money.Zero)
	require.NoError(t, err)

	require.NoError(t, e.Delete(ctx, l.ID, owner))

	_, err = s.GetLedger(ctx, l.ID)
	assert.Error(t, err)
}

func TestListForUserOnlyReturnsOwnedLedgers(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestLedgerEngine(t)
	owner1 := id.New()
	owner2 := id.New()

	_, err := e.Create(ctx, owner1, "A", "USD", money.Zero)
	require.NoError(t, err)
	_, err = e.Create(ctx, owner1, "B", "USD", money.Zero)
	require.NoError(t, err)
	_, err = e.Create(ctx, owner2, "C", "USD", money.Zero)
	require.NoError(t, err)

	owned, err := e.ListForUser(ctx, owner1)
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

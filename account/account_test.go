package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennywise/ledger/account"
	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/ledger"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/store"
	"github.com/pennywise/ledger/store/memory"
	"github.com/pennywise/ledger/transaction"
)

type harness struct {
	store   store.Store
	ledgers *ledger.Engine
	accts   *account.Engine
	txs     *transaction.Engine
}

func newHarness(t *testing.T) harness {
	t.Helper()
	s := memory.New()
	t.Cleanup(func() { _ = s.Close() })
	return harness{store: s, ledgers: ledger.New(s), accts: account.New(s), txs: transaction.New(s)}
}

func amt(t *testing.T, v string) money.Amount {
	t.Helper()
	a, err := money.Parse(v)
	require.NoError(t, err)
	return a
}

func cashAccount(t *testing.T, h harness, ledgerID id.ID) domain.Account {
	t.Helper()
	accounts, err := h.store.ListAccounts(context.Background(), ledgerID)
	require.NoError(t, err)
	for _, a := range accounts {
		if a.Name == domain.SystemAccountCash {
			return a
		}
	}
	t.Fatal("cash account not found")
	return domain.Account{}
}

func TestCreateRejectsDepthBeyondMax(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	l, err := h.ledgers.Create(ctx, id.New(), "P", "USD", money.Zero)
	require.NoError(t, err)

	d1, err := h.accts.Create(ctx, l.ID, "Bank", domain.AccountAsset, nil)
	require.NoError(t, err)
	d2, err := h.accts.Create(ctx, l.ID, "Checking", domain.AccountAsset, &d1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, d2.Depth)
	d3, err := h.accts.Create(ctx, l.ID, "Sub-checking", domain.AccountAsset, &d2.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, d3.Depth)

	_, err = h.accts.Create(ctx, l.ID, "Too deep", domain.AccountAsset, &d3.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateRejectsChildTypeMismatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	l, err := h.ledgers.Create(ctx, id.New(), "P", "USD", money.Zero)
	require.NoError(t, err)

	parent, err := h.accts.Create(ctx, l.ID, "Assets", domain.AccountAsset, nil)
	require.NoError(t, err)
	_, err = h.accts.Create(ctx, l.ID, "Rent", domain.AccountExpense, &parent.ID)
	require.Error(t, err)
}

func TestCreateRejectsDuplicateActiveName(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	l, err := h.ledgers.Create(ctx, id.New(), "P", "USD", money.Zero)
	require.NoError(t, err)

	_, err = h.accts.Create(ctx, l.ID, "Rent", domain.AccountExpense, nil)
	require.NoError(t, err)
	_, err = h.accts.Create(ctx, l.ID, "Rent", domain.AccountExpense, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestArchivedNameIsReusable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	l, err := h.ledgers.Create(ctx, id.New(), "P", "USD", money.Zero)
	require.NoError(t, err)

	rent, err := h.accts.Create(ctx, l.ID, "Rent", domain.AccountExpense, nil)
	require.NoError(t, err)
	_, err = h.accts.Archive(ctx, rent.ID)
	require.NoError(t, err)

	fresh, err := h.accts.Create(ctx, l.ID, "Rent", domain.AccountExpense, nil)
	require.NoError(t, err)
	assert.NotEqual(t, rent.ID, fresh.ID)
}

func TestSystemAccountCannotBeArchivedOrDeleted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	l, err := h.ledgers.Create(ctx, id.New(), "P", "USD", money.Zero)
	require.NoError(t, err)
	cash := cashAccount(t, h, l.ID)

	_, err = h.accts.Archive(ctx, cash.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbiddenSystem, apperr.KindOf(err))

	err = h.accts.Delete(ctx, cash.ID, id.New())
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbiddenSystem, apperr.KindOf(err))
}

func TestCheckDeleteReportsBlockers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := id.New()
	l, err := h.ledgers.Create(ctx, owner, "P", "USD", amt(t, "100.00"))
	require.NoError(t, err)
	cash := cashAccount(t, h, l.ID)
	rent, err := h.accts.Create(ctx, l.ID, "Rent", domain.AccountExpense, nil)
	require.NoError(t, err)

	_, err = h.txs.Post(ctx, owner, transaction.PostInput{
		LedgerID: l.ID, Type: domain.TxExpense, FromAccountID: cash.ID, ToAccountID: rent.ID,
		Amount: amt(t, "25.00"), Date: time.Now(),
	})
	require.NoError(t, err)

	report, err := h.accts.CheckDelete(ctx, rent.ID)
	require.NoError(t, err)
	assert.False(t, report.CanDelete)
	assert.True(t, report.HasTransactions)
	assert.Equal(t, 1, report.TransactionCount)

	err = h.accts.Delete(ctx, rent.ID, owner)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestDeleteWithReassignmentMovesTransactionsAndDeletesSource(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := id.New()
	l, err := h.ledgers.Create(ctx, owner, "P", "USD", amt(t, "100.00"))
	require.NoError(t, err)
	cash := cashAccount(t, h, l.ID)
	oldRent, err := h.accts.Create(ctx, l.ID, "Old Rent", domain.AccountExpense, nil)
	require.NoError(t, err)
	newRent, err := h.accts.Create(ctx, l.ID, "New Rent", domain.AccountExpense, nil)
	require.NoError(t, err)

	_, err = h.txs.Post(ctx, owner, transaction.PostInput{
		LedgerID: l.ID, Type: domain.TxExpense, FromAccountID: cash.ID, ToAccountID: oldRent.ID,
		Amount: amt(t, "25.00"), Date: time.Now(),
	})
	require.NoError(t, err)

	err = h.accts.DeleteWithReassignment(ctx, oldRent.ID, newRent.ID, owner)
	require.NoError(t, err)

	_, err = h.accts.Get(ctx, oldRent.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))

	bal, err := h.accts.Balance(ctx, newRent.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, bal.Equal(amt(t, "25.00")))
}

func TestReparentRejectsMovingUnderOwnDescendant(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	l, err := h.ledgers.Create(ctx, id.New(), "P", "USD", money.Zero)
	require.NoError(t, err)

	parent, err := h.accts.Create(ctx, l.ID, "Assets", domain.AccountAsset, nil)
	require.NoError(t, err)
	child, err := h.accts.Create(ctx, l.ID, "Bank", domain.AccountAsset, &parent.ID)
	require.NoError(t, err)

	_, err = h.accts.Reparent(ctx, parent.ID, &child.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestBalanceRollsUpChildrenIntoParent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := id.New()
	l, err := h.ledgers.Create(ctx, owner, "P", "USD", amt(t, "500.00"))
	require.NoError(t, err)
	cash := cashAccount(t, h, l.ID)

	bank, err := h.accts.Create(ctx, l.ID, "Bank", domain.AccountAsset, nil)
	require.NoError(t, err)
	checking, err := h.accts.Create(ctx, l.ID, "Checking", domain.AccountAsset, &bank.ID)
	require.NoError(t, err)

	_, err = h.txs.Post(ctx, owner, transaction.PostInput{
		LedgerID: l.ID, Type: domain.TxTransfer, FromAccountID: cash.ID, ToAccountID: checking.ID,
		Amount: amt(t, "200.00"), Date: time.Now(),
	})
	require.NoError(t, err)

	bankBalance, err := h.accts.Balance(ctx, bank.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, bankBalance.Equal(amt(t, "200.00")), "parent balance should roll up its child's postings")
}

package transaction_test

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
	txs     *transaction.Engine
	accts   *account.Engine
}

func newHarness(t *testing.T) harness {
	t.Helper()
	s := memory.New()
	t.Cleanup(func() { _ = s.Close() })
	return harness{store: s, ledgers: ledger.New(s), txs: transaction.New(s), accts: account.New(s)}
}

func amt(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.Parse(s)
	require.NoError(t, err)
	return a
}

func TestPostExpenseRejectsIncomeAccountPair(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := id.New()
	l, err := h.ledgers.Create(ctx, owner, "P", "USD", money.Zero)
	require.NoError(t, err)
	accounts, err := h.store.ListAccounts(ctx, l.ID)
	require.NoError(t, err)
	var cash domain.Account
	for _, a := range accounts {
		if a.Name == domain.SystemAccountCash {
			cash = a
		}
	}
	salary, err := h.accts.Create(ctx, l.ID, "Salary", domain.AccountIncome, nil)
	require.NoError(t, err)

	_, err = h.txs.Post(ctx, owner, transaction.PostInput{
		LedgerID: l.ID, Type: domain.TxExpense, FromAccountID: cash.ID, ToAccountID: salary.ID,
		Amount: amt(t, "10.00"), Date: time.Now(),
	})
	require.Error(t, err)
}

func TestPostExpenseAllowsLiabilitySource(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := id.New()
	l, err := h.ledgers.Create(ctx, owner, "P", "USD", money.Zero)
	require.NoError(t, err)
	creditCard, err := h.accts.Create(ctx, l.ID, "Credit Card", domain.AccountLiability, nil)
	require.NoError(t, err)
	food, err := h.accts.Create(ctx, l.ID, "Food", domain.AccountExpense, nil)
	require.NoError(t, err)

	tx, err := h.txs.Post(ctx, owner, transaction.PostInput{
		LedgerID: l.ID, Type: domain.TxExpense, FromAccountID: creditCard.ID, ToAccountID: food.ID,
		Amount: amt(t, "25.00"), Date: time.Now(), Description: "groceries",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxExpense, tx.Type)

	bal, err := h.accts.Balance(ctx, food.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, bal.Equal(amt(t, "25.00")))
}

func TestPostRejectsNonLeafAccount(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := id.New()
	l, err := h.ledgers.Create(ctx, owner, "P", "USD", money.Zero)
	require.NoError(t, err)
	accounts, err := h.store.ListAccounts(ctx, l.ID)
	require.NoError(t, err)
	var cash domain.Account
	for _, a := range accounts {
		if a.Name == domain.SystemAccountCash {
			cash = a
		}
	}
	food, err := h.accts.Create(ctx, l.ID, "Food", domain.AccountExpense, nil)
	require.NoError(t, err)
	_, err = h.accts.Create(ctx, l.ID, "Groceries", domain.AccountExpense, &food.ID)
	require.NoError(t, err)

	_, err = h.txs.Post(ctx, owner, transaction.PostInput{
		LedgerID: l.ID, Type: domain.TxExpense, FromAccountID: cash.ID, ToAccountID: food.ID,
		Amount: amt(t, "10.00"), Date: time.Now(),
	})
	require.Error(t, err)
}

func TestPostRejectsZeroAmount(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := id.New()
	l, err := h.ledgers.Create(ctx, owner, "P", "USD", money.Zero)
	require.NoError(t, err)
	food, err := h.accts.Create(ctx, l.ID, "Food", domain.AccountExpense, nil)
	require.NoError(t, err)
	accounts, _ := h.store.ListAccounts(ctx, l.ID)
	var cash domain.Account
	for _, a := range accounts {
		if a.Name == domain.SystemAccountCash {
			cash = a
		}
	}

	_, err = h.txs.Post(ctx, owner, transaction.PostInput{
		LedgerID: l.ID, Type: domain.TxExpense, FromAccountID: cash.ID, ToAccountID: food.ID,
		Amount: money.Zero, Date: time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestListCursorPaginationVisitsEachRowOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := id.New()
	l, err := h.ledgers.Create(ctx, owner, "P", "USD", money.Zero)
	require.NoError(t, err)
	food, err := h.accts.Create(ctx, l.ID, "Food", domain.AccountExpense, nil)
	require.NoError(t, err)
	accounts, _ := h.store.ListAccounts(ctx, l.ID)
	var cash domain.Account
	for _, a := range accounts {
		if a.Name == domain.SystemAccountCash {
			cash = a
		}
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := h.txs.Post(ctx, owner, transaction.PostInput{
			LedgerID: l.ID, Type: domain.TxExpense, FromAccountID: cash.ID, ToAccountID: food.ID,
			Amount: amt(t, "1.00"), Date: base.AddDate(0, 0, i), Description: "day",
		})
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	cursor := ""
	for {
		page, err := h.txs.List(ctx, transaction.ListFilter{LedgerID: l.ID, Cursor: cursor, Limit: 2})
		require.NoError(t, err)
		for _, tx := range page.Transactions {
			assert.False(t, seen[tx.ID.String()], "row visited twice")
			seen[tx.ID.String()] = true
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	assert.Len(t, seen, 5)
}

func TestListInvalidCursorDegradesToFirstPage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := id.New()
	l, err := h.ledgers.Create(ctx, owner, "P", "USD", money.Zero)
	require.NoError(t, err)

	page, err := h.txs.List(ctx, transaction.ListFilter{LedgerID: l.ID, Cursor: "not-a-real-cursor"})
	require.NoError(t, err)
	assert.False(t, page.HasMore)
}

func TestDeleteWritesAuditRow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := id.New()
	l, err := h.ledgers.Create(ctx, owner, "P", "USD", money.Zero)
	require.NoError(t, err)
	food, err := h.accts.Create(ctx, l.ID, "Food", domain.AccountExpense, nil)
	require.NoError(t, err)
	accounts, _ := h.store.ListAccounts(ctx, l.ID)
	var cash domain.Account
	for _, a := range accounts {
		if a.Name == domain.SystemAccountCash {
			cash = a
		}
	}
	tx, err := h.txs.Post(ctx, owner, transaction.PostInput{
		LedgerID: l.ID, Type: domain.TxExpense, FromAccountID: cash.ID, ToAccountID: food.ID,
		Amount: amt(t, "5.00"), Date: time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, h.txs.Delete(ctx, tx.ID, owner))
	_, err = h.store.GetTransaction(ctx, tx.ID)
	require.Error(t, err)

	audit, err := h.store.ListAudit(ctx, l.ID, &tx.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, audit)
	assert.Equal(t, domain.AuditDelete, audit[0].Action)
}

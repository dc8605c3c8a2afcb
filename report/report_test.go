package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennywise/ledger/account"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/ledger"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/report"
	"github.com/pennywise/ledger/store/memory"
	"github.com/pennywise/ledger/transaction"
)

func amt(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.Parse(s)
	require.NoError(t, err)
	return a
}

func TestBalanceSheetIdentityHoldsAfterOpeningBalance(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	t.Cleanup(func() { _ = s.Close() })
	le := ledger.New(s)
	re := report.New(s)
	owner := id.New()

	l, err := le.Create(ctx, owner, "P", "USD", amt(t, "1000.00"))
	require.NoError(t, err)

	bs, err := re.BalanceSheet(ctx, l.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, bs.TotalAssets.Equal(amt(t, "1000.00")))
	assert.True(t, bs.TotalLiabilities.Equal(money.Zero))
	assert.True(t, bs.TotalEquity.Equal(amt(t, "1000.00")))
	assert.True(t, bs.TotalAssets.Equal(bs.TotalLiabilities.Add(bs.TotalEquity)))
}

func TestBalanceSheetRollupAcrossHierarchy(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	t.Cleanup(func() { _ = s.Close() })
	le := ledger.New(s)
	ae := account.New(s)
	te := transaction.New(s)
	re := report.New(s)
	owner := id.New()

	l, err := le.Create(ctx, owner, "P", "USD", money.Zero)
	require.NoError(t, err)

	accounts, err := s.ListAccounts(ctx, l.ID)
	require.NoError(t, err)
	var cash domain.Account
	for _, a := range accounts {
		if a.Name == domain.SystemAccountCash {
			cash = a
		}
	}

	food, err := ae.Create(ctx, l.ID, "Food", domain.AccountExpense, nil)
	require.NoError(t, err)
	groceries, err := ae.Create(ctx, l.ID, "Groceries", domain.AccountExpense, &food.ID)
	require.NoError(t, err)
	restaurants, err := ae.Create(ctx, l.ID, "Restaurants", domain.AccountExpense, &food.ID)
	require.NoError(t, err)

	now := time.Now()
	_, err = te.Post(ctx, owner, transaction.PostInput{
		LedgerID: l.ID, Type: domain.TxExpense, FromAccountID: cash.ID, ToAccountID: groceries.ID,
		Amount: amt(t, "100.00"), Date: now,
	})
	require.NoError(t, err)
	_, err = te.Post(ctx, owner, transaction.PostInput{
		LedgerID: l.ID, Type: domain.TxExpense, FromAccountID: cash.ID, ToAccountID: restaurants.ID,
		Amount: amt(t, "75.00"), Date: now,
	})
	require.NoError(t, err)

	is, err := re.IncomeStatement(ctx, l.ID, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, is.Expenses, 1)
	assert.True(t, is.Expenses[0].Amount.Equal(amt(t, "175.00")))
	assert.True(t, is.TotalExpenses.Equal(amt(t, "175.00")))
	assert.True(t, is.NetIncome.Equal(amt(t, "-175.00")))

	var foodChildren []string
	for _, c := range is.Expenses[0].Children {
		foodChildren = append(foodChildren, c.Name)
	}
	assert.Contains(t, foodChildren, "Groceries")
	assert.Contains(t, foodChildren, "Restaurants")
}

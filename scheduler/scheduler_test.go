package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennywise/ledger/account"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/ledger"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/scheduler"
	"github.com/pennywise/ledger/store"
	"github.com/pennywise/ledger/store/memory"
	"github.com/pennywise/ledger/transaction"
)

func amt(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.Parse(s)
	require.NoError(t, err)
	return a
}

func newLedgerWithExpenseAccount(t *testing.T) (id.ID, id.ID, id.ID, *transaction.Engine, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	t.Cleanup(func() { _ = s.Close() })
	le := ledger.New(s)
	ae := account.New(s)
	txe := transaction.New(s)

	l, err := le.Create(ctx, id.New(), "P", "USD", amt(t, "500.00"))
	require.NoError(t, err)
	accounts, err := s.ListAccounts(ctx, l.ID)
	require.NoError(t, err)
	var cash id.ID
	for _, a := range accounts {
		if a.Name == domain.SystemAccountCash {
			cash = a.ID
		}
	}
	rent, err := ae.Create(ctx, l.ID, "Rent", domain.AccountExpense, nil)
	require.NoError(t, err)
	return l.ID, cash, rent.ID, txe, s
}

func TestRecurringTemplateFirstDueIsStartDate(t *testing.T) {
	ledgerID, cash, rent, txe, s := newLedgerWithExpenseAccount(t)
	re := scheduler.NewRecurringEngine(s, txe)
	ctx := context.Background()

	start := time.Now().AddDate(0, 0, -1)
	tpl, err := re.Create(ctx, scheduler.CreateInput{
		LedgerID: ledgerID, Name: "Rent", Type: domain.TxExpense,
		FromAccountID: cash, ToAccountID: rent, Amount: amt(t, "1200.00"),
		Frequency: domain.FreqMonthly, StartDate: start,
	})
	require.NoError(t, err)
	assert.True(t, scheduler.NextDue(tpl).Equal(start))

	due, err := re.ListDue(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, tpl.ID, due[0].ID)
}

func TestRecurringTemplateApprovePostsAndAdvances(t *testing.T) {
	ledgerID, cash, rent, txe, s := newLedgerWithExpenseAccount(t)
	re := scheduler.NewRecurringEngine(s, txe)
	ctx := context.Background()
	actorID := id.New()

	start := time.Now().AddDate(0, 0, -1)
	tpl, err := re.Create(ctx, scheduler.CreateInput{
		LedgerID: ledgerID, Name: "Rent", Type: domain.TxExpense,
		FromAccountID: cash, ToAccountID: rent, Amount: amt(t, "1200.00"),
		Frequency: domain.FreqMonthly, StartDate: start,
	})
	require.NoError(t, err)

	posted, err := re.Approve(ctx, actorID, tpl.ID)
	require.NoError(t, err)
	assert.True(t, posted.Amount.Equal(amt(t, "1200.00")))

	updated, err := re.Get(ctx, tpl.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastGeneratedDate)
	assert.True(t, updated.LastGeneratedDate.Equal(start))

	due, err := re.ListDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due, "no longer due until next month's date arrives")
}

func TestInstallmentPlanExpandsExactlyAndRemainderOnLast(t *testing.T) {
	ledgerID, cash, rent, txe, s := newLedgerWithExpenseAccount(t)
	ie := scheduler.NewInstallmentEngine(s, txe)
	ctx := context.Background()
	actorID := id.New()

	plan, err := ie.Create(ctx, actorID, scheduler.CreateInstallmentInput{
		LedgerID: ledgerID, Name: "Laptop", Type: domain.TxExpense,
		TotalAmount: amt(t, "1000.00"), InstallmentCount: 3,
		StartDate: time.Now(), FromAccountID: cash, ToAccountID: rent,
	})
	require.NoError(t, err)

	all, err := s.ListTransactions(ctx, store.TransactionFilter{LedgerID: ledgerID, Limit: 100})
	require.NoError(t, err)
	var sum money.Amount
	var installmentTxs int
	for _, tx := range all {
		if tx.InstallmentPlanID != nil && *tx.InstallmentPlanID == plan.ID {
			sum = sum.Add(tx.Amount)
			installmentTxs++
		}
	}
	require.Equal(t, 3, installmentTxs)
	assert.True(t, sum.Equal(amt(t, "1000.00")), "installments must sum exactly to total_amount")
}

func TestEngineStartDoesNotScanGmailJobsImmediately(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	t.Cleanup(func() { _ = s.Close() })
	txe := transaction.New(s)
	re := scheduler.NewRecurringEngine(s, txe)

	connected := domain.GmailScanJob{
		ID: id.New(), LedgerID: id.New(), ConnectionStatus: "CONNECTED",
		Frequency: domain.FreqDaily, Hour: 6, CreatedAt: time.Now(),
	}
	disconnected := domain.GmailScanJob{
		ID: id.New(), LedgerID: id.New(), ConnectionStatus: "DISCONNECTED",
		Frequency: domain.FreqDaily, Hour: 6, CreatedAt: time.Now(),
	}
	require.NoError(t, s.UpsertGmailScanJob(ctx, connected))
	require.NoError(t, s.UpsertGmailScanJob(ctx, disconnected))

	scanned := make(chan id.ID, 1)
	scanFn := func(ctx context.Context, job domain.GmailScanJob) (string, error) {
		scanned <- job.LedgerID
		return "ok", nil
	}
	eng := scheduler.NewEngine(s, re, id.New(), scanFn, zerolog.Nop())
	require.NoError(t, eng.Start(ctx))
	defer eng.Stop()

	eng.RunRecurringNow(ctx) // exercises the daily tick's callback path directly

	select {
	case <-scanned:
		t.Fatal("gmail scan should not fire until its cron entry ticks")
	default:
	}
}

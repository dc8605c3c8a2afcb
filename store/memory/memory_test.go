package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/store"
	"github.com/pennywise/ledger/store/memory"
)

func newLedger(t *testing.T) domain.Ledger {
	t.Helper()
	return domain.Ledger{
		ID:        id.New(),
		OwnerID:   id.New(),
		Name:      "Personal",
		Currency:  "USD",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestCreateAndGetLedger(t *testing.T) {
	s := memory.New()
	l := newLedger(t)
	require.NoError(t, s.CreateLedger(context.Background(), l))

	got, err := s.GetLedger(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.Name, got.Name)
}

func TestGetLedgerNotFound(t *testing.T) {
	s := memory.New()
	_, err := s.GetLedger(context.Background(), id.New())
	assert.Error(t, err)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := memory.New()
	l := newLedger(t)
	require.NoError(t, s.CreateLedger(context.Background(), l))

	boom := assert.AnError
	err := s.WithTx(context.Background(), func(tx store.Store) error {
		l2 := newLedger(t)
		if err := tx.CreateLedger(context.Background(), l2); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	ledgers, err := s.ListLedgers(context.Background(), l.OwnerID)
	require.NoError(t, err)
	assert.Len(t, ledgers, 1, "the second ledger created inside the failed unit of work must not persist")
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	s := memory.New()
	l := newLedger(t)

	err := s.WithTx(context.Background(), func(tx store.Store) error {
		return tx.CreateLedger(context.Background(), l)
	})
	require.NoError(t, err)

	got, err := s.GetLedger(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
}

func TestListTransactionsCursorPagination(t *testing.T) {
	s := memory.New()
	ledgerID := id.New()
	from := id.New()
	to := id.New()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var txs []domain.Transaction
	for i := 0; i < 5; i++ {
		tx := domain.Transaction{
			ID:            id.New(),
			LedgerID:      ledgerID,
			Type:          domain.TxExpense,
			FromAccountID: from,
			ToAccountID:   to,
			Amount:        money.FromCents(100),
			Date:          base.AddDate(0, 0, i),
			CreatedAt:     base,
			UpdatedAt:     base,
		}
		require.NoError(t, s.CreateTransaction(context.Background(), tx))
		txs = append(txs, tx)
	}

	page1, err := s.ListTransactions(context.Background(), store.TransactionFilter{LedgerID: ledgerID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.True(t, page1[0].Date.After(page1[1].Date))

	last := page1[len(page1)-1]
	page2, err := s.ListTransactions(context.Background(), store.TransactionFilter{
		LedgerID:   ledgerID,
		Limit:      2,
		CursorDate: &last.Date,
		CursorID:   &last.ID,
	})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	for _, t2 := range page2 {
		assert.True(t, t2.Date.Before(last.Date) || t2.Date.Equal(last.Date))
	}
}

func TestTokenCountAndRevoke(t *testing.T) {
	s := memory.New()
	userID := id.New()
	tok := domain.ApiToken{
		ID:        id.New(),
		UserID:    userID,
		Name:      "cli",
		TokenHash: "hash",
		Prefix:    "ldo_abcd1234",
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateToken(context.Background(), tok))

	n, err := s.CountActiveTokens(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.RevokeToken(context.Background(), tok.ID, time.Now()))

	n, err = s.CountActiveTokens(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

package importpipeline

import (
	"context"
	"time"

	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/store"
)

// duplicateKey is spec.md §4.G step 6's duplicate tuple: (date, amount,
// from_account_id, to_account_id). Dates compare by calendar day, not
// by exact timestamp, since a parsed row never carries a time-of-day.
type duplicateKey struct {
	date          string
	amount        string
	fromAccountID id.ID
	toAccountID   id.ID
}

func newDuplicateKey(date time.Time, amount money.Amount, fromID, toID id.ID) duplicateKey {
	return duplicateKey{
		date:          date.UTC().Format("2006-01-02"),
		amount:        amount.String(),
		fromAccountID: fromID,
		toAccountID:   toID,
	}
}

// duplicateIndex maps a posted transaction's tuple to its ID so a
// preview can flag a proposed row as a likely repeat import.
type duplicateIndex map[duplicateKey]id.ID

// buildDuplicateIndex loads every transaction already posted in
// [from, to] once, so checking a whole file of rows for duplicates
// costs one range query rather than one query per row.
func buildDuplicateIndex(ctx context.Context, s store.Store, ledgerID id.ID, from, to time.Time) (duplicateIndex, error) {
	txs, err := s.ListTransactionsInRange(ctx, ledgerID, from, to)
	if err != nil {
		return nil, err
	}
	idx := make(duplicateIndex, len(txs))
	for _, t := range txs {
		idx[newDuplicateKey(t.Date, t.Amount, t.FromAccountID, t.ToAccountID)] = t.ID
	}
	return idx, nil
}

// checkDuplicate looks up a proposed row's tuple. It only ever matches
// when both accounts already exist: a row proposing a brand-new
// account can never collide with a previously posted transaction.
func (idx duplicateIndex) checkDuplicate(date time.Time, amount money.Amount, fromID, toID id.ID, fromIsNew, toIsNew bool) (id.ID, bool) {
	if fromIsNew || toIsNew {
		return id.ID{}, false
	}
	txID, ok := idx[newDuplicateKey(date, amount, fromID, toID)]
	return txID, ok
}

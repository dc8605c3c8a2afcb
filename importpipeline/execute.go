package importpipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pennywise/ledger/account"
	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/store"
)

// ExecuteInput carries Phase 2's caller-supplied parameters: the
// session to commit, any per-row account-name overrides the caller
// picked after reviewing the preview, and the set of row numbers to
// drop entirely.
type ExecuteInput struct {
	SessionID       id.ID
	LedgerID        id.ID
	FinalMappings   map[int]RowMapping
	SkipRowNumbers  map[int]bool
	ActorID         id.ID
}

// Execute runs spec.md §4.G Phase 2. It re-parses the session's source
// bytes from store/scratch — never trusting CreatePreview's in-memory
// result across the gap — and commits every non-skipped row inside one
// unit of work. Any failure inside that unit rolls back every account
// and transaction it would have created; the session is then marked
// FAILED with the triggering error, outside the failed unit, so the
// caller can see why.
func (e *Engine) Execute(ctx context.Context, in ExecuteInput) (domain.ImportSession, error) {
	session, err := e.store.GetImportSession(ctx, in.SessionID)
	if err != nil {
		return domain.ImportSession{}, err
	}
	if session.LedgerID != in.LedgerID {
		return domain.ImportSession{}, apperr.Validation("import session %s does not belong to ledger %s", in.SessionID, in.LedgerID)
	}
	if session.Status != domain.ImportPending {
		return domain.ImportSession{}, apperr.Validation("import session %s is not pending (status %s)", in.SessionID, session.Status)
	}

	content, ok, err := e.scratch.Get(session.ID)
	if err != nil {
		return domain.ImportSession{}, err
	}
	if !ok {
		session.Status = domain.ImportFailed
		session.ErrorMessage = "import source is no longer available"
		session.UpdatedAt = time.Now().UTC()
		_ = e.store.UpdateImportSession(ctx, session)
		return domain.ImportSession{}, apperr.Wrap(apperr.KindImportExpired, "import source is no longer available", nil)
	}

	p, err := loadParser(session.ImportType, session.BankCode)
	if err != nil {
		return domain.ImportSession{}, err
	}
	rows, _, err := p.Parse(content)
	if err != nil {
		return domain.ImportSession{}, apperr.Validation("re-parse: %s", err.Error())
	}
	parsed := applyRowOverrides(rows, in.FinalMappings)

	var (
		importedCount, skippedCount, createdAccountsCount int
	)

	txErr := e.store.WithTx(ctx, func(tx store.Store) error {
		importedCount, skippedCount, createdAccountsCount = 0, 0, 0
		accEngine := account.New(tx)

		for _, r := range parsed {
			if in.SkipRowNumbers[r.RowNumber] {
				skippedCount++
				continue
			}

			fromAcct, fromCreated, err := resolveAccountPath(ctx, tx, accEngine, session.LedgerID, r.fromName, r.SuggestedType, true, true)
			if err != nil {
				return fmt.Errorf("row %d: resolve from-account %q: %w", r.RowNumber, r.fromName, err)
			}
			toAcct, toCreated, err := resolveAccountPath(ctx, tx, accEngine, session.LedgerID, r.toName, r.SuggestedType, false, true)
			if err != nil {
				return fmt.Errorf("row %d: resolve to-account %q: %w", r.RowNumber, r.toName, err)
			}
			createdAccountsCount += fromCreated + toCreated

			if err := postImportedRow(ctx, tx, session.LedgerID, in.ActorID, r, fromAcct, toAcct); err != nil {
				return fmt.Errorf("row %d: %w", r.RowNumber, err)
			}
			importedCount++
		}

		session.Status = domain.ImportCompleted
		session.ProgressCurrent = importedCount + skippedCount
		session.ProgressTotal = len(parsed)
		session.ImportedCount = importedCount
		session.SkippedCount = skippedCount
		session.ErrorCount = 0
		session.CreatedAccountsCount = createdAccountsCount
		session.ErrorMessage = ""
		session.UpdatedAt = time.Now().UTC()
		return tx.UpdateImportSession(ctx, session)
	})
	if txErr != nil {
		session.Status = domain.ImportFailed
		session.ErrorMessage = txErr.Error()
		session.UpdatedAt = time.Now().UTC()
		_ = e.store.UpdateImportSession(ctx, session)
		_ = e.scratch.Delete(session.ID)
		return domain.ImportSession{}, apperr.Wrap(apperr.KindOf(txErr), "import execute failed", txErr)
	}

	_ = e.scratch.Delete(session.ID)
	return session, nil
}

// postImportedRow validates and writes one parsed row as a Transaction
// plus its CREATE audit entry against the tx-scoped store. It
// duplicates transaction.Engine.Post's validate-then-write shape rather
// than calling Post directly, since store.Store.WithTx is not reentrant
// (see importpipeline.go's package doc).
func postImportedRow(ctx context.Context, tx store.Store, ledgerID, actorID id.ID, r parsedRow, from, to domain.Account) error {
	if !r.Amount.IsPositive() {
		return apperr.Validation("amount must be positive")
	}
	if from.ID == to.ID {
		return apperr.Validation("from and to accounts must differ")
	}
	if from.LedgerID != ledgerID || to.LedgerID != ledgerID {
		return apperr.Validation("from/to accounts must belong to the import's ledger")
	}
	if err := requireLeafAccount(ctx, tx, from); err != nil {
		return err
	}
	if err := requireLeafAccount(ctx, tx, to); err != nil {
		return err
	}
	matches, ok := domain.TypeMatrix[r.SuggestedType]
	if !ok || !matches(from.Type, to.Type) {
		return apperr.Validation("transaction type %q does not permit %s -> %s", r.SuggestedType, from.Type, to.Type)
	}

	now := time.Now().UTC()
	t := domain.Transaction{
		ID:            id.New(),
		LedgerID:      ledgerID,
		Type:          r.SuggestedType,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        r.Amount,
		Date:          r.Date,
		Description:   r.Description,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.CreateTransaction(ctx, t); err != nil {
		return err
	}
	return tx.AppendAudit(ctx, domain.AuditLog{
		ID:           id.New(),
		LedgerID:     ledgerID,
		Action:       domain.AuditCreate,
		ResourceType: "transaction",
		ResourceID:   t.ID,
		ActorID:      actorID,
		NewValue:     fmt.Sprintf("%+v", t),
		CreatedAt:    now,
	})
}

func requireLeafAccount(ctx context.Context, tx store.Store, a domain.Account) error {
	children, err := tx.ListChildAccounts(ctx, a.ID)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return apperr.Validation("account %q is not a leaf account and cannot appear on a transaction", a.Name)
	}
	return nil
}

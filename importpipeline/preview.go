package importpipeline

import (
	"context"
	"time"

	"github.com/pennywise/ledger/account"
	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/parser"
)

// PreviewInput carries the caller-supplied parameters for Phase 1.
type PreviewInput struct {
	LedgerID   id.ID
	ImportType domain.ImportType
	BankCode   string
	Content    []byte
}

// Preview is CreatePreview's result: the persisted PENDING session plus
// one ProposedTransaction per row the parser accepted, in parse order.
type Preview struct {
	Session     domain.ImportSession
	Proposed    []domain.ProposedTransaction
	ParseErrors []parser.ValidationError
	SampleRows  []domain.ProposedTransaction
	IsValid     bool
}

// CreatePreview runs spec.md §4.G Phase 1: validate the file size,
// select a parser, parse every row tolerantly, propose an account
// mapping and duplicate flag for each, then persist the session and the
// source bytes (the latter in store/scratch, not store.Store — Execute
// re-parses from these bytes rather than trusting this call's
// in-memory result).
func (e *Engine) CreatePreview(ctx context.Context, in PreviewInput) (Preview, error) {
	if int64(len(in.Content)) > e.MaxContentBytes {
		return Preview{}, apperr.Validation("import file of %d bytes exceeds the %d byte limit", len(in.Content), e.MaxContentBytes)
	}

	p, err := loadParser(in.ImportType, in.BankCode)
	if err != nil {
		return Preview{}, err
	}

	rows, parseErrs, err := p.Parse(in.Content)
	if err != nil {
		return Preview{}, apperr.Validation("parse: %s", err.Error())
	}
	if len(rows) > e.MaxRows {
		return Preview{}, apperr.Validation("import file has %d rows, exceeding the limit of %d", len(rows), e.MaxRows)
	}

	parsed := applyRowOverrides(rows, nil)

	var minDate, maxDate time.Time
	for i, r := range parsed {
		if i == 0 || r.Date.Before(minDate) {
			minDate = r.Date
		}
		if i == 0 || r.Date.After(maxDate) {
			maxDate = r.Date
		}
	}

	var dupIdx duplicateIndex
	if len(parsed) > 0 {
		dupIdx, err = buildDuplicateIndex(ctx, e.store, in.LedgerID, minDate, maxDate)
		if err != nil {
			return Preview{}, err
		}
	}

	accEngine := account.New(e.store)
	proposed := make([]domain.ProposedTransaction, 0, len(parsed))
	for _, r := range parsed {
		prop, err := e.proposeRow(ctx, accEngine, in.LedgerID, r, dupIdx)
		if err != nil {
			parseErrs = append(parseErrs, parser.ValidationError{RowNumber: r.RowNumber, Message: err.Error()})
			continue
		}
		proposed = append(proposed, prop)
	}

	now := time.Now().UTC()
	session := domain.ImportSession{
		ID:            id.New(),
		LedgerID:      in.LedgerID,
		ImportType:    in.ImportType,
		BankCode:      in.BankCode,
		Status:        domain.ImportPending,
		ProgressTotal: len(parsed),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.store.CreateImportSession(ctx, session); err != nil {
		return Preview{}, err
	}
	if err := e.scratch.Put(session.ID, in.Content); err != nil {
		return Preview{}, err
	}

	sample := proposed
	if len(sample) > e.SampleRows {
		sample = sample[:e.SampleRows]
	}

	return Preview{
		Session:     session,
		Proposed:    proposed,
		ParseErrors: parseErrs,
		SampleRows:  sample,
		IsValid:     len(proposed) > 0,
	}, nil
}

// proposeRow resolves a row's account mapping (without creating
// anything — mutate=false), suggests a category for expense rows, and
// flags it as a duplicate when both accounts already exist and its
// tuple matches a previously posted transaction.
func (e *Engine) proposeRow(ctx context.Context, accEngine *account.Engine, ledgerID id.ID, r parsedRow, dupIdx duplicateIndex) (domain.ProposedTransaction, error) {
	fromAcct, fromCreated, err := resolveAccountPath(ctx, e.store, accEngine, ledgerID, r.fromName, r.SuggestedType, true, false)
	if err != nil {
		return domain.ProposedTransaction{}, err
	}
	toAcct, toCreated, err := resolveAccountPath(ctx, e.store, accEngine, ledgerID, r.toName, r.SuggestedType, false, false)
	if err != nil {
		return domain.ProposedTransaction{}, err
	}
	fromIsNew, toIsNew := fromCreated > 0, toCreated > 0

	prop := domain.ProposedTransaction{
		Date:            r.Date,
		Description:     r.Description,
		Amount:          r.Amount.String(),
		FromAccountName: r.fromName,
		ToAccountName:   r.toName,
		IsNewAccount:    fromIsNew || toIsNew,
	}

	if r.SuggestedType == domain.TxExpense {
		suggestion := e.suggest.Suggest(r.Description)
		suggestion = e.enhancer.Enhance(ctx, r.Description, suggestion)
		prop.SuggestedCategory = suggestion.SuggestedAccountName
		prop.CategoryConfidence = suggestion.Confidence
	}

	if dupIdx != nil {
		if txID, ok := dupIdx.checkDuplicate(r.Date, r.Amount, fromAcct.ID, toAcct.ID, fromIsNew, toIsNew); ok {
			prop.IsDuplicate = true
			matched := txID
			prop.DuplicateOfTxID = &matched
		}
	}
	return prop, nil
}

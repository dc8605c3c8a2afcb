package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/money"
)

// CreateTemplateInput mirrors domain.TransactionTemplate's user-supplied
// fields; ID and timestamps are assigned by the engine.
type CreateTemplateInput struct {
	LedgerID      id.ID
	Name          string
	Type          domain.TransactionType
	FromAccountID id.ID
	ToAccountID   id.ID
	Amount        money.Amount
	Description   string
	SortOrder     int
}

// CreateTemplate saves a one-click preset. Unlike Post, it does not
// validate the from/to account pair against domain.TypeMatrix: a
// template is a draft shape, not a posting, and its accounts are
// re-validated the moment ApplyTemplate turns it into a real transaction.
func (e *Engine) CreateTemplate(ctx context.Context, in CreateTemplateInput) (domain.TransactionTemplate, error) {
	if in.Name == "" {
		return domain.TransactionTemplate{}, apperr.Validation("template name must not be empty")
	}
	now := time.Now().UTC()
	t := domain.TransactionTemplate{
		ID:            id.New(),
		LedgerID:      in.LedgerID,
		Name:          in.Name,
		Type:          in.Type,
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		Amount:        in.Amount,
		Description:   in.Description,
		SortOrder:     in.SortOrder,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.store.CreateTemplate(ctx, t); err != nil {
		return domain.TransactionTemplate{}, fmt.Errorf("transaction: create template: %w", err)
	}
	return t, nil
}

// ListTemplates returns every preset defined on a ledger, in SortOrder.
func (e *Engine) ListTemplates(ctx context.Context, ledgerID id.ID) ([]domain.TransactionTemplate, error) {
	templates, err := e.store.ListTemplates(ctx, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("transaction: list templates: %w", err)
	}
	return templates, nil
}

func (e *Engine) DeleteTemplate(ctx context.Context, templateID id.ID) error {
	if err := e.store.DeleteTemplate(ctx, templateID); err != nil {
		return fmt.Errorf("transaction: delete template: %w", err)
	}
	return nil
}

// ApplyTemplate posts a real transaction from a saved preset, optionally
// overriding amount and date (the two fields that vary call to call —
// "Rent" is always the same accounts but not always the same day paid).
// store.Store indexes templates by ledger, not by a standalone getter, so
// this scans the ledger's templates for the matching ID.
func (e *Engine) ApplyTemplate(ctx context.Context, actorID, ledgerID, templateID id.ID, amountOverride *money.Amount, date time.Time) (domain.Transaction, error) {
	templates, err := e.store.ListTemplates(ctx, ledgerID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction: list templates: %w", err)
	}
	var tmpl *domain.TransactionTemplate
	for i := range templates {
		if templates[i].ID == templateID {
			tmpl = &templates[i]
			break
		}
	}
	if tmpl == nil {
		return domain.Transaction{}, apperr.NotFound("template", templateID.String())
	}

	amount := tmpl.Amount
	if amountOverride != nil {
		amount = *amountOverride
	}
	return e.Post(ctx, actorID, PostInput{
		LedgerID:      tmpl.LedgerID,
		Type:          tmpl.Type,
		FromAccountID: tmpl.FromAccountID,
		ToAccountID:   tmpl.ToAccountID,
		Amount:        amount,
		Date:          date,
		Description:   tmpl.Description,
	})
}

package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
)

// CreateTag creates a ledger-scoped label, unique per (LedgerID, Name).
// Tags are referenced by PostInput.TagIDs; the engine does not validate
// that a posted tag ID exists, the same way it does not validate
// Description — a dangling tag ID is a client bug, not a posting error.
func (e *Engine) CreateTag(ctx context.Context, ledgerID id.ID, name, color string) (domain.Tag, error) {
	if name == "" {
		return domain.Tag{}, apperr.Validation("tag name must not be empty")
	}
	if _, err := e.store.GetTagByName(ctx, ledgerID, name); err == nil {
		return domain.Tag{}, apperr.Conflict("tag %q already exists", name)
	} else if !apperr.IsNotFound(err) {
		return domain.Tag{}, fmt.Errorf("transaction: check existing tag: %w", err)
	}

	t := domain.Tag{
		ID:        id.New(),
		LedgerID:  ledgerID,
		Name:      name,
		Color:     color,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.CreateTag(ctx, t); err != nil {
		return domain.Tag{}, fmt.Errorf("transaction: create tag: %w", err)
	}
	return t, nil
}

// ListTags returns every tag defined on a ledger.
func (e *Engine) ListTags(ctx context.Context, ledgerID id.ID) ([]domain.Tag, error) {
	tags, err := e.store.ListTags(ctx, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("transaction: list tags: %w", err)
	}
	return tags, nil
}

/*
installment.go implements installment-plan expansion (spec.md §4.J):
creation eagerly posts installment_count transactions dated
start_date + k months, k = 0..n-1. Each of the first n-1 installments is
total/n rounded to cents; the last absorbs whatever remainder keeps the
sum exactly equal to total_amount, so reporting never drifts by a cent.
*/
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/store"
	"github.com/pennywise/ledger/transaction"
)

// InstallmentEngine implements installment-plan create/get/list/delete.
// Plans are not themselves polled by the scheduler; they expand once,
// synchronously, at creation time.
type InstallmentEngine struct {
	store store.Store
	tx    *transaction.Engine
}

func NewInstallmentEngine(s store.Store, tx *transaction.Engine) *InstallmentEngine {
	return &InstallmentEngine{store: s, tx: tx}
}

type CreateInstallmentInput struct {
	LedgerID         id.ID
	Name             string
	Type             domain.TransactionType
	TotalAmount      money.Amount
	InstallmentCount int
	StartDate        time.Time
	FromAccountID    id.ID
	ToAccountID      id.ID
}

// Create validates the plan, writes it, then posts InstallmentCount
// transactions through the transaction engine — one CREATE audit row
// per installment, same as any other posting.
func (e *InstallmentEngine) Create(ctx context.Context, actorID id.ID, in CreateInstallmentInput) (domain.InstallmentPlan, error) {
	if in.Name == "" {
		return domain.InstallmentPlan{}, apperr.Validation("installment plan name must not be empty")
	}
	if in.InstallmentCount <= 1 {
		return domain.InstallmentPlan{}, apperr.Validation("installment_count must be greater than 1")
	}
	if !in.TotalAmount.IsPositive() {
		return domain.InstallmentPlan{}, apperr.Validation("total_amount must be positive")
	}
	if in.FromAccountID == in.ToAccountID {
		return domain.InstallmentPlan{}, apperr.Validation("from and to accounts must differ")
	}

	now := time.Now().UTC()
	p := domain.InstallmentPlan{
		ID:               id.New(),
		LedgerID:         in.LedgerID,
		Name:             in.Name,
		Type:             in.Type,
		TotalAmount:      in.TotalAmount,
		InstallmentCount: in.InstallmentCount,
		StartDate:        in.StartDate,
		FromAccountID:    in.FromAccountID,
		ToAccountID:      in.ToAccountID,
		CreatedAt:        now,
	}
	if err := e.store.CreateInstallmentPlan(ctx, p); err != nil {
		return domain.InstallmentPlan{}, fmt.Errorf("scheduler: create installment plan: %w", err)
	}

	for k, amt := range splitAmount(in.TotalAmount, in.InstallmentCount) {
		n := k + 1
		planID := p.ID
		date := in.StartDate.AddDate(0, k, 0)
		_, err := e.tx.Post(ctx, actorID, transaction.PostInput{
			LedgerID:          in.LedgerID,
			Type:              in.Type,
			FromAccountID:     in.FromAccountID,
			ToAccountID:       in.ToAccountID,
			Amount:            amt,
			Date:              date,
			Description:       fmt.Sprintf("%s (installment %d/%d)", in.Name, n, in.InstallmentCount),
			InstallmentPlanID: &planID,
			InstallmentNumber: &n,
		})
		if err != nil {
			return domain.InstallmentPlan{}, fmt.Errorf("scheduler: post installment %d/%d: %w", n, in.InstallmentCount, err)
		}
	}
	return p, nil
}

// splitAmount divides total into n parts, each rounded to cents, with
// the remainder from rounding added to the final part.
func splitAmount(total money.Amount, n int) []money.Amount {
	part := total.DivRound(int64(n))
	out := make([]money.Amount, n)
	sum := money.Zero
	for i := 0; i < n-1; i++ {
		out[i] = part
		sum = sum.Add(part)
	}
	out[n-1] = total.Sub(sum)
	return out
}

func (e *InstallmentEngine) Get(ctx context.Context, planID id.ID) (domain.InstallmentPlan, error) {
	return e.store.GetInstallmentPlan(ctx, planID)
}

func (e *InstallmentEngine) List(ctx context.Context, ledgerID id.ID) ([]domain.InstallmentPlan, error) {
	return e.store.ListInstallmentPlans(ctx, ledgerID)
}

func (e *InstallmentEngine) Delete(ctx context.Context, planID id.ID) error {
	return e.store.DeleteInstallmentPlan(ctx, planID)
}

/*
Package report implements the reporting engine (component H): a
point-in-time balance sheet and a period income statement, both built
from a single traversal of a ledger's accounts and transactions rather
than from the account engine's per-account Balance calls, so the whole
report costs one pass over the transaction log instead of one pass per
node.

EQUITY AS A SYNTHESIZED LINE:
  The Equity system account is stored with AccountType ASSET (see
  DESIGN.md's resolution of spec.md §9's first Open Question) but is
  excluded from the asset tree here and replaced by a synthesized line
  equal to total assets minus total liabilities, so the accounting
  identity total_assets == total_liabilities + total_equity holds by
  construction rather than by coincidence of how Equity happens to be
  posted to.
*/
package report

import (
	"context"
	"sort"
	"time"

	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/store"
)

// Engine implements the reporting-engine operations against a store.Store.
type Engine struct {
	store store.Store
}

func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// Node is one row of a rendered report tree; Children is nil for a leaf.
type Node struct {
	AccountID *id.ID       `json:"account_id,omitempty"`
	Name      string       `json:"name"`
	Amount    money.Amount `json:"amount"`
	Depth     int          `json:"depth_level"`
	Children  []*Node      `json:"children,omitempty"`
}

// BalanceSheet is the report returned by BalanceSheet.
type BalanceSheet struct {
	AsOf            time.Time    `json:"as_of"`
	Assets          []*Node      `json:"assets"`
	Liabilities     []*Node      `json:"liabilities"`
	Equity          *Node        `json:"equity"`
	TotalAssets     money.Amount `json:"total_assets"`
	TotalLiabilities money.Amount `json:"total_liabilities"`
	TotalEquity     money.Amount `json:"total_equity"`
}

// IncomeStatement is the report returned by IncomeStatement.
type IncomeStatement struct {
	Start          time.Time    `json:"start"`
	End            time.Time    `json:"end"`
	Income         []*Node      `json:"income"`
	Expenses       []*Node      `json:"expenses"`
	TotalIncome    money.Amount `json:"total_income"`
	TotalExpenses  money.Amount `json:"total_expenses"`
	NetIncome      money.Amount `json:"net_income"`
}

// ledgerWalk holds the per-account direct-posting totals computed from
// one pass over the ledger's transactions, reusable by both reports.
type ledgerWalk struct {
	accounts map[id.ID]domain.Account
	children map[id.ID][]id.ID
	direct   map[id.ID]money.Amount
}

func (e *Engine) walk(accounts []domain.Account, txs []domain.Transaction) ledgerWalk {
	w := ledgerWalk{
		accounts: make(map[id.ID]domain.Account, len(accounts)),
		children: make(map[id.ID][]id.ID),
		direct:   make(map[id.ID]money.Amount, len(accounts)),
	}
	for _, a := range accounts {
		w.accounts[a.ID] = a
		w.direct[a.ID] = money.Zero
		if a.ParentID != nil {
			w.children[*a.ParentID] = append(w.children[*a.ParentID], a.ID)
		}
	}
	for _, t := range txs {
		if from, ok := w.accounts[t.FromAccountID]; ok {
			w.direct[from.ID] = w.direct[from.ID].Add(normalSide(from.Type, t.Amount, false))
		}
		if to, ok := w.accounts[t.ToAccountID]; ok {
			w.direct[to.ID] = w.direct[to.ID].Add(normalSide(to.Type, t.Amount, true))
		}
	}
	return w
}

// normalSide mirrors account.normalSideContribution (duplicated rather
// than imported to keep the reporting engine independent of the
// account engine's internals; both are grounded on spec.md §4.E's table).
func normalSide(typ domain.AccountType, amount money.Amount, isDebitSide bool) money.Amount {
	switch typ {
	case domain.AccountAsset, domain.AccountExpense:
		if isDebitSide {
			return amount
		}
		return amount.Neg()
	case domain.AccountLiability, domain.AccountIncome:
		if isDebitSide {
			return amount.Neg()
		}
		return amount
	default:
		return money.Zero
	}
}

// rollup folds a subtree bottom-up into a Node, returning its total
// (own direct posting plus every descendant's).
func (w ledgerWalk) rollup(accountID id.ID) (*Node, money.Amount) {
	a := w.accounts[accountID]
	total := w.direct[accountID]

	childIDs := append([]id.ID(nil), w.children[accountID]...)
	sort.Slice(childIDs, func(i, j int) bool {
		return w.accounts[childIDs[i]].SortOrder < w.accounts[childIDs[j]].SortOrder
	})

	var children []*Node
	for _, cid := range childIDs {
		childNode, childTotal := w.rollup(cid)
		children = append(children, childNode)
		total = total.Add(childTotal)
	}

	id := a.ID
	return &Node{AccountID: &id, Name: a.Name, Amount: total, Depth: a.Depth, Children: children}, total
}

// roots returns the depth-1 accounts of the given type, excluding any
// account for which exclude returns true.
func roots(accounts []domain.Account, typ domain.AccountType, exclude func(domain.Account) bool) []domain.Account {
	var out []domain.Account
	for _, a := range accounts {
		if a.Type != typ || a.ParentID != nil {
			continue
		}
		if exclude != nil && exclude(a) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// BalanceSheet traverses every transaction with date <= asOf and builds
// the ASSET and LIABILITY trees plus a synthesized EQUITY line, so that
// total_assets == total_liabilities + total_equity by construction.
func (e *Engine) BalanceSheet(ctx context.Context, ledgerID id.ID, asOf time.Time) (BalanceSheet, error) {
	accounts, err := e.store.ListAccounts(ctx, ledgerID)
	if err != nil {
		return BalanceSheet{}, err
	}
	txs, err := e.store.ListTransactionsInRange(ctx, ledgerID, time.Time{}, asOf)
	if err != nil {
		return BalanceSheet{}, err
	}
	w := e.walk(accounts, txs)

	isEquity := func(a domain.Account) bool { return a.IsSystem && a.Name == domain.SystemAccountEquity }

	assetRoots := roots(accounts, domain.AccountAsset, isEquity)
	liabilityRoots := roots(accounts, domain.AccountLiability, nil)

	var assetNodes, liabilityNodes []*Node
	totalAssets := money.Zero
	for _, a := range assetRoots {
		n, total := w.rollup(a.ID)
		assetNodes = append(assetNodes, n)
		totalAssets = totalAssets.Add(total)
	}
	totalLiabilities := money.Zero
	for _, a := range liabilityRoots {
		n, total := w.rollup(a.ID)
		liabilityNodes = append(liabilityNodes, n)
		totalLiabilities = totalLiabilities.Add(total)
	}

	totalEquity := totalAssets.Sub(totalLiabilities)
	equityNode := &Node{Name: "Equity", Amount: totalEquity, Depth: 1}

	return BalanceSheet{
		AsOf:             asOf,
		Assets:           assetNodes,
		Liabilities:      liabilityNodes,
		Equity:           equityNode,
		TotalAssets:      totalAssets,
		TotalLiabilities: totalLiabilities,
		TotalEquity:      totalEquity,
	}, nil
}

// IncomeStatement traverses every transaction with start <= date <= end
// and builds the INCOME and EXPENSE trees.
func (e *Engine) IncomeStatement(ctx context.Context, ledgerID id.ID, start, end time.Time) (IncomeStatement, error) {
	accounts, err := e.store.ListAccounts(ctx, ledgerID)
	if err != nil {
		return IncomeStatement{}, err
	}
	txs, err := e.store.ListTransactionsInRange(ctx, ledgerID, start, end)
	if err != nil {
		return IncomeStatement{}, err
	}
	w := e.walk(accounts, txs)

	incomeRoots := roots(accounts, domain.AccountIncome, nil)
	expenseRoots := roots(accounts, domain.AccountExpense, nil)

	var incomeNodes, expenseNodes []*Node
	totalIncome := money.Zero
	for _, a := range incomeRoots {
		n, total := w.rollup(a.ID)
		incomeNodes = append(incomeNodes, n)
		totalIncome = totalIncome.Add(total)
	}
	totalExpenses := money.Zero
	for _, a := range expenseRoots {
		n, total := w.rollup(a.ID)
		expenseNodes = append(expenseNodes, n)
		totalExpenses = totalExpenses.Add(total)
	}

	return IncomeStatement{
		Start:         start,
		End:           end,
		Income:        incomeNodes,
		Expenses:      expenseNodes,
		TotalIncome:   totalIncome,
		TotalExpenses: totalExpenses,
		NetIncome:     totalIncome.Sub(totalExpenses),
	}, nil
}

package importpipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/pennywise/ledger/account"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/store"
)

// accountPrefixes is spec.md §4.G step 5's "unambiguous prefix
// convention" for inferring an account's type from a parser-supplied
// name that doesn't already match an existing account.
var accountPrefixes = map[string]domain.AccountType{
	"A-": domain.AccountAsset,
	"L-": domain.AccountLiability,
	"I-": domain.AccountIncome,
	"E-": domain.AccountExpense,
}

// splitPrefixedName strips a recognized A-/L-/I-/E- prefix from raw. ok
// is false when raw carries none, in which case the caller falls back
// to inferredType.
func splitPrefixedName(raw string) (name string, typ domain.AccountType, ok bool) {
	for prefix, t := range accountPrefixes {
		if strings.HasPrefix(raw, prefix) {
			return strings.TrimPrefix(raw, prefix), t, true
		}
	}
	return raw, "", false
}

// inferredType is the fallback when a name carries no recognized
// prefix: the account type falls out of which side of its
// TransactionType the name occupies, per spec.md §4.G step 5's
// "credit-card rows are always LIABILITY -> EXPENSE" example
// generalized to every TypeMatrix entry.
func inferredType(txType domain.TransactionType, isFromSide bool) domain.AccountType {
	switch txType {
	case domain.TxExpense:
		if isFromSide {
			return domain.AccountAsset
		}
		return domain.AccountExpense
	case domain.TxIncome:
		if isFromSide {
			return domain.AccountIncome
		}
		return domain.AccountAsset
	default: // TxTransfer and any future type: default to ASSET
		return domain.AccountAsset
	}
}

// accountPath splits a dotted hierarchical account name ("Food.Dining")
// into its segments; a flat name is a single-segment path.
func accountPath(name string) []string {
	segments := strings.Split(name, ".")
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func findChildByName(existing []domain.Account, parentID *id.ID, name string) (domain.Account, bool) {
	for _, a := range existing {
		if a.IsArchived || a.Name != name {
			continue
		}
		if (a.ParentID == nil) != (parentID == nil) {
			continue
		}
		if parentID != nil && a.ParentID != nil && *a.ParentID != *parentID {
			continue
		}
		return a, true
	}
	return domain.Account{}, false
}

// resolveAccountPath finds the leaf account named by rawName within
// ledgerID, creating any missing path segment (including intermediate
// parents) when mutate is true. Preview calls this with mutate=false so
// it can report is_new_account without writing anything; Execute calls
// it with mutate=true inside its own unit of work, passing an
// account.Engine built over the tx-scoped store.Store (never one that
// itself calls WithTx — see importpipeline.go's package doc).
//
// createdCount is the number of path segments actually created (0 when
// the whole path already existed); callers that only need a boolean
// compare it against 0. With mutate false nothing is created and it is
// 1 as soon as a missing segment is found.
func resolveAccountPath(ctx context.Context, s store.Store, accEngine *account.Engine, ledgerID id.ID, rawName string, txType domain.TransactionType, isFromSide, mutate bool) (acct domain.Account, createdCount int, err error) {
	name, typ, hasPrefix := splitPrefixedName(rawName)
	if !hasPrefix {
		name = rawName
		typ = inferredType(txType, isFromSide)
	}
	segments := accountPath(name)
	if len(segments) == 0 {
		return domain.Account{}, 0, errEmptyAccountName
	}
	if len(segments) > domain.MaxAccountDepth {
		return domain.Account{}, 0, &pathTooDeepError{raw: rawName, depth: len(segments)}
	}

	existing, err := s.ListAccounts(ctx, ledgerID)
	if err != nil {
		return domain.Account{}, 0, err
	}

	var parentID *id.ID
	var current domain.Account
	created := 0
	for _, segment := range segments {
		if found, ok := findChildByName(existing, parentID, segment); ok {
			current = found
			parentID = &current.ID
			continue
		}
		if !mutate {
			return domain.Account{}, 1, nil
		}
		newAcct, err := accEngine.Create(ctx, ledgerID, segment, typ, parentID)
		if err != nil {
			return domain.Account{}, created, err
		}
		existing = append(existing, newAcct)
		current = newAcct
		parentID = &current.ID
		created++
	}
	return current, created, nil
}

var errEmptyAccountName = &emptyAccountNameError{}

type emptyAccountNameError struct{}

func (*emptyAccountNameError) Error() string { return "importpipeline: empty account name" }

// pathTooDeepError is spec.md §9's Open Question 2, resolved: a
// hierarchical account path longer than domain.MaxAccountDepth segments
// is rejected outright rather than silently truncated.
type pathTooDeepError struct {
	raw   string
	depth int
}

func (e *pathTooDeepError) Error() string {
	return fmt.Sprintf("account path %q has %d segments, exceeding the maximum depth of %d", e.raw, e.depth, domain.MaxAccountDepth)
}

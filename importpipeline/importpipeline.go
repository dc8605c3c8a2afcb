/*
Package importpipeline implements the import pipeline (component G,
spec.md §4.G — "hardest subsystem"): a two-phase preview/execute flow
that turns a user-supplied file into posted transactions, with
duplicate detection and atomic rollback.

WHY TWO PHASES:
  Phase 1 (CreatePreview) parses the file, proposes an account mapping
  and duplicate flags for every row, and persists an ImportSession in
  state PENDING — but posts nothing. Phase 2 (Execute) re-parses the
  same source bytes from store/scratch (never trusting the preview's
  in-memory result across the gap, since the caller may act on the
  preview minutes or days later) and commits every non-skipped row in
  one unit of work.

WHY EXECUTE DOES NOT CALL transaction.Engine.Post OR account.Engine's
WithTx-wrapped methods:
  store.Store.WithTx is not reentrant on either backend (store/memory
  and store/sqlite both serialize on one non-recursive lock inside
  WithTx) — a second WithTx call from inside Execute's own unit of work
  would deadlock. account.Engine.Create never calls WithTx itself, so
  it is safe to construct a fresh account.Engine over the tx-scoped
  store.Store Execute's WithTx closure receives and call Create
  directly; posting a transaction, however, is inlined here rather than
  calling transaction.Engine.Post (which does call WithTx), duplicating
  Post's validate-then-write shape against the tx-scoped store instead.
*/
package importpipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pennywise/ledger/account"
	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/parser"
	"github.com/pennywise/ledger/parser/category"
	"github.com/pennywise/ledger/store"
	"github.com/pennywise/ledger/store/scratch"
)

// Defaults for the configured limits spec.md §4.G names explicitly.
const (
	DefaultMaxContentBytes = 10 * 1024 * 1024
	DefaultMaxRows         = 2000
	DefaultSampleRows      = 10
)

// CategoryEnhancer optionally refines a rule-based category suggestion
// (e.g. with an LLM). Wiring a real provider is out of scope per
// spec.md §1; NoopEnhancer is the default and every preview still works
// from the rule-based category.Suggester alone.
type CategoryEnhancer interface {
	Enhance(ctx context.Context, description string, ruleBased category.Suggestion) category.Suggestion
}

// NoopEnhancer returns the rule-based suggestion unchanged.
type NoopEnhancer struct{}

func (NoopEnhancer) Enhance(ctx context.Context, description string, ruleBased category.Suggestion) category.Suggestion {
	return ruleBased
}

// Engine implements the import pipeline against a store.Store plus a
// scratch.Store for the cross-phase source bytes.
type Engine struct {
	store    store.Store
	scratch  *scratch.Store
	suggest  *category.Suggester
	enhancer CategoryEnhancer

	MaxContentBytes int64
	MaxRows         int
	SampleRows      int
}

// New builds an Engine with spec.md's default limits. Callers needing
// different limits set the exported fields directly.
func New(s store.Store, scratchStore *scratch.Store) *Engine {
	return &Engine{
		store:           s,
		scratch:         scratchStore,
		suggest:         category.New(),
		enhancer:        NoopEnhancer{},
		MaxContentBytes: DefaultMaxContentBytes,
		MaxRows:         DefaultMaxRows,
		SampleRows:      DefaultSampleRows,
	}
}

// WithEnhancer replaces the default no-op CategoryEnhancer.
func (e *Engine) WithEnhancer(enhancer CategoryEnhancer) *Engine {
	e.enhancer = enhancer
	return e
}

func contentDigest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// parsedRow bundles one parser.ParsedTransaction with the account names
// it actually resolves to after an optional final-mapping override, so
// preview and execute share one resolution path.
type parsedRow struct {
	parser.ParsedTransaction
	fromName string
	toName   string
}

func applyRowOverrides(rows []parser.ParsedTransaction, overrides map[int]RowMapping) []parsedRow {
	out := make([]parsedRow, len(rows))
	for i, r := range rows {
		out[i] = parsedRow{ParsedTransaction: r, fromName: r.FromAccountName, toName: r.ToAccountName}
		if ov, ok := overrides[r.RowNumber]; ok {
			if ov.FromAccountName != "" {
				out[i].fromName = ov.FromAccountName
			}
			if ov.ToAccountName != "" {
				out[i].toName = ov.ToAccountName
			}
		}
	}
	return out
}

// RowMapping lets a caller override the account names a parser
// proposed for one row before Execute commits it — e.g. picking the
// category.Suggester's suggestion over the parser's literal merchant
// description, or correcting a misattributed account.
type RowMapping struct {
	FromAccountName string
	ToAccountName   string
}

func loadParser(importType domain.ImportType, bankCode string) (parser.Parser, error) {
	p, err := parser.Lookup(importType, bankCode)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	return p, nil
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/pennywise/ledger/account"
	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/auth"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/importpipeline"
	"github.com/pennywise/ledger/ledger"
	"github.com/pennywise/ledger/report"
	"github.com/pennywise/ledger/scheduler"
	"github.com/pennywise/ledger/store"
	"github.com/pennywise/ledger/transaction"
)

// Handler holds every engine the HTTP edge dispatches to. It carries no
// business logic of its own (SPEC_FULL.md §4.L) — each method below
// decodes a request, calls the engine (or store) methods it needs, and
// encodes the result or the error.
type Handler struct {
	store       store.Store
	ledgers     *ledger.Engine
	accounts    *account.Engine
	tx          *transaction.Engine
	reports     *report.Engine
	tokens      *auth.TokenEngine
	channels    *auth.ChannelEngine
	recurring   *scheduler.RecurringEngine
	installment *scheduler.InstallmentEngine
	imports     *importpipeline.Engine
	emailAuth   *auth.EmailAuthEngine
	sched       *scheduler.Engine
}

func NewHandler(
	s store.Store,
	ledgers *ledger.Engine,
	accounts *account.Engine,
	tx *transaction.Engine,
	reports *report.Engine,
	tokens *auth.TokenEngine,
	channels *auth.ChannelEngine,
	recurring *scheduler.RecurringEngine,
	installment *scheduler.InstallmentEngine,
	imports *importpipeline.Engine,
	emailAuth *auth.EmailAuthEngine,
	sched *scheduler.Engine,
) *Handler {
	return &Handler{
		store:       s,
		ledgers:     ledgers,
		accounts:    accounts,
		tx:          tx,
		reports:     reports,
		tokens:      tokens,
		channels:    channels,
		recurring:   recurring,
		installment: installment,
		imports:     imports,
		emailAuth:   emailAuth,
		sched:       sched,
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid request body: %s", err.Error())
	}
	return nil
}

func parseIDParam(r *http.Request, value string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil {
		return id.ID{}, apperr.Validation("invalid id %q", value)
	}
	return parsed, nil
}

// requestActor is the authenticated caller attributed on every audit
// row a handler's engine call produces.
func requestActor(r *http.Request) (id.ID, error) {
	uid, ok := userIDFromContext(r.Context())
	if !ok {
		return id.ID{}, apperr.New(apperr.KindUnauthorized, "missing authenticated user")
	}
	return uid, nil
}

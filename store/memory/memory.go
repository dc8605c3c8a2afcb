/*
Package memory provides an in-process implementation of store.Store,
used by engine unit tests that want to exercise real business logic
without paying for SQLite file I/O.

WITH TX:
  Mirrors the snapshot/restore idiom this package is ported from: WithTx
  takes a full snapshot of every map before running fn, and restores it
  on error. There is no partial-rollback path and no savepoint nesting;
  a unit of work is all-or-nothing, same as the SQLite implementation's
  use of *sql.Tx.
*/
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/store"
)

// Store is an in-memory store.Store. The zero value is not usable; use New.
type Store struct {
	mu sync.RWMutex

	// inTx is set for the duration of a WithTx closure. WithTx holds mu
	// across the whole unit of work and passes this same Store to fn,
	// so every method below must not re-acquire mu while inTx is set:
	// lock/unlock/rlock/runlock become no-ops in that window.
	inTx bool

	users       map[id.ID]domain.User
	usersByMail map[string]id.ID

	ledgers map[id.ID]domain.Ledger

	accounts map[id.ID]domain.Account

	transactions map[id.ID]domain.Transaction

	tags map[id.ID]domain.Tag

	templates map[id.ID]domain.TransactionTemplate

	recurring map[id.ID]domain.RecurringTemplate

	installments map[id.ID]domain.InstallmentPlan

	audit []domain.AuditLog

	tokens map[id.ID]domain.ApiToken

	bindings map[id.ID]domain.ChannelBinding

	imports map[id.ID]domain.ImportSession

	gmailJobs map[id.ID]domain.GmailScanJob // keyed by LedgerID in practice

	emailAuth map[id.ID]domain.EmailAuthorization // keyed by LedgerID
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:        make(map[id.ID]domain.User),
		usersByMail:  make(map[string]id.ID),
		ledgers:      make(map[id.ID]domain.Ledger),
		accounts:     make(map[id.ID]domain.Account),
		transactions: make(map[id.ID]domain.Transaction),
		tags:         make(map[id.ID]domain.Tag),
		templates:    make(map[id.ID]domain.TransactionTemplate),
		recurring:    make(map[id.ID]domain.RecurringTemplate),
		installments: make(map[id.ID]domain.InstallmentPlan),
		tokens:       make(map[id.ID]domain.ApiToken),
		bindings:     make(map[id.ID]domain.ChannelBinding),
		imports:      make(map[id.ID]domain.ImportSession),
		gmailJobs:    make(map[id.ID]domain.GmailScanJob),
		emailAuth:    make(map[id.ID]domain.EmailAuthorization),
	}
}

func (s *Store) Close() error { return nil }

// snapshot is a deep-enough copy of every map to support WithTx rollback.
type snapshot struct {
	users        map[id.ID]domain.User
	usersByMail  map[string]id.ID
	ledgers      map[id.ID]domain.Ledger
	accounts     map[id.ID]domain.Account
	transactions map[id.ID]domain.Transaction
	tags         map[id.ID]domain.Tag
	templates    map[id.ID]domain.TransactionTemplate
	recurring    map[id.ID]domain.RecurringTemplate
	installments map[id.ID]domain.InstallmentPlan
	audit        []domain.AuditLog
	tokens       map[id.ID]domain.ApiToken
	bindings     map[id.ID]domain.ChannelBinding
	imports      map[id.ID]domain.ImportSession
	gmailJobs    map[id.ID]domain.GmailScanJob
	emailAuth    map[id.ID]domain.EmailAuthorization
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		users:        cloneMap(s.users),
		usersByMail:  cloneMap(s.usersByMail),
		ledgers:      cloneMap(s.ledgers),
		accounts:     cloneMap(s.accounts),
		transactions: cloneMap(s.transactions),
		tags:         cloneMap(s.tags),
		templates:    cloneMap(s.templates),
		recurring:    cloneMap(s.recurring),
		installments: cloneMap(s.installments),
		audit:        append([]domain.AuditLog{}, s.audit...),
		tokens:       cloneMap(s.tokens),
		bindings:     cloneMap(s.bindings),
		imports:      cloneMap(s.imports),
		gmailJobs:    cloneMap(s.gmailJobs),
		emailAuth:    cloneMap(s.emailAuth),
	}
}

func (s *Store) restore(snap snapshot) {
	s.users = snap.users
	s.usersByMail = snap.usersByMail
	s.ledgers = snap.ledgers
	s.accounts = snap.accounts
	s.transactions = snap.transactions
	s.tags = snap.tags
	s.templates = snap.templates
	s.recurring = snap.recurring
	s.installments = snap.installments
	s.audit = snap.audit
	s.tokens = snap.tokens
	s.bindings = snap.bindings
	s.imports = snap.imports
	s.gmailJobs = snap.gmailJobs
	s.emailAuth = snap.emailAuth
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *Store) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

func (s *Store) rlock() {
	if !s.inTx {
		s.mu.RLock()
	}
}

func (s *Store) runlock() {
	if !s.inTx {
		s.mu.RUnlock()
	}
}

// WithTx snapshots every map, runs fn against this same Store, and
// restores the snapshot if fn returns an error. fn sees the live Store
// directly rather than a wrapped child, since rollback is handled here.
// inTx guards the methods fn calls against re-acquiring mu, which is
// already held for the whole closure below.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	s.lock()
	defer s.unlock()

	snap := s.snapshot()
	s.inTx = true
	err := fn(s)
	s.inTx = false
	if err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	s.lock()
	defer s.unlock()
	s.users[u.ID] = u
	s.usersByMail[u.Email] = u.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.ID) (domain.User, error) {
	s.rlock()
	defer s.runlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, apperr.NotFound("user", userID.String())
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	s.rlock()
	defer s.runlock()
	userID, ok := s.usersByMail[email]
	if !ok {
		return domain.User{}, apperr.NotFound("user", email)
	}
	return s.users[userID], nil
}

// =============================================================================
// LEDGERS
// =============================================================================

func (s *Store) CreateLedger(ctx context.Context, l domain.Ledger) error {
	s.lock()
	defer s.unlock()
	s.ledgers[l.ID] = l
	return nil
}

func (s *Store) GetLedger(ctx context.Context, ledgerID id.ID) (domain.Ledger, error) {
	s.rlock()
	defer s.runlock()
	l, ok := s.ledgers[ledgerID]
	if !ok {
		return domain.Ledger{}, apperr.NotFound("ledger", ledgerID.String())
	}
	return l, nil
}

func (s *Store) ListLedgers(ctx context.Context, ownerID id.ID) ([]domain.Ledger, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.Ledger
	for _, l := range s.ledgers {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateLedger(ctx context.Context, l domain.Ledger) error {
	s.lock()
	defer s.unlock()
	if _, ok := s.ledgers[l.ID]; !ok {
		return apperr.NotFound("ledger", l.ID.String())
	}
	s.ledgers[l.ID] = l
	return nil
}

func (s *Store) DeleteLedger(ctx context.Context, ledgerID id.ID) error {
	s.lock()
	defer s.unlock()
	delete(s.ledgers, ledgerID)
	for k, v := range s.accounts {
		if v.LedgerID == ledgerID {
			delete(s.accounts, k)
		}
	}
	for k, v := range s.transactions {
		if v.LedgerID == ledgerID {
			delete(s.transactions, k)
		}
	}
	for k, v := range s.tags {
		if v.LedgerID == ledgerID {
			delete(s.tags, k)
		}
	}
	for k, v := range s.templates {
		if v.LedgerID == ledgerID {
			delete(s.templates, k)
		}
	}
	for k, v := range s.recurring {
		if v.LedgerID == ledgerID {
			delete(s.recurring, k)
		}
	}
	for k, v := range s.imports {
		if v.LedgerID == ledgerID {
			delete(s.imports, k)
		}
	}
	for k, v := range s.installments {
		if v.LedgerID == ledgerID {
			delete(s.installments, k)
		}
	}
	delete(s.gmailJobs, ledgerID)
	delete(s.emailAuth, ledgerID)
	var kept []domain.AuditLog
	for _, e := range s.audit {
		if e.LedgerID != ledgerID {
			kept = append(kept, e)
		}
	}
	s.audit = kept
	return nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) CreateAccount(ctx context.Context, a domain.Account) error {
	s.lock()
	defer s.unlock()
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID id.ID) (domain.Account, error) {
	s.rlock()
	defer s.runlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return domain.Account{}, apperr.NotFound("account", accountID.String())
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, ledgerID id.ID) ([]domain.Account, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.Account
	for _, a := range s.accounts {
		if a.LedgerID == ledgerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].SortOrder < out[j].SortOrder
	})
	return out, nil
}

func (s *Store) ListChildAccounts(ctx context.Context, parentID id.ID) ([]domain.Account, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.Account
	for _, a := range s.accounts {
		if a.ParentID != nil && *a.ParentID == parentID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a domain.Account) error {
	s.lock()
	defer s.unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return apperr.NotFound("account", a.ID.String())
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, accountID id.ID) error {
	s.lock()
	defer s.unlock()
	delete(s.accounts, accountID)
	return nil
}

// DeleteTransaction removes a single transaction. The ledger engine's
// clear_transactions/clear_accounts operations and transaction.Engine.Delete
// call this.
func (s *Store) DeleteTransaction(ctx context.Context, txID id.ID) error {
	s.lock()
	defer s.unlock()
	delete(s.transactions, txID)
	return nil
}

func (s *Store) CountAccountTransactions(ctx context.Context, accountID id.ID) (int, error) {
	s.rlock()
	defer s.runlock()
	n := 0
	for _, t := range s.transactions {
		if t.FromAccountID == accountID || t.ToAccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (s *Store) ReassignAccountTransactions(ctx context.Context, fromAccountID, toAccountID id.ID) (int, error) {
	s.lock()
	defer s.unlock()
	n := 0
	for k, t := range s.transactions {
		changed := false
		if t.FromAccountID == fromAccountID {
			t.FromAccountID = toAccountID
			changed = true
		}
		if t.ToAccountID == fromAccountID {
			t.ToAccountID = toAccountID
			changed = true
		}
		if changed {
			s.transactions[k] = t
			n++
		}
	}
	return n, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) CreateTransaction(ctx context.Context, t domain.Transaction) error {
	s.lock()
	defer s.unlock()
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, txID id.ID) (domain.Transaction, error) {
	s.rlock()
	defer s.runlock()
	t, ok := s.transactions[txID]
	if !ok {
		return domain.Transaction{}, apperr.NotFound("transaction", txID.String())
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]domain.Transaction, error) {
	s.rlock()
	defer s.runlock()

	var out []domain.Transaction
	for _, t := range s.transactions {
		if t.LedgerID != filter.LedgerID {
			continue
		}
		if filter.AccountID != nil && t.FromAccountID != *filter.AccountID && t.ToAccountID != *filter.AccountID {
			continue
		}
		if filter.Type != nil && t.Type != *filter.Type {
			continue
		}
		if filter.From != nil && t.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && t.Date.After(*filter.To) {
			continue
		}
		if filter.TagID != nil && !hasTag(t.TagIDs, *filter.TagID) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID.String() > out[j].ID.String()
	})

	if filter.CursorDate != nil && filter.CursorID != nil {
		cursor := *filter.CursorDate
		cursorID := filter.CursorID.String()
		var after []domain.Transaction
		for _, t := range out {
			if t.Date.Before(cursor) || (t.Date.Equal(cursor) && t.ID.String() < cursorID) {
				after = append(after, t)
			}
		}
		out = after
	}

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func hasTag(tags []id.ID, target id.ID) bool {
	for _, t := range tags {
		if t == target {
			return true
		}
	}
	return false
}

func (s *Store) ListTransactionsInRange(ctx context.Context, ledgerID id.ID, from, to time.Time) ([]domain.Transaction, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.Transaction
	for _, t := range s.transactions {
		if t.LedgerID == ledgerID && !t.Date.Before(from) && !t.Date.After(to) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) ListTransactionsByRecurringTemplate(ctx context.Context, templateID id.ID) ([]domain.Transaction, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.Transaction
	for _, t := range s.transactions {
		if t.RecurringTemplateID != nil && *t.RecurringTemplateID == templateID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// =============================================================================
// TAGS
// =============================================================================

func (s *Store) CreateTag(ctx context.Context, t domain.Tag) error {
	s.lock()
	defer s.unlock()
	for _, existing := range s.tags {
		if existing.LedgerID == t.LedgerID && existing.Name == t.Name {
			return apperr.Conflict("tag %q already exists", t.Name)
		}
	}
	s.tags[t.ID] = t
	return nil
}

func (s *Store) GetTagByName(ctx context.Context, ledgerID id.ID, name string) (domain.Tag, error) {
	s.rlock()
	defer s.runlock()
	for _, t := range s.tags {
		if t.LedgerID == ledgerID && t.Name == name {
			return t, nil
		}
	}
	return domain.Tag{}, apperr.NotFound("tag", name)
}

func (s *Store) ListTags(ctx context.Context, ledgerID id.ID) ([]domain.Tag, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.Tag
	for _, t := range s.tags {
		if t.LedgerID == ledgerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// TEMPLATES
// =============================================================================

func (s *Store) CreateTemplate(ctx context.Context, t domain.TransactionTemplate) error {
	s.lock()
	defer s.unlock()
	s.templates[t.ID] = t
	return nil
}

func (s *Store) ListTemplates(ctx context.Context, ledgerID id.ID) ([]domain.TransactionTemplate, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.TransactionTemplate
	for _, t := range s.templates {
		if t.LedgerID == ledgerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, templateID id.ID) error {
	s.lock()
	defer s.unlock()
	delete(s.templates, templateID)
	return nil
}

// =============================================================================
// RECURRING TEMPLATES
// =============================================================================

func (s *Store) CreateRecurringTemplate(ctx context.Context, t domain.RecurringTemplate) error {
	s.lock()
	defer s.unlock()
	s.recurring[t.ID] = t
	return nil
}

func (s *Store) GetRecurringTemplate(ctx context.Context, templateID id.ID) (domain.RecurringTemplate, error) {
	s.rlock()
	defer s.runlock()
	t, ok := s.recurring[templateID]
	if !ok {
		return domain.RecurringTemplate{}, apperr.NotFound("recurring_template", templateID.String())
	}
	return t, nil
}

func (s *Store) ListRecurringTemplates(ctx context.Context, ledgerID id.ID) ([]domain.RecurringTemplate, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.RecurringTemplate
	for _, t := range s.recurring {
		if t.LedgerID == ledgerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListAllActiveRecurringTemplates(ctx context.Context) ([]domain.RecurringTemplate, error) {
	s.rlock()
	defer s.runlock()
	now := time.Now()
	var out []domain.RecurringTemplate
	for _, t := range s.recurring {
		if t.EndDate == nil || !t.EndDate.Before(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) UpdateRecurringTemplate(ctx context.Context, t domain.RecurringTemplate) error {
	s.lock()
	defer s.unlock()
	if _, ok := s.recurring[t.ID]; !ok {
		return apperr.NotFound("recurring_template", t.ID.String())
	}
	s.recurring[t.ID] = t
	return nil
}

func (s *Store) DeleteRecurringTemplate(ctx context.Context, templateID id.ID) error {
	s.lock()
	defer s.unlock()
	delete(s.recurring, templateID)
	return nil
}

// =============================================================================
// INSTALLMENT PLANS
// =============================================================================

func (s *Store) CreateInstallmentPlan(ctx context.Context, p domain.InstallmentPlan) error {
	s.lock()
	defer s.unlock()
	s.installments[p.ID] = p
	return nil
}

func (s *Store) GetInstallmentPlan(ctx context.Context, planID id.ID) (domain.InstallmentPlan, error) {
	s.rlock()
	defer s.runlock()
	p, ok := s.installments[planID]
	if !ok {
		return domain.InstallmentPlan{}, apperr.NotFound("installment_plan", planID.String())
	}
	return p, nil
}

func (s *Store) ListInstallmentPlans(ctx context.Context, ledgerID id.ID) ([]domain.InstallmentPlan, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.InstallmentPlan
	for _, p := range s.installments {
		if p.LedgerID == ledgerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteInstallmentPlan(ctx context.Context, planID id.ID) error {
	s.lock()
	defer s.unlock()
	delete(s.installments, planID)
	return nil
}

// =============================================================================
// AUDIT (append-only)
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, e domain.AuditLog) error {
	s.lock()
	defer s.unlock()
	s.audit = append(s.audit, e)
	return nil
}

func (s *Store) ListAudit(ctx context.Context, ledgerID id.ID, resourceID *id.ID, limit int) ([]domain.AuditLog, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.AuditLog
	for i := len(s.audit) - 1; i >= 0; i-- {
		e := s.audit[i]
		if e.LedgerID != ledgerID {
			continue
		}
		if resourceID != nil && e.ResourceID != *resourceID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// =============================================================================
// API TOKENS
// =============================================================================

func (s *Store) CreateToken(ctx context.Context, t domain.ApiToken) error {
	s.lock()
	defer s.unlock()
	s.tokens[t.ID] = t
	return nil
}

func (s *Store) GetTokenByHash(ctx context.Context, hash string) (domain.ApiToken, error) {
	s.rlock()
	defer s.runlock()
	for _, t := range s.tokens {
		if t.TokenHash == hash {
			return t, nil
		}
	}
	return domain.ApiToken{}, apperr.NotFound("api_token", hash)
}

func (s *Store) ListTokens(ctx context.Context, userID id.ID, includeRevoked bool) ([]domain.ApiToken, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.ApiToken
	for _, t := range s.tokens {
		if t.UserID != userID {
			continue
		}
		if !includeRevoked && !t.IsActive() {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountActiveTokens(ctx context.Context, userID id.ID) (int, error) {
	s.rlock()
	defer s.runlock()
	n := 0
	for _, t := range s.tokens {
		if t.UserID == userID && t.IsActive() {
			n++
		}
	}
	return n, nil
}

func (s *Store) RevokeToken(ctx context.Context, tokenID id.ID, revokedAt time.Time) error {
	s.lock()
	defer s.unlock()
	t, ok := s.tokens[tokenID]
	if !ok {
		return apperr.NotFound("api_token", tokenID.String())
	}
	t.RevokedAt = &revokedAt
	s.tokens[tokenID] = t
	return nil
}

func (s *Store) TouchTokenLastUsed(ctx context.Context, tokenID id.ID, at time.Time) error {
	s.lock()
	defer s.unlock()
	t, ok := s.tokens[tokenID]
	if !ok {
		return apperr.NotFound("api_token", tokenID.String())
	}
	t.LastUsedAt = &at
	s.tokens[tokenID] = t
	return nil
}

// =============================================================================
// CHANNEL BINDINGS
// =============================================================================

func (s *Store) CreateChannelBinding(ctx context.Context, b domain.ChannelBinding) error {
	s.lock()
	defer s.unlock()
	for _, existing := range s.bindings {
		if existing.IsActive && existing.ChannelType == b.ChannelType && existing.ExternalUserID == b.ExternalUserID {
			return apperr.Conflict("active channel binding already exists for %s/%s", b.ChannelType, b.ExternalUserID)
		}
	}
	s.bindings[b.ID] = b
	return nil
}

func (s *Store) GetActiveChannelBinding(ctx context.Context, channelType domain.ChannelType, externalUserID string) (domain.ChannelBinding, error) {
	s.rlock()
	defer s.runlock()
	for _, b := range s.bindings {
		if b.IsActive && b.ChannelType == channelType && b.ExternalUserID == externalUserID {
			return b, nil
		}
	}
	return domain.ChannelBinding{}, apperr.NotFound("channel_binding", externalUserID)
}

func (s *Store) ListChannelBindings(ctx context.Context, userID id.ID) ([]domain.ChannelBinding, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.ChannelBinding
	for _, b := range s.bindings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UnbindChannel(ctx context.Context, bindingID id.ID, unboundAt time.Time) error {
	s.lock()
	defer s.unlock()
	b, ok := s.bindings[bindingID]
	if !ok {
		return apperr.NotFound("channel_binding", bindingID.String())
	}
	b.IsActive = false
	b.UnboundAt = &unboundAt
	s.bindings[bindingID] = b
	return nil
}

// =============================================================================
// IMPORT SESSIONS
// =============================================================================

func (s *Store) CreateImportSession(ctx context.Context, sess domain.ImportSession) error {
	s.lock()
	defer s.unlock()
	s.imports[sess.ID] = sess
	return nil
}

func (s *Store) GetImportSession(ctx context.Context, sessionID id.ID) (domain.ImportSession, error) {
	s.rlock()
	defer s.runlock()
	sess, ok := s.imports[sessionID]
	if !ok {
		return domain.ImportSession{}, apperr.NotFound("import_session", sessionID.String())
	}
	return sess, nil
}

func (s *Store) UpdateImportSession(ctx context.Context, sess domain.ImportSession) error {
	s.lock()
	defer s.unlock()
	if _, ok := s.imports[sess.ID]; !ok {
		return apperr.NotFound("import_session", sess.ID.String())
	}
	s.imports[sess.ID] = sess
	return nil
}

func (s *Store) ListImportSessions(ctx context.Context, ledgerID id.ID) ([]domain.ImportSession, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.ImportSession
	for _, sess := range s.imports {
		if sess.LedgerID == ledgerID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// =============================================================================
// GMAIL SCAN JOBS
// =============================================================================

func (s *Store) UpsertGmailScanJob(ctx context.Context, j domain.GmailScanJob) error {
	s.lock()
	defer s.unlock()
	s.gmailJobs[j.LedgerID] = j
	return nil
}

func (s *Store) GetGmailScanJob(ctx context.Context, ledgerID id.ID) (domain.GmailScanJob, error) {
	s.rlock()
	defer s.runlock()
	j, ok := s.gmailJobs[ledgerID]
	if !ok {
		return domain.GmailScanJob{}, apperr.NotFound("gmail_scan_job", ledgerID.String())
	}
	return j, nil
}

func (s *Store) ListAllGmailScanJobs(ctx context.Context) ([]domain.GmailScanJob, error) {
	s.rlock()
	defer s.runlock()
	var out []domain.GmailScanJob
	for _, j := range s.gmailJobs {
		if j.ConnectionStatus == "CONNECTED" {
			out = append(out, j)
		}
	}
	return out, nil
}

// =============================================================================
// EMAIL AUTHORIZATIONS
// =============================================================================

func (s *Store) UpsertEmailAuthorization(ctx context.Context, a domain.EmailAuthorization) error {
	s.lock()
	defer s.unlock()
	s.emailAuth[a.LedgerID] = a
	return nil
}

func (s *Store) GetEmailAuthorization(ctx context.Context, ledgerID id.ID) (domain.EmailAuthorization, error) {
	s.rlock()
	defer s.runlock()
	a, ok := s.emailAuth[ledgerID]
	if !ok {
		return domain.EmailAuthorization{}, apperr.NotFound("email_authorization", ledgerID.String())
	}
	return a, nil
}

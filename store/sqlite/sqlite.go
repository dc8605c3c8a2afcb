/*
Package sqlite provides a SQLite-backed implementation of store.Store.

TRANSACTION ROWS:
  The transactions table is changed after insert only by
  DeleteTransaction (a row delete) and ReassignAccountTransactions (an
  UPDATE of from_account_id/to_account_id); no other method rewrites a
  posted row.

WAL MODE:
  Opened with _journal_mode=WAL and _foreign_keys=on for better
  concurrent-reader throughput and referential integrity.

CONCURRENCY:
  A single sync.RWMutex serializes writers against readers, same as
  the pattern this package is ported from. Real multi-user deployments
  would swap this for PostgreSQL and drop the mutex in favor of
  row-level locking; that swap does not touch any engine code, since
  engines only see the store.Store interface.

UNIT OF WORK:
  WithTx begins a *sql.Tx and wraps it in a child Store sharing this
  Store's underlying connection and mutex; every method on the child
  executes against the active transaction instead of the pool so a
  single WithTx call can touch as many tables as it needs atomically.
  The child is marked inTx so its methods skip re-locking the shared
  mutex WithTx already holds for the duration of the closure.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/store"
)

// notFoundIfNoRows translates database/sql's row-absence signal into
// the engine-visible apperr.NotFound, so every Get* method here behaves
// the same way store/memory's map-lookup misses already do.
func notFoundIfNoRows(err error, resource, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(resource, id)
	}
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store implements store.Store against a SQLite database.
type Store struct {
	db   *sql.DB // underlying pool; nil on a tx-wrapped child
	conn dbtx    // active connection: db, or the *sql.Tx for WithTx children
	mu   *sync.RWMutex

	// inTx marks a child Store handed to a WithTx closure. WithTx holds
	// mu for the whole unit of work, so every method below must not
	// re-acquire it on this child: lock/unlock/rlock/runlock become
	// no-ops here, relying on the parent's lock already being held.
	inTx bool
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

// New opens (and migrates) a SQLite-backed Store. Use ":memory:" for a
// process-local database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	s := &Store{db: db, conn: db, mu: &sync.RWMutex{}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	s.lock()
	defer s.unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback()

	child := &Store{db: s.db, conn: tx, mu: s.mu, inTx: true}
	if err := fn(child); err != nil {
		return err
	}
	return tx.Commit()
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullID(i *id.ID) sql.NullString {
	if i == nil || i.IsNil() {
		return sql.NullString{}
	}
	return sql.NullString{String: i.String(), Valid: true}
}

func parseNullID(ns sql.NullString) (*id.ID, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	parsed, err := id.Parse(ns.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && contains(err.Error(), "UNIQUE constraint failed")
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

// =============================================================================
// SCHEMA
// =============================================================================

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledgers (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		currency TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ledgers_owner ON ledgers(owner_id);

	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL,
		parent_id TEXT,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		depth INTEGER NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		is_system INTEGER NOT NULL DEFAULT 0,
		is_archived INTEGER NOT NULL DEFAULT 0,
		archived_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_accounts_ledger ON accounts(ledger_id);
	CREATE INDEX IF NOT EXISTS idx_accounts_parent ON accounts(parent_id);

	-- Changed after insert only by DeleteTransaction and ReassignAccountTransactions.
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL,
		type TEXT NOT NULL,
		from_account_id TEXT NOT NULL,
		to_account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		amount_expression TEXT NOT NULL DEFAULT '',
		recurring_template_id TEXT,
		installment_plan_id TEXT,
		installment_number INTEGER,
		source_channel TEXT,
		channel_message_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_ledger_date ON transactions(ledger_id, date DESC, id DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions(from_account_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions(to_account_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_recurring ON transactions(recurring_template_id) WHERE recurring_template_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL,
		name TEXT NOT NULL,
		color TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(ledger_id, name)
	);

	CREATE TABLE IF NOT EXISTS transaction_tags (
		transaction_id TEXT NOT NULL,
		tag_id TEXT NOT NULL,
		PRIMARY KEY (transaction_id, tag_id)
	);

	CREATE TABLE IF NOT EXISTS transaction_templates (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		from_account_id TEXT NOT NULL,
		to_account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_templates_ledger ON transaction_templates(ledger_id);

	CREATE TABLE IF NOT EXISTS recurring_templates (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		from_account_id TEXT NOT NULL,
		to_account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		frequency TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		last_generated_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_recurring_ledger ON recurring_templates(ledger_id);

	CREATE TABLE IF NOT EXISTS installment_plans (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		installment_count INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		from_account_id TEXT NOT NULL,
		to_account_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Append-only audit trail.
	CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		old_value TEXT,
		new_value TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_ledger ON audit_logs(ledger_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_id);

	CREATE TABLE IF NOT EXISTS api_tokens (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		prefix TEXT NOT NULL,
		last_used_at TEXT,
		revoked_at TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tokens_user ON api_tokens(user_id);

	CREATE TABLE IF NOT EXISTS channel_bindings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		channel_type TEXT NOT NULL,
		external_user_id TEXT NOT NULL,
		default_ledger_id TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		unbound_at TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bindings_user ON channel_bindings(user_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_bindings_active_channel
		ON channel_bindings(channel_type, external_user_id) WHERE is_active = 1;

	CREATE TABLE IF NOT EXISTS import_sessions (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL,
		import_type TEXT NOT NULL,
		bank_code TEXT,
		status TEXT NOT NULL,
		progress_current INTEGER NOT NULL DEFAULT 0,
		progress_total INTEGER NOT NULL DEFAULT 0,
		imported_count INTEGER NOT NULL DEFAULT 0,
		skipped_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		created_accounts_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_imports_ledger ON import_sessions(ledger_id);

	CREATE TABLE IF NOT EXISTS gmail_scan_jobs (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL UNIQUE,
		connection_status TEXT NOT NULL,
		frequency TEXT NOT NULL,
		hour INTEGER NOT NULL,
		day_of_week INTEGER,
		last_scan_at TEXT,
		last_scan_outcome TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS email_authorizations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		ledger_id TEXT NOT NULL UNIQUE,
		provider TEXT NOT NULL,
		encrypted_refresh_token BLOB NOT NULL,
		encrypted_pdf_password BLOB,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)`,
		u.ID, u.Email, u.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetUser(ctx context.Context, userID id.ID) (domain.User, error) {
	s.rlock()
	defer s.runlock()
	u, err := s.scanUser(s.conn.QueryRowContext(ctx, `SELECT id, email, created_at FROM users WHERE id = ?`, userID))
	return u, notFoundIfNoRows(err, "user", userID.String())
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	s.rlock()
	defer s.runlock()
	u, err := s.scanUser(s.conn.QueryRowContext(ctx, `SELECT id, email, created_at FROM users WHERE email = ?`, email))
	return u, notFoundIfNoRows(err, "user", email)
}

func (s *Store) scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Email, &createdAt); err != nil {
		return domain.User{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = t
	return u, nil
}

// =============================================================================
// LEDGERS
// =============================================================================

func (s *Store) CreateLedger(ctx context.Context, l domain.Ledger) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO ledgers (id, owner_id, name, currency, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.OwnerID, l.Name, l.Currency,
		l.CreatedAt.UTC().Format(time.RFC3339), l.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetLedger(ctx context.Context, ledgerID id.ID) (domain.Ledger, error) {
	s.rlock()
	defer s.runlock()
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, owner_id, name, currency, created_at, updated_at FROM ledgers WHERE id = ?`, ledgerID)
	l, err := scanLedger(row)
	return l, notFoundIfNoRows(err, "ledger", ledgerID.String())
}

func scanLedger(row *sql.Row) (domain.Ledger, error) {
	var l domain.Ledger
	var createdAt, updatedAt string
	if err := row.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Currency, &createdAt, &updatedAt); err != nil {
		return domain.Ledger{}, err
	}
	var err error
	if l.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.Ledger{}, err
	}
	if l.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return domain.Ledger{}, err
	}
	return l, nil
}

func (s *Store) ListLedgers(ctx context.Context, ownerID id.ID) ([]domain.Ledger, error) {
	s.rlock()
	defer s.runlock()
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, owner_id, name, currency, created_at, updated_at FROM ledgers WHERE owner_id = ? ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Ledger
	for rows.Next() {
		var l domain.Ledger
		var createdAt, updatedAt string
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Currency, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if l.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		if l.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) UpdateLedger(ctx context.Context, l domain.Ledger) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`UPDATE ledgers SET name = ?, currency = ?, updated_at = ? WHERE id = ?`,
		l.Name, l.Currency, l.UpdatedAt.UTC().Format(time.RFC3339), l.ID)
	return err
}

func (s *Store) DeleteLedger(ctx context.Context, ledgerID id.ID) error {
	s.lock()
	defer s.unlock()
	// Cascade order mirrors the source system's delete_ledger: transactions,
	// templates, accounts, audit logs, import sessions, then the ledger row.
	stmts := []string{
		`DELETE FROM transaction_tags WHERE transaction_id IN (SELECT id FROM transactions WHERE ledger_id = ?)`,
		`DELETE FROM transactions WHERE ledger_id = ?`,
		`DELETE FROM recurring_templates WHERE ledger_id = ?`,
		`DELETE FROM installment_plans WHERE ledger_id = ?`,
		`DELETE FROM transaction_templates WHERE ledger_id = ?`,
		`DELETE FROM accounts WHERE ledger_id = ?`,
		`DELETE FROM tags WHERE ledger_id = ?`,
		`DELETE FROM audit_logs WHERE ledger_id = ?`,
		`DELETE FROM import_sessions WHERE ledger_id = ?`,
		`DELETE FROM gmail_scan_jobs WHERE ledger_id = ?`,
		`DELETE FROM email_authorizations WHERE ledger_id = ?`,
		`DELETE FROM ledgers WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := s.conn.ExecContext(ctx, stmt, ledgerID); err != nil {
			return fmt.Errorf("sqlite: delete ledger cascade: %w", err)
		}
	}
	return nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) CreateAccount(ctx context.Context, a domain.Account) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, ledger_id, parent_id, name, type, depth, sort_order, is_system, is_archived, archived_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.LedgerID, nullID(a.ParentID), a.Name, a.Type, a.Depth, a.SortOrder,
		boolToInt(a.IsSystem), boolToInt(a.IsArchived), nullTime(a.ArchivedAt),
		a.CreatedAt.UTC().Format(time.RFC3339), a.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Store) GetAccount(ctx context.Context, accountID id.ID) (domain.Account, error) {
	s.rlock()
	defer s.runlock()
	row := s.conn.QueryRowContext(ctx, accountSelect+` WHERE id = ?`, accountID)
	a, err := scanAccount(row)
	return a, notFoundIfNoRows(err, "account", accountID.String())
}

const accountSelect = `SELECT id, ledger_id, parent_id, name, type, depth, sort_order, is_system, is_archived, archived_at, created_at, updated_at FROM accounts`

func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account
	var parentID, archivedAt sql.NullString
	var isSystem, isArchived int
	var createdAt, updatedAt string
	if err := row.Scan(&a.ID, &a.LedgerID, &parentID, &a.Name, &a.Type, &a.Depth, &a.SortOrder,
		&isSystem, &isArchived, &archivedAt, &createdAt, &updatedAt); err != nil {
		return domain.Account{}, err
	}
	return finishAccount(a, parentID, isSystem, isArchived, archivedAt, createdAt, updatedAt)
}

func finishAccount(a domain.Account, parentID sql.NullString, isSystem, isArchived int, archivedAt sql.NullString, createdAt, updatedAt string) (domain.Account, error) {
	var err error
	if a.ParentID, err = parseNullID(parentID); err != nil {
		return domain.Account{}, err
	}
	a.IsSystem = isSystem != 0
	a.IsArchived = isArchived != 0
	if a.ArchivedAt, err = parseNullTime(archivedAt); err != nil {
		return domain.Account{}, err
	}
	if a.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.Account{}, err
	}
	if a.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, ledgerID id.ID) ([]domain.Account, error) {
	s.rlock()
	defer s.runlock()
	rows, err := s.conn.QueryContext(ctx, accountSelect+` WHERE ledger_id = ? ORDER BY depth ASC, sort_order ASC`, ledgerID)
	if err != nil {
		return nil, err
	}
	return scanAccountRows(rows)
}

func (s *Store) ListChildAccounts(ctx context.Context, parentID id.ID) ([]domain.Account, error) {
	s.rlock()
	defer s.runlock()
	rows, err := s.conn.QueryContext(ctx, accountSelect+` WHERE parent_id = ? ORDER BY sort_order ASC`, parentID)
	if err != nil {
		return nil, err
	}
	return scanAccountRows(rows)
}

func scanAccountRows(rows *sql.Rows) ([]domain.Account, error) {
	defer rows.Close()
	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		var parentID, archivedAt sql.NullString
		var isSystem, isArchived int
		var createdAt, updatedAt string
		if err := rows.Scan(&a.ID, &a.LedgerID, &parentID, &a.Name, &a.Type, &a.Depth, &a.SortOrder,
			&isSystem, &isArchived, &archivedAt, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		finished, err := finishAccount(a, parentID, isSystem, isArchived, archivedAt, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, finished)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAccount(ctx context.Context, a domain.Account) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`UPDATE accounts SET parent_id = ?, name = ?, type = ?, depth = ?, sort_order = ?, is_archived = ?, archived_at = ?, updated_at = ?
		 WHERE id = ?`,
		nullID(a.ParentID), a.Name, a.Type, a.Depth, a.SortOrder,
		boolToInt(a.IsArchived), nullTime(a.ArchivedAt), a.UpdatedAt.UTC().Format(time.RFC3339), a.ID)
	return err
}

func (s *Store) DeleteAccount(ctx context.Context, accountID id.ID) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, accountID)
	return err
}

// DeleteTransaction removes a single transaction row. The ledger engine's
// clear_transactions/clear_accounts operations and transaction.Engine.Delete
// call this.
func (s *Store) DeleteTransaction(ctx context.Context, txID id.ID) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, txID)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, txID)
	return err
}

func (s *Store) CountAccountTransactions(ctx context.Context, accountID id.ID) (int, error) {
	s.rlock()
	defer s.runlock()
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE from_account_id = ? OR to_account_id = ?`,
		accountID, accountID).Scan(&n)
	return n, err
}

func (s *Store) ReassignAccountTransactions(ctx context.Context, fromAccountID, toAccountID id.ID) (int, error) {
	s.lock()
	defer s.unlock()
	var affected int
	res, err := s.conn.ExecContext(ctx, `UPDATE transactions SET from_account_id = ? WHERE from_account_id = ?`, toAccountID, fromAccountID)
	if err != nil {
		return 0, err
	}
	n1, _ := res.RowsAffected()
	res, err = s.conn.ExecContext(ctx, `UPDATE transactions SET to_account_id = ? WHERE to_account_id = ?`, toAccountID, fromAccountID)
	if err != nil {
		return 0, err
	}
	n2, _ := res.RowsAffected()
	affected = int(n1 + n2)
	return affected, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const txSelect = `SELECT id, ledger_id, type, from_account_id, to_account_id, amount, date, description,
	notes, amount_expression, recurring_template_id, installment_plan_id, installment_number,
	source_channel, channel_message_id, created_at, updated_at FROM transactions`

func (s *Store) CreateTransaction(ctx context.Context, t domain.Transaction) error {
	s.lock()
	defer s.unlock()
	amt, err := t.Amount.Value()
	if err != nil {
		return err
	}
	var installmentNumber sql.NullInt64
	if t.InstallmentNumber != nil {
		installmentNumber = sql.NullInt64{Int64: int64(*t.InstallmentNumber), Valid: true}
	}
	var sourceChannel sql.NullString
	if t.SourceChannel != nil {
		sourceChannel = sql.NullString{String: string(*t.SourceChannel), Valid: true}
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO transactions (id, ledger_id, type, from_account_id, to_account_id, amount, date, description,
			notes, amount_expression, recurring_template_id, installment_plan_id, installment_number,
			source_channel, channel_message_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.LedgerID, t.Type, t.FromAccountID, t.ToAccountID, amt,
		t.Date.UTC().Format(time.RFC3339), t.Description, t.Notes, t.AmountExpression,
		nullID(t.RecurringTemplateID), nullID(t.InstallmentPlanID), installmentNumber,
		sourceChannel, t.ChannelMessageID,
		t.CreatedAt.UTC().Format(time.RFC3339), t.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	for _, tagID := range t.TagIDs {
		if _, err := s.conn.ExecContext(ctx, `INSERT INTO transaction_tags (transaction_id, tag_id) VALUES (?, ?)`, t.ID, tagID); err != nil {
			return err
		}
	}
	return nil
}

func scanTransaction(row *sql.Row) (domain.Transaction, error) {
	var t domain.Transaction
	var amountStr, dateStr, createdAt, updatedAt string
	var recurringID, installmentPlanID, sourceChannel sql.NullString
	var installmentNumber sql.NullInt64
	if err := row.Scan(&t.ID, &t.LedgerID, &t.Type, &t.FromAccountID, &t.ToAccountID, &amountStr, &dateStr, &t.Description,
		&t.Notes, &t.AmountExpression, &recurringID, &installmentPlanID, &installmentNumber,
		&sourceChannel, &t.ChannelMessageID, &createdAt, &updatedAt); err != nil {
		return domain.Transaction{}, err
	}
	return finishTransaction(t, amountStr, dateStr, createdAt, updatedAt, recurringID, installmentPlanID, installmentNumber, sourceChannel)
}

func finishTransaction(t domain.Transaction, amountStr, dateStr, createdAt, updatedAt string,
	recurringID, installmentPlanID sql.NullString, installmentNumber sql.NullInt64, sourceChannel sql.NullString) (domain.Transaction, error) {
	amt, err := money.Parse(amountStr)
	if err != nil {
		return domain.Transaction{}, err
	}
	t.Amount = amt
	if t.Date, err = time.Parse(time.RFC3339, dateStr); err != nil {
		return domain.Transaction{}, err
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.Transaction{}, err
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return domain.Transaction{}, err
	}
	if t.RecurringTemplateID, err = parseNullID(recurringID); err != nil {
		return domain.Transaction{}, err
	}
	if t.InstallmentPlanID, err = parseNullID(installmentPlanID); err != nil {
		return domain.Transaction{}, err
	}
	if installmentNumber.Valid {
		n := int(installmentNumber.Int64)
		t.InstallmentNumber = &n
	}
	if sourceChannel.Valid {
		ct := domain.ChannelType(sourceChannel.String)
		t.SourceChannel = &ct
	}
	return t, nil
}

func (s *Store) GetTransaction(ctx context.Context, txID id.ID) (domain.Transaction, error) {
	s.rlock()
	defer s.runlock()
	t, err := scanTransaction(s.conn.QueryRowContext(ctx, txSelect+` WHERE id = ?`, txID))
	if err != nil {
		return domain.Transaction{}, notFoundIfNoRows(err, "transaction", txID.String())
	}
	t.TagIDs, err = s.loadTagIDs(ctx, t.ID)
	return t, err
}

func (s *Store) loadTagIDs(ctx context.Context, txID id.ID) ([]id.ID, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT tag_id FROM transaction_tags WHERE transaction_id = ?`, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []id.ID
	for rows.Next() {
		var tagID id.ID
		if err := rows.Scan(&tagID); err != nil {
			return nil, err
		}
		out = append(out, tagID)
	}
	return out, rows.Err()
}

func (s *Store) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]domain.Transaction, error) {
	s.rlock()
	defer s.runlock()

	query := txSelect + ` WHERE ledger_id = ?`
	args := []interface{}{filter.LedgerID}

	if filter.AccountID != nil {
		query += ` AND (from_account_id = ? OR to_account_id = ?)`
		args = append(args, *filter.AccountID, *filter.AccountID)
	}
	if filter.Type != nil {
		query += ` AND type = ?`
		args = append(args, *filter.Type)
	}
	if filter.From != nil {
		query += ` AND date >= ?`
		args = append(args, filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		query += ` AND date <= ?`
		args = append(args, filter.To.UTC().Format(time.RFC3339))
	}
	if filter.TagID != nil {
		query += ` AND id IN (SELECT transaction_id FROM transaction_tags WHERE tag_id = ?)`
		args = append(args, *filter.TagID)
	}
	if filter.Search != "" {
		query += ` AND description LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.CursorDate != nil && filter.CursorID != nil {
		query += ` AND (date, id) < (?, ?)`
		args = append(args, filter.CursorDate.UTC().Format(time.RFC3339), filter.CursorID.String())
	}
	query += ` ORDER BY date DESC, id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return s.scanTransactionRows(ctx, rows)
}

func (s *Store) ListTransactionsInRange(ctx context.Context, ledgerID id.ID, from, to time.Time) ([]domain.Transaction, error) {
	s.rlock()
	defer s.runlock()
	rows, err := s.conn.QueryContext(ctx,
		txSelect+` WHERE ledger_id = ? AND date >= ? AND date <= ? ORDER BY date ASC, id ASC`,
		ledgerID, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return s.scanTransactionRows(ctx, rows)
}

func (s *Store) ListTransactionsByRecurringTemplate(ctx context.Context, templateID id.ID) ([]domain.Transaction, error) {
	s.rlock()
	defer s.runlock()
	rows, err := s.conn.QueryContext(ctx, txSelect+` WHERE recurring_template_id = ? ORDER BY date ASC`, templateID)
	if err != nil {
		return nil, err
	}
	return s.scanTransactionRows(ctx, rows)
}

func (s *Store) scanTransactionRows(ctx context.Context, rows *sql.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var amountStr, dateStr, createdAt, updatedAt string
		var recurringID, installmentPlanID, sourceChannel sql.NullString
		var installmentNumber sql.NullInt64
		if err := rows.Scan(&t.ID, &t.LedgerID, &t.Type, &t.FromAccountID, &t.ToAccountID, &amountStr, &dateStr, &t.Description,
			&t.Notes, &t.AmountExpression, &recurringID, &installmentPlanID, &installmentNumber,
			&sourceChannel, &t.ChannelMessageID, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		finished, err := finishTransaction(t, amountStr, dateStr, createdAt, updatedAt, recurringID, installmentPlanID, installmentNumber, sourceChannel)
		if err != nil {
			return nil, err
		}
		out = append(out, finished)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		tagIDs, err := s.loadTagIDs(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].TagIDs = tagIDs
	}
	return out, nil
}

// =============================================================================
// TAGS
// =============================================================================

func (s *Store) CreateTag(ctx context.Context, t domain.Tag) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO tags (id, ledger_id, name, color, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.LedgerID, t.Name, nullableString(t.Color), t.CreatedAt.UTC().Format(time.RFC3339))
	if isUniqueConstraintError(err) {
		return fmt.Errorf("sqlite: tag %q already exists: %w", t.Name, err)
	}
	return err
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func (s *Store) GetTagByName(ctx context.Context, ledgerID id.ID, name string) (domain.Tag, error) {
	s.rlock()
	defer s.runlock()
	var t domain.Tag
	var color sql.NullString
	var createdAt string
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, ledger_id, name, color, created_at FROM tags WHERE ledger_id = ? AND name = ?`, ledgerID, name).
		Scan(&t.ID, &t.LedgerID, &t.Name, &color, &createdAt)
	if err != nil {
		return domain.Tag{}, notFoundIfNoRows(err, "tag", name)
	}
	t.Color = color.String
	t.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	return t, err
}

func (s *Store) ListTags(ctx context.Context, ledgerID id.ID) ([]domain.Tag, error) {
	s.rlock()
	defer s.runlock()
	rows, err := s.conn.QueryContext(ctx, `SELECT id, ledger_id, name, color, created_at FROM tags WHERE ledger_id = ? ORDER BY name ASC`, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Tag
	for rows.Next() {
		var t domain.Tag
		var color sql.NullString
		var createdAt string
		if err := rows.Scan(&t.ID, &t.LedgerID, &t.Name, &color, &createdAt); err != nil {
			return nil, err
		}
		t.Color = color.String
		if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// TEMPLATES
// =============================================================================

func (s *Store) CreateTemplate(ctx context.Context, t domain.TransactionTemplate) error {
	s.lock()
	defer s.unlock()
	amt, err := t.Amount.Value()
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO transaction_templates (id, ledger_id, name, type, from_account_id, to_account_id, amount, description, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.LedgerID, t.Name, t.Type, t.FromAccountID, t.ToAccountID, amt, t.Description, t.SortOrder,
		t.CreatedAt.UTC().Format(time.RFC3339), t.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) ListTemplates(ctx context.Context, ledgerID id.ID) ([]domain.TransactionTemplate, error) {
	s.rlock()
	defer s.runlock()
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, ledger_id, name, type, from_account_id, to_account_id, amount, description, sort_order, created_at, updated_at
		 FROM transaction_templates WHERE ledger_id = ? ORDER BY sort_order ASC`, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.TransactionTemplate
	for rows.Next() {
		var t domain.TransactionTemplate
		var amountStr, createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.LedgerID, &t.Name, &t.Type, &t.FromAccountID, &t.ToAccountID, &amountStr, &t.Description, &t.SortOrder, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if t.Amount, err = money.Parse(amountStr); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		if t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) DeleteTemplate(ctx context.Context, templateID id.ID) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx, `DELETE FROM transaction_templates WHERE id = ?`, templateID)
	return err
}

// =============================================================================
// RECURRING TEMPLATES
// =============================================================================

const recurringSelect = `SELECT id, ledger_id, name, type, from_account_id, to_account_id, amount, description, frequency,
	start_date, end_date, last_generated_date, created_at, updated_at FROM recurring_templates`

func (s *Store) CreateRecurringTemplate(ctx context.Context, t domain.RecurringTemplate) error {
	s.lock()
	defer s.unlock()
	amt, err := t.Amount.Value()
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO recurring_templates (id, ledger_id, name, type, from_account_id, to_account_id, amount, description, frequency,
			start_date, end_date, last_generated_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.LedgerID, t.Name, t.Type, t.FromAccountID, t.ToAccountID, amt, t.Description, t.Frequency,
		t.StartDate.UTC().Format(time.RFC3339), nullTime(t.EndDate), nullTime(t.LastGeneratedDate),
		t.CreatedAt.UTC().Format(time.RFC3339), t.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func scanRecurringTemplate(row *sql.Row) (domain.RecurringTemplate, error) {
	var t domain.RecurringTemplate
	var amountStr, startDate, createdAt, updatedAt string
	var endDate, lastGenerated sql.NullString
	if err := row.Scan(&t.ID, &t.LedgerID, &t.Name, &t.Type, &t.FromAccountID, &t.ToAccountID, &amountStr, &t.Description, &t.Frequency,
		&startDate, &endDate, &lastGenerated, &createdAt, &updatedAt); err != nil {
		return domain.RecurringTemplate{}, err
	}
	return finishRecurringTemplate(t, amountStr, startDate, createdAt, updatedAt, endDate, lastGenerated)
}

func finishRecurringTemplate(t domain.RecurringTemplate, amountStr, startDate, createdAt, updatedAt string, endDate, lastGenerated sql.NullString) (domain.RecurringTemplate, error) {
	var err error
	if t.Amount, err = money.Parse(amountStr); err != nil {
		return domain.RecurringTemplate{}, err
	}
	if t.StartDate, err = time.Parse(time.RFC3339, startDate); err != nil {
		return domain.RecurringTemplate{}, err
	}
	if t.EndDate, err = parseNullTime(endDate); err != nil {
		return domain.RecurringTemplate{}, err
	}
	if t.LastGeneratedDate, err = parseNullTime(lastGenerated); err != nil {
		return domain.RecurringTemplate{}, err
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.RecurringTemplate{}, err
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return domain.RecurringTemplate{}, err
	}
	return t, nil
}

func (s *Store) GetRecurringTemplate(ctx context.Context, templateID id.ID) (domain.RecurringTemplate, error) {
	s.rlock()
	defer s.runlock()
	t, err := scanRecurringTemplate(s.conn.QueryRowContext(ctx, recurringSelect+` WHERE id = ?`, templateID))
	return t, notFoundIfNoRows(err, "recurring_template", templateID.String())
}

func (s *Store) ListRecurringTemplates(ctx context.Context, ledgerID id.ID) ([]domain.RecurringTemplate, error) {
	s.rlock()
	defer s.runlock()
	rows, err := s.conn.QueryContext(ctx, recurringSelect+` WHERE ledger_id = ? ORDER BY created_at ASC`, ledgerID)
	if err != nil {
		return nil, err
	}
	return scanRecurringRows(rows)
}

func (s *Store) ListAllActiveRecurringTemplates(ctx context.Context) ([]domain.RecurringTemplate, error) {
	s.rlock()
	defer s.runlock()
	rows, err := s.conn.QueryContext(ctx, recurringSelect+` WHERE end_date IS NULL OR end_date >= ?`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return scanRecurringRows(rows)
}

func scanRecurringRows(rows *sql.Rows) ([]domain.RecurringTemplate, error) {
	defer rows.Close()
	var out []domain.RecurringTemplate
	for rows.Next() {
		var t domain.RecurringTemplate
		var amountStr, startDate, createdAt, updatedAt string
		var endDate, lastGenerated sql.NullString
		if err := rows.Scan(&t.ID, &t.LedgerID, &t.Name, &t.Type, &t.FromAccountID, &t.ToAccountID, &amountStr, &t.Description, &t.Frequency,
			&startDate, &endDate, &lastGenerated, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		finished, err := finishRecurringTemplate(t, amountStr, startDate, createdAt, updatedAt, endDate, lastGenerated)
		if err != nil {
			return nil, err
		}
		out = append(out, finished)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRecurringTemplate(ctx context.Context, t domain.RecurringTemplate) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`UPDATE recurring_templates SET last_generated_date = ?, updated_at = ? WHERE id = ?`,
		nullTime(t.LastGeneratedDate), t.UpdatedAt.UTC().Format(time.RFC3339), t.ID)
	return err
}

func (s *Store) DeleteRecurringTemplate(ctx context.Context, templateID id.ID) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx, `DELETE FROM recurring_templates WHERE id = ?`, templateID)
	return err
}

// =============================================================================
// INSTALLMENT PLANS
// =============================================================================

func (s *Store) CreateInstallmentPlan(ctx context.Context, p domain.InstallmentPlan) error {
	s.lock()
	defer s.unlock()
	amt, err := p.TotalAmount.Value()
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO installment_plans (id, ledger_id, name, type, total_amount, installment_count, start_date, from_account_id, to_account_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.LedgerID, p.Name, p.Type, amt, p.InstallmentCount, p.StartDate.UTC().Format(time.RFC3339),
		p.FromAccountID, p.ToAccountID, p.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetInstallmentPlan(ctx context.Context, planID id.ID) (domain.InstallmentPlan, error) {
	s.rlock()
	defer s.runlock()
	var p domain.InstallmentPlan
	var amountStr, startDate, createdAt string
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, ledger_id, name, type, total_amount, installment_count, start_date, from_account_id, to_account_id, created_at
		 FROM installment_plans WHERE id = ?`, planID).
		Scan(&p.ID, &p.LedgerID, &p.Name, &p.Type, &amountStr, &p.InstallmentCount, &startDate, &p.FromAccountID, &p.ToAccountID, &createdAt)
	if err != nil {
		return domain.InstallmentPlan{}, notFoundIfNoRows(err, "installment_plan", planID.String())
	}
	if p.TotalAmount, err = money.Parse(amountStr); err != nil {
		return domain.InstallmentPlan{}, err
	}
	if p.StartDate, err = time.Parse(time.RFC3339, startDate); err != nil {
		return domain.InstallmentPlan{}, err
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.InstallmentPlan{}, err
	}
	return p, nil
}

const installmentPlanSelect = `SELECT id, ledger_id, name, type, total_amount, installment_count, start_date, from_account_id, to_account_id, created_at FROM installment_plans`

func (s *Store) ListInstallmentPlans(ctx context.Context, ledgerID id.ID) ([]domain.InstallmentPlan, error) {
	s.rlock()
	defer s.runlock()
	rows, err := s.conn.QueryContext(ctx, installmentPlanSelect+` WHERE ledger_id = ? ORDER BY created_at ASC`, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.InstallmentPlan
	for rows.Next() {
		var p domain.InstallmentPlan
		var amountStr, startDate, createdAt string
		if err := rows.Scan(&p.ID, &p.LedgerID, &p.Name, &p.Type, &amountStr, &p.InstallmentCount, &startDate, &p.FromAccountID, &p.ToAccountID, &createdAt); err != nil {
			return nil, err
		}
		if p.TotalAmount, err = money.Parse(amountStr); err != nil {
			return nil, err
		}
		if p.StartDate, err = time.Parse(time.RFC3339, startDate); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeleteInstallmentPlan(ctx context.Context, planID id.ID) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx, `DELETE FROM installment_plans WHERE id = ?`, planID)
	return err
}

// =============================================================================
// AUDIT (append-only)
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, e domain.AuditLog) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO audit_logs (id, ledger_id, action, resource_type, resource_id, actor_id, old_value, new_value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.LedgerID, e.Action, e.ResourceType, e.ResourceID, e.ActorID,
		nullableString(e.OldValue), nullableString(e.NewValue), e.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) ListAudit(ctx context.Context, ledgerID id.ID, resourceID *id.ID, limit int) ([]domain.AuditLog, error) {
	s.rlock()
	defer s.runlock()
	query := `SELECT id, ledger_id, action, resource_type, resource_id, actor_id, old_value, new_value, created_at
		FROM audit_logs WHERE ledger_id = ?`
	args := []interface{}{ledgerID}
	if resourceID != nil {
		query += ` AND resource_id = ?`
		args = append(args, *resourceID)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.AuditLog
	for rows.Next() {
		var e domain.AuditLog
		var oldValue, newValue sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.LedgerID, &e.Action, &e.ResourceType, &e.ResourceID, &e.ActorID, &oldValue, &newValue, &createdAt); err != nil {
			return nil, err
		}
		e.OldValue = oldValue.String
		e.NewValue = newValue.String
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// API TOKENS
// =============================================================================

func (s *Store) CreateToken(ctx context.Context, t domain.ApiToken) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO api_tokens (id, user_id, name, token_hash, prefix, last_used_at, revoked_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.TokenHash, t.Prefix, nullTime(t.LastUsedAt), nullTime(t.RevokedAt), t.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func scanToken(row *sql.Row) (domain.ApiToken, error) {
	var t domain.ApiToken
	var lastUsed, revoked sql.NullString
	var createdAt string
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.Prefix, &lastUsed, &revoked, &createdAt); err != nil {
		return domain.ApiToken{}, err
	}
	var err error
	if t.LastUsedAt, err = parseNullTime(lastUsed); err != nil {
		return domain.ApiToken{}, err
	}
	if t.RevokedAt, err = parseNullTime(revoked); err != nil {
		return domain.ApiToken{}, err
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.ApiToken{}, err
	}
	return t, nil
}

const tokenSelect = `SELECT id, user_id, name, token_hash, prefix, last_used_at, revoked_at, created_at FROM api_tokens`

func (s *Store) GetTokenByHash(ctx context.Context, hash string) (domain.ApiToken, error) {
	s.rlock()
	defer s.runlock()
	t, err := scanToken(s.conn.QueryRowContext(ctx, tokenSelect+` WHERE token_hash = ?`, hash))
	return t, notFoundIfNoRows(err, "api_token", hash)
}

func (s *Store) ListTokens(ctx context.Context, userID id.ID, includeRevoked bool) ([]domain.ApiToken, error) {
	s.rlock()
	defer s.runlock()
	query := tokenSelect + ` WHERE user_id = ?`
	if !includeRevoked {
		query += ` AND revoked_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`
	rows, err := s.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ApiToken
	for rows.Next() {
		var t domain.ApiToken
		var lastUsed, revoked sql.NullString
		var createdAt string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.Prefix, &lastUsed, &revoked, &createdAt); err != nil {
			return nil, err
		}
		if t.LastUsedAt, err = parseNullTime(lastUsed); err != nil {
			return nil, err
		}
		if t.RevokedAt, err = parseNullTime(revoked); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CountActiveTokens(ctx context.Context, userID id.ID) (int, error) {
	s.rlock()
	defer s.runlock()
	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_tokens WHERE user_id = ? AND revoked_at IS NULL`, userID).Scan(&n)
	return n, err
}

func (s *Store) RevokeToken(ctx context.Context, tokenID id.ID, revokedAt time.Time) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx, `UPDATE api_tokens SET revoked_at = ? WHERE id = ?`, revokedAt.UTC().Format(time.RFC3339), tokenID)
	return err
}

func (s *Store) TouchTokenLastUsed(ctx context.Context, tokenID id.ID, at time.Time) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = ? WHERE id = ?`, at.UTC().Format(time.RFC3339), tokenID)
	return err
}

// =============================================================================
// CHANNEL BINDINGS
// =============================================================================

func (s *Store) CreateChannelBinding(ctx context.Context, b domain.ChannelBinding) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO channel_bindings (id, user_id, channel_type, external_user_id, default_ledger_id, is_active, unbound_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.ChannelType, b.ExternalUserID, b.DefaultLedgerID, boolToInt(b.IsActive), nullTime(b.UnboundAt), b.CreatedAt.UTC().Format(time.RFC3339))
	if isUniqueConstraintError(err) {
		return fmt.Errorf("sqlite: active channel binding already exists: %w", err)
	}
	return err
}

func (s *Store) GetActiveChannelBinding(ctx context.Context, channelType domain.ChannelType, externalUserID string) (domain.ChannelBinding, error) {
	s.rlock()
	defer s.runlock()
	var b domain.ChannelBinding
	var isActive int
	var unboundAt sql.NullString
	var createdAt string
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, channel_type, external_user_id, default_ledger_id, is_active, unbound_at, created_at
		 FROM channel_bindings WHERE channel_type = ? AND external_user_id = ? AND is_active = 1`, channelType, externalUserID).
		Scan(&b.ID, &b.UserID, &b.ChannelType, &b.ExternalUserID, &b.DefaultLedgerID, &isActive, &unboundAt, &createdAt)
	if err != nil {
		return domain.ChannelBinding{}, notFoundIfNoRows(err, "channel_binding", externalUserID)
	}
	b.IsActive = isActive != 0
	if b.UnboundAt, err = parseNullTime(unboundAt); err != nil {
		return domain.ChannelBinding{}, err
	}
	b.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	return b, err
}

func (s *Store) ListChannelBindings(ctx context.Context, userID id.ID) ([]domain.ChannelBinding, error) {
	s.rlock()
	defer s.runlock()
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, user_id, channel_type, external_user_id, default_ledger_id, is_active, unbound_at, created_at
		 FROM channel_bindings WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ChannelBinding
	for rows.Next() {
		var b domain.ChannelBinding
		var isActive int
		var unboundAt sql.NullString
		var createdAt string
		if err := rows.Scan(&b.ID, &b.UserID, &b.ChannelType, &b.ExternalUserID, &b.DefaultLedgerID, &isActive, &unboundAt, &createdAt); err != nil {
			return nil, err
		}
		b.IsActive = isActive != 0
		if b.UnboundAt, err = parseNullTime(unboundAt); err != nil {
			return nil, err
		}
		if b.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UnbindChannel(ctx context.Context, bindingID id.ID, unboundAt time.Time) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`UPDATE channel_bindings SET is_active = 0, unbound_at = ? WHERE id = ?`,
		unboundAt.UTC().Format(time.RFC3339), bindingID)
	return err
}

// =============================================================================
// IMPORT SESSIONS
// =============================================================================

const importSelect = `SELECT id, ledger_id, import_type, bank_code, status, progress_current, progress_total,
	imported_count, skipped_count, error_count, created_accounts_count, created_at, updated_at FROM import_sessions`

func (s *Store) CreateImportSession(ctx context.Context, sess domain.ImportSession) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO import_sessions (id, ledger_id, import_type, bank_code, status, progress_current, progress_total,
			imported_count, skipped_count, error_count, created_accounts_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.LedgerID, sess.ImportType, nullableString(sess.BankCode), sess.Status,
		sess.ProgressCurrent, sess.ProgressTotal, sess.ImportedCount, sess.SkippedCount, sess.ErrorCount, sess.CreatedAccountsCount,
		sess.CreatedAt.UTC().Format(time.RFC3339), sess.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func scanImportSession(row *sql.Row) (domain.ImportSession, error) {
	var s domain.ImportSession
	var bankCode sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&s.ID, &s.LedgerID, &s.ImportType, &bankCode, &s.Status, &s.ProgressCurrent, &s.ProgressTotal,
		&s.ImportedCount, &s.SkippedCount, &s.ErrorCount, &s.CreatedAccountsCount, &createdAt, &updatedAt); err != nil {
		return domain.ImportSession{}, err
	}
	s.BankCode = bankCode.String
	var err error
	if s.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.ImportSession{}, err
	}
	if s.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return domain.ImportSession{}, err
	}
	return s, nil
}

func (s *Store) GetImportSession(ctx context.Context, sessionID id.ID) (domain.ImportSession, error) {
	s.rlock()
	defer s.runlock()
	sess, err := scanImportSession(s.conn.QueryRowContext(ctx, importSelect+` WHERE id = ?`, sessionID))
	return sess, notFoundIfNoRows(err, "import_session", sessionID.String())
}

func (s *Store) UpdateImportSession(ctx context.Context, sess domain.ImportSession) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`UPDATE import_sessions SET status = ?, progress_current = ?, progress_total = ?, imported_count = ?, skipped_count = ?,
			error_count = ?, created_accounts_count = ?, updated_at = ? WHERE id = ?`,
		sess.Status, sess.ProgressCurrent, sess.ProgressTotal, sess.ImportedCount, sess.SkippedCount,
		sess.ErrorCount, sess.CreatedAccountsCount, sess.UpdatedAt.UTC().Format(time.RFC3339), sess.ID)
	return err
}

func (s *Store) ListImportSessions(ctx context.Context, ledgerID id.ID) ([]domain.ImportSession, error) {
	s.rlock()
	defer s.runlock()
	rows, err := s.conn.QueryContext(ctx, importSelect+` WHERE ledger_id = ? ORDER BY created_at DESC`, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ImportSession
	for rows.Next() {
		var sess domain.ImportSession
		var bankCode sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&sess.ID, &sess.LedgerID, &sess.ImportType, &bankCode, &sess.Status, &sess.ProgressCurrent, &sess.ProgressTotal,
			&sess.ImportedCount, &sess.SkippedCount, &sess.ErrorCount, &sess.CreatedAccountsCount, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		sess.BankCode = bankCode.String
		if sess.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		if sess.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// =============================================================================
// GMAIL SCAN JOBS
// =============================================================================

func (s *Store) UpsertGmailScanJob(ctx context.Context, j domain.GmailScanJob) error {
	s.lock()
	defer s.unlock()
	var dayOfWeek sql.NullInt64
	if j.DayOfWeek != nil {
		dayOfWeek = sql.NullInt64{Int64: int64(*j.DayOfWeek), Valid: true}
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO gmail_scan_jobs (id, ledger_id, connection_status, frequency, hour, day_of_week, last_scan_at, last_scan_outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(ledger_id) DO UPDATE SET connection_status = excluded.connection_status, frequency = excluded.frequency,
			hour = excluded.hour, day_of_week = excluded.day_of_week, last_scan_at = excluded.last_scan_at, last_scan_outcome = excluded.last_scan_outcome`,
		j.ID, j.LedgerID, j.ConnectionStatus, j.Frequency, j.Hour, dayOfWeek, nullTime(j.LastScanAt), nullableString(j.LastScanOutcome),
		j.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func scanGmailJob(row *sql.Row) (domain.GmailScanJob, error) {
	var j domain.GmailScanJob
	var dayOfWeek sql.NullInt64
	var lastScanAt, lastScanOutcome sql.NullString
	var createdAt string
	if err := row.Scan(&j.ID, &j.LedgerID, &j.ConnectionStatus, &j.Frequency, &j.Hour, &dayOfWeek, &lastScanAt, &lastScanOutcome, &createdAt); err != nil {
		return domain.GmailScanJob{}, err
	}
	if dayOfWeek.Valid {
		d := int(dayOfWeek.Int64)
		j.DayOfWeek = &d
	}
	var err error
	if j.LastScanAt, err = parseNullTime(lastScanAt); err != nil {
		return domain.GmailScanJob{}, err
	}
	j.LastScanOutcome = lastScanOutcome.String
	if j.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.GmailScanJob{}, err
	}
	return j, nil
}

const gmailSelect = `SELECT id, ledger_id, connection_status, frequency, hour, day_of_week, last_scan_at, last_scan_outcome, created_at FROM gmail_scan_jobs`

func (s *Store) GetGmailScanJob(ctx context.Context, ledgerID id.ID) (domain.GmailScanJob, error) {
	s.rlock()
	defer s.runlock()
	j, err := scanGmailJob(s.conn.QueryRowContext(ctx, gmailSelect+` WHERE ledger_id = ?`, ledgerID))
	return j, notFoundIfNoRows(err, "gmail_scan_job", ledgerID.String())
}

func (s *Store) ListAllGmailScanJobs(ctx context.Context) ([]domain.GmailScanJob, error) {
	s.rlock()
	defer s.runlock()
	rows, err := s.conn.QueryContext(ctx, gmailSelect+` WHERE connection_status = 'CONNECTED'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.GmailScanJob
	for rows.Next() {
		var j domain.GmailScanJob
		var dayOfWeek sql.NullInt64
		var lastScanAt, lastScanOutcome sql.NullString
		var createdAt string
		if err := rows.Scan(&j.ID, &j.LedgerID, &j.ConnectionStatus, &j.Frequency, &j.Hour, &dayOfWeek, &lastScanAt, &lastScanOutcome, &createdAt); err != nil {
			return nil, err
		}
		if dayOfWeek.Valid {
			d := int(dayOfWeek.Int64)
			j.DayOfWeek = &d
		}
		if j.LastScanAt, err = parseNullTime(lastScanAt); err != nil {
			return nil, err
		}
		j.LastScanOutcome = lastScanOutcome.String
		if j.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// =============================================================================
// EMAIL AUTHORIZATIONS
// =============================================================================

func (s *Store) UpsertEmailAuthorization(ctx context.Context, a domain.EmailAuthorization) error {
	s.lock()
	defer s.unlock()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO email_authorizations (id, user_id, ledger_id, provider, encrypted_refresh_token, encrypted_pdf_password, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(ledger_id) DO UPDATE SET encrypted_refresh_token = excluded.encrypted_refresh_token,
			encrypted_pdf_password = excluded.encrypted_pdf_password, provider = excluded.provider`,
		a.ID, a.UserID, a.LedgerID, a.Provider, a.EncryptedRefreshToken, a.EncryptedPDFPassword, a.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetEmailAuthorization(ctx context.Context, ledgerID id.ID) (domain.EmailAuthorization, error) {
	s.rlock()
	defer s.runlock()
	var a domain.EmailAuthorization
	var pdfPassword []byte
	var createdAt string
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, ledger_id, provider, encrypted_refresh_token, encrypted_pdf_password, created_at
		 FROM email_authorizations WHERE ledger_id = ?`, ledgerID).
		Scan(&a.ID, &a.UserID, &a.LedgerID, &a.Provider, &a.EncryptedRefreshToken, &pdfPassword, &createdAt)
	if err != nil {
		return domain.EmailAuthorization{}, notFoundIfNoRows(err, "email_authorization", ledgerID.String())
	}
	a.EncryptedPDFPassword = pdfPassword
	a.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	return a, err
}

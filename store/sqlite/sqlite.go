/*
Package sqlite provides a SQLite-backed record store.

PURPOSE:

	Implements leave.TxStore, attendance.Store, leave.NotificationSink and
	generic.AuditLog on one database. In production the same patterns apply to
	PostgreSQL with minor SQL dialect differences.

KEY TABLES:

	employees, leave_types:   HR configuration
	leave_balances:           One row per (employee, type), decimal text
	leave_requests:           Filed requests and their status
	leave_request_days:       One row per consumed date, owned by its request
	holidays:                 Company calendar (normal / restricted)
	daily_attendance:         Punch summary per (employee, date)
	attendance_punches:       Raw punch log (time, device, direction)
	notifications, audit_log: Outputs of the engine
	increment_runs:           Last run of each type's increment policy

DATES AND AMOUNTS:

	Calendar days are stored as TEXT "YYYY-MM-DD" so range filters are plain
	string comparisons. Balances are stored as decimal TEXT, never REAL.

TRANSACTIONS:

	WithTx hands fn a Store bound to the *sql.Tx: every read and write made
	inside fn sees the same snapshot and commits or rolls back together.

CONCURRENCY:

	Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
	database-level concurrency control handles this instead.

USAGE:

	store, err := sqlite.New("./data/leave.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

SEE ALSO:
  - leave/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/leave-engine/attendance"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// timestampLayout sorts lexically; values are always UTC.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	q  querier
	mu *sync.RWMutex
	tx *sql.Tx // set on the view passed to WithTx
}

var (
	_ leave.TxStore          = (*Store)(nil)
	_ attendance.Store       = (*Store)(nil)
	_ leave.NotificationSink = (*Store)(nil)
	_ generic.AuditLog       = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection to ":memory:" is a separate database
		db.SetMaxOpenConns(1)
	}

	store := Open(db)
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Open wraps an existing connection without migrating it.
func Open(db *sql.DB) *Store {
	return &Store{db: db, q: db, mu: &sync.RWMutex{}}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		gender TEXT,
		manager_id TEXT,
		joining_date TEXT,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		max_days INTEGER,
		half_day_allowed INTEGER NOT NULL DEFAULT 0,
		sandwich INTEGER NOT NULL DEFAULT 0,
		duty_days_required INTEGER,
		days_check INTEGER,
		days_check_more INTEGER,
		days_check_equal_or_less INTEGER,
		increment_count TEXT NOT NULL DEFAULT '0',
		increment_gap_months INTEGER NOT NULL DEFAULT 0,
		carry_forward INTEGER NOT NULL DEFAULT 0,
		carry_forward_limit INTEGER
	);

	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		type_id TEXT NOT NULL,
		balance TEXT NOT NULL,
		PRIMARY KEY (employee_id, type_id)
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		type_id TEXT NOT NULL,
		half_day INTEGER NOT NULL DEFAULT 0,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		apply_date TEXT NOT NULL,
		status TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		processed_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee_type
		ON leave_requests(employee_id, type_id, status);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee_created
		ON leave_requests(employee_id, created_at);

	CREATE TABLE IF NOT EXISTS leave_request_days (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL REFERENCES leave_requests(id) ON DELETE CASCADE,
		leave_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_request_days_request
		ON leave_request_days(request_id);
	CREATE INDEX IF NOT EXISTS idx_leave_request_days_date
		ON leave_request_days(leave_date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_attendance (
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		arrival TEXT,
		departure TEXT,
		inside_minutes INTEGER NOT NULL DEFAULT 0,
		outside_minutes INTEGER NOT NULL DEFAULT 0,
		missed_punch INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (employee_id, date)
	);

	CREATE TABLE IF NOT EXISTS attendance_punches (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		punch_date TEXT NOT NULL,
		punch_time TEXT NOT NULL,
		device TEXT NOT NULL DEFAULT '',
		direction TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_punches_day
		ON attendance_punches(employee_id, punch_date);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_employee
		ON notifications(employee_id, created_at);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		employee_id TEXT NOT NULL DEFAULT '',
		type_id TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_employee
		ON audit_log(employee_id, timestamp);

	CREATE TABLE IF NOT EXISTS increment_runs (
		type_id TEXT PRIMARY KEY,
		last_run TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (leave.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store leave.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	view := &Store{db: s.db, q: sqlTx, mu: s.mu, tx: sqlTx}
	if err := fn(view); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rlock takes the read lock unless s is a transactional view, whose parent
// already holds the write lock.
func (s *Store) rlock() func() {
	if s.tx != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock() func() {
	if s.tx != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Reset deletes all rows. Used by tests and demo reseeding.
func (s *Store) Reset(ctx context.Context) error {
	defer s.lock()()
	tables := []string{
		"leave_request_days", "leave_requests", "leave_balances", "leave_types",
		"employees", "holidays", "daily_attendance", "attendance_punches", "notifications", "audit_log", "increment_runs",
	}
	for _, t := range tables {
		if _, err := s.q.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to reset %s: %w", t, err)
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullDate(tp *generic.TimePoint) sql.NullString {
	if tp == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: tp.String(), Valid: true}
}

func parseDate(s string) (generic.TimePoint, error) {
	tp, err := generic.ParseDate(s)
	if err != nil {
		return generic.TimePoint{}, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	return tp, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseAmount(s string) (generic.Amount, error) {
	a, err := generic.ParseAmount(s)
	if err != nil {
		return generic.Amount{}, fmt.Errorf("failed to parse stored amount: %w", err)
	}
	return a, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

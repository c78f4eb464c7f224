/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements every payroll and tables persistence interface using SQLite.
  In production the same patterns apply to PostgreSQL - only minor dialect
  differences, plus PostgreSQL's native range-exclusion constraint can
  replace the manual overlap re-check (see venue.go).

INTERFACES IMPLEMENTED:
  payroll.EmployeeStore / ShiftStore / SessionStore / ApprovalStore
  tables.BookingStore / TableStore / AssignmentStore / BlockStore

KEY TABLES:
  employees                   Hourly roster (rate, salaried marker)
  shift_plans                 Planned work blocks (rota-owned)
  time_sessions               Clock-in/out records (timeclock-owned)
  payroll_month_approvals     Month sign-offs, UNIQUE(year, month)
  payroll_periods             Accounting ranges, UNIQUE(year, month)
  table_areas / venue_tables  Physical layout
  table_bookings              Bookings with status and window
  booking_table_assignments   Booking-to-table joins with windows
  venue_spaces / space_area_map / private_bookings
                              Private-event blocks by area

CONSTRAINTS AS CONCURRENCY PRIMITIVES:
  - Approval uniqueness: UNIQUE(year, month) index; a violation maps to
    payroll.ErrAlreadyApproved so concurrent double-approval can never
    create two rows.
  - Assignment overlap: SQLite has no range-exclusion constraint, so
    Reassign runs a serialized transaction with an overlap re-check
    immediately before the write; a hit maps to tables.ErrTableConflict.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single
  writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/boh.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - payroll/store.go, tables/store.go: Interface contracts
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A ":memory:" database exists per connection; more than one pooled
	// connection would see different databases. One writer is all SQLite
	// gives us anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Payroll: roster
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hourly_rate TEXT NOT NULL DEFAULT '0',
		salaried BOOLEAN NOT NULL DEFAULT FALSE
	);

	-- Payroll: planned shifts (rota-owned; read + corrected here)
	CREATE TABLE IF NOT EXISTS shift_plans (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		department TEXT,
		note TEXT,
		sick BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_shift_plans_date ON shift_plans(date);
	CREATE INDEX IF NOT EXISTS idx_shift_plans_employee_date
		ON shift_plans(employee_id, date);

	-- Payroll: timeclock sessions (end_at NULL = still open)
	CREATE TABLE IF NOT EXISTS time_sessions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT,
		note TEXT,
		sick BOOLEAN NOT NULL DEFAULT FALSE,
		auto_closed BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_time_sessions_date ON time_sessions(date);
	CREATE INDEX IF NOT EXISTS idx_time_sessions_employee_date
		ON time_sessions(employee_id, date);

	-- CRITICAL: one approval per month. Concurrent approvals race on this
	-- index; the loser gets a constraint violation, never a second row.
	CREATE TABLE IF NOT EXISTS payroll_month_approvals (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		approved_at TEXT NOT NULL,
		email_sent_at TEXT,
		UNIQUE(year, month)
	);

	CREATE TABLE IF NOT EXISTS payroll_periods (
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		UNIQUE(year, month)
	);

	-- Venue layout
	CREATE TABLE IF NOT EXISTS table_areas (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS venue_tables (
		id TEXT PRIMARY KEY,
		table_number TEXT NOT NULL,
		name TEXT NOT NULL,
		capacity INTEGER NOT NULL,
		area_id TEXT NOT NULL REFERENCES table_areas(id),
		bookable BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE INDEX IF NOT EXISTS idx_venue_tables_area ON venue_tables(area_id);

	-- Bookings (created/transitioned by the bookings feature)
	CREATE TABLE IF NOT EXISTS table_bookings (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		time TEXT NOT NULL,
		party_size INTEGER NOT NULL,
		status TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'regular',
		start_at TEXT,
		end_at TEXT,
		duration_minutes INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_table_bookings_date ON table_bookings(date);
	CREATE INDEX IF NOT EXISTS idx_table_bookings_status ON table_bookings(status);

	-- Assignments. The overlap invariant (no two active bookings on the
	-- same table with intersecting windows) is enforced by Reassign's
	-- in-transaction re-check; this index is the hot path for it.
	CREATE TABLE IF NOT EXISTS booking_table_assignments (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL REFERENCES table_bookings(id),
		table_id TEXT NOT NULL REFERENCES venue_tables(id),
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		UNIQUE(booking_id, table_id)
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_booking
		ON booking_table_assignments(booking_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_table_window
		ON booking_table_assignments(table_id, start_at, end_at);

	-- Private-event spaces and their area mappings
	CREATE TABLE IF NOT EXISTS venue_spaces (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS space_area_map (
		space_id TEXT NOT NULL REFERENCES venue_spaces(id),
		area_id TEXT NOT NULL REFERENCES table_areas(id),
		UNIQUE(space_id, area_id)
	);

	CREATE TABLE IF NOT EXISTS private_bookings (
		id TEXT PRIMARY KEY,
		space_id TEXT NOT NULL REFERENCES venue_spaces(id),
		status TEXT NOT NULL DEFAULT 'confirmed',
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_private_bookings_window
		ON private_bookings(start_at, end_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

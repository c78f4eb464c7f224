/*
Package payroll reconciles planned shifts against timeclock sessions.

PURPOSE:
  For a given month, join the rota's planned shifts with the timeclock's
  actual clock-in/out sessions per employee per day, compute planned vs
  actual hours and the variance between them, flag anomalies, and produce
  per-employee and grand totals. The month becomes an approvable, immutable
  snapshot once signed off.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee:      Hourly rate + salaried marker (salaried are excluded)
  - ShiftPlan:     A planned work block from the rota
  - TimeSession:   An actual clock-in/out record (end may be open)
  - Row:           One derived line per (employee, date) pairing
  - FlagSet:       Anomaly markers (sick, variance, auto_close, unscheduled)
  - MonthApproval: The persisted month sign-off snapshot

DESIGN PRINCIPLES:
  1. Rows are computed fresh on every read, never persisted. The approval
     row is the only durable artifact.
  2. Precision: hours and pay use decimal.Decimal, rounded to two places.
  3. Salaried employees are excluded from the whole computation, not
     zero-rated.

SEE ALSO:
  - reconciler.go: The pairing and flag-derivation algorithm
  - service.go: Month data, approval, and row mutation operations
  - store.go: Injected persistence interfaces
*/
package payroll

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tably/boh-engine/clock"
)

// =============================================================================
// EMPLOYEE - Hourly workers only feed the reconciler
// =============================================================================

type Employee struct {
	ID         string
	Name       string
	HourlyRate decimal.Decimal
	Salaried   bool
}

// =============================================================================
// SHIFT PLAN - Planned work block (read-only here; rota owns writes)
// =============================================================================

type ShiftPlan struct {
	ID         string
	EmployeeID string
	Date       clock.CivilDate
	Start      time.Time // UTC instant
	End        time.Time // UTC instant
	Department string
	Note       string
	Sick       bool
}

// =============================================================================
// TIME SESSION - Actual clock-in/out record
// =============================================================================

type TimeSession struct {
	ID         string
	EmployeeID string
	Date       clock.CivilDate
	Start      time.Time  // UTC instant
	End        *time.Time // nil = still open (or was open at auto-close time)
	Note       string
	Sick       bool
	AutoClosed bool
}

// IsOpen reports whether the session has no explicit clock-out yet.
func (s TimeSession) IsOpen() bool { return s.End == nil }

// =============================================================================
// FLAGS - Anomaly markers on a row
// =============================================================================

type Flag string

const (
	FlagSick        Flag = "sick"        // shift or session carries a sick marker
	FlagVariance    Flag = "variance"    // |actual - planned| >= threshold, both sides present
	FlagAutoClose   Flag = "auto_close"  // session ended by the background auto-closer
	FlagUnscheduled Flag = "unscheduled" // session with no planned shift
	FlagOpen        Flag = "open"        // session still open; actual end is provisional
)

// VarianceThreshold is the minimum absolute hour difference that raises the
// variance flag. Differences below it are treated as equal.
var VarianceThreshold = decimal.NewFromFloat(0.05)

// FlagSet is an order-independent set of flags.
type FlagSet map[Flag]struct{}

func NewFlagSet(flags ...Flag) FlagSet {
	fs := make(FlagSet, len(flags))
	for _, f := range flags {
		fs[f] = struct{}{}
	}
	return fs
}

func (fs FlagSet) Has(f Flag) bool { _, ok := fs[f]; return ok }

func (fs FlagSet) Add(f Flag) { fs[f] = struct{}{} }

func (fs FlagSet) Equal(other FlagSet) bool {
	if len(fs) != len(other) {
		return false
	}
	for f := range fs {
		if !other.Has(f) {
			return false
		}
	}
	return true
}

// String joins flags comma-separated in sorted order, for display and storage.
func (fs FlagSet) String() string {
	names := make([]string, 0, len(fs))
	for f := range fs {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// ParseFlagSet reads a comma- or space-joined flag string.
func ParseFlagSet(s string) FlagSet {
	fs := NewFlagSet()
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part != "" {
			fs.Add(Flag(part))
		}
	}
	return fs
}

// =============================================================================
// ROW - One derived payroll line per (employee, date) pairing
// =============================================================================

// Row is never persisted; it is recomputed on every read. A row has a plan
// side, a session side, or both.
type Row struct {
	EmployeeID   string
	EmployeeName string
	Date         clock.CivilDate

	PlannedStart *time.Time
	PlannedEnd   *time.Time
	PlannedHours decimal.Decimal

	ActualStart *time.Time
	ActualEnd   *time.Time
	ActualHours decimal.Decimal

	Variance decimal.Decimal // actual - planned, zero when either side missing
	Flags    FlagSet
	Pay      decimal.Decimal // actual hours x hourly rate

	ShiftID     string
	ShiftNote   string
	SessionID   string
	SessionNote string
}

func (r Row) HasPlan() bool   { return r.PlannedStart != nil }
func (r Row) HasActual() bool { return r.ActualStart != nil }

// =============================================================================
// SUMMARIES AND MONTH DATA
// =============================================================================

type EmployeeSummary struct {
	EmployeeID   string
	Name         string
	HourlyRate   decimal.Decimal
	PlannedHours decimal.Decimal
	ActualHours  decimal.Decimal
	Pay          decimal.Decimal
	RowCount     int
}

type Totals struct {
	PlannedHours decimal.Decimal
	ActualHours  decimal.Decimal
	Pay          decimal.Decimal
}

type MonthData struct {
	Year      int
	Month     time.Month
	Rows      []Row
	Employees []EmployeeSummary
	Totals    Totals
	Period    Period
	Approval  *MonthApproval // nil while the month is unapproved
}

// Approved reports whether this month carries a sign-off.
func (m *MonthData) Approved() bool { return m.Approval != nil }

// =============================================================================
// APPROVAL AND PERIOD - The durable artifacts
// =============================================================================

// MonthApproval freezes a month for accounting. Exactly one row may exist
// per (year, month); the store's unique constraint is the arbiter.
type MonthApproval struct {
	ID          string
	Year        int
	Month       time.Month
	ApprovedAt  time.Time
	EmailSentAt *time.Time
}

// Period is the accounting date range for a (year, month) pair. Editable
// only while the month is unapproved.
type Period struct {
	Year  int
	Month time.Month
	Start clock.CivilDate
	End   clock.CivilDate
}

// DefaultPeriod covers the calendar month exactly.
func DefaultPeriod(year int, month time.Month) Period {
	return Period{
		Year:  year,
		Month: month,
		Start: clock.CivilDate{Year: year, Month: month, Day: 1},
		End:   clock.CivilDate{Year: year, Month: month, Day: clock.DaysInMonth(year, month)},
	}
}

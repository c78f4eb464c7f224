/*
store.go - Persistence interfaces for payroll data

PURPOSE:
  The reconciler never talks to a database directly; it is handed these
  narrow interfaces. Shifts and sessions are owned by the rota and
  timeclock features - this package only reads them month-at-a-time and
  performs the single-row corrections exposed through the service.

IMPLEMENTATIONS:
  - store/sqlite: production store
  - store/memory: in-memory store for tests

SEE ALSO:
  - service.go: The operations composed from these interfaces
*/
package payroll

import (
	"context"
	"time"
)

// EmployeeStore supplies the hourly staff roster. Salaried employees are
// filtered out here so the reconciler never sees them.
type EmployeeStore interface {
	// HourlyEmployees returns all non-salaried employees.
	HourlyEmployees(ctx context.Context) ([]Employee, error)
}

// ShiftStore reads and corrects planned shifts, scoped to a month.
type ShiftStore interface {
	// ShiftsForMonth returns all shift plans dated within (year, month).
	ShiftsForMonth(ctx context.Context, year int, month time.Month) ([]ShiftPlan, error)

	// DeleteShift removes a planned shift. ErrShiftNotFound if absent.
	DeleteShift(ctx context.Context, id string) error
}

// SessionStore reads and corrects timeclock sessions, scoped to a month.
type SessionStore interface {
	// SessionsForMonth returns all sessions dated within (year, month).
	SessionsForMonth(ctx context.Context, year int, month time.Month) ([]TimeSession, error)

	// UpdateSessionTimes rewrites a session's start and end instants.
	// end == nil reopens the session. ErrSessionNotFound if absent.
	UpdateSessionTimes(ctx context.Context, id string, start time.Time, end *time.Time) error

	// DeleteSession removes a session. ErrSessionNotFound if absent.
	DeleteSession(ctx context.Context, id string) error
}

// ApprovalStore persists month approvals and accounting periods, each
// keyed uniquely by (year, month).
type ApprovalStore interface {
	// Approval returns the approval row for (year, month), or nil.
	Approval(ctx context.Context, year int, month time.Month) (*MonthApproval, error)

	// CreateApproval inserts the approval row. Returns ErrAlreadyApproved
	// (via the unique constraint) when one already exists - concurrent
	// double-approval must never produce two rows.
	CreateApproval(ctx context.Context, approval MonthApproval) error

	// MarkEmailSent records when the summary email went out.
	MarkEmailSent(ctx context.Context, year int, month time.Month, at time.Time) error

	// PeriodFor returns the stored accounting period, or nil when the
	// default calendar-month period applies.
	PeriodFor(ctx context.Context, year int, month time.Month) (*Period, error)

	// SavePeriod upserts the accounting period for its (year, month).
	SavePeriod(ctx context.Context, period Period) error
}

// OpenSessionStore is the auto-closer's view of the timeclock: sessions
// still open past the forgotten-clock-out cutoff, and the write that closes
// them with the auto_closed marker.
type OpenSessionStore interface {
	// OpenSessionsBefore returns sessions with no end whose start is before
	// the cutoff.
	OpenSessionsBefore(ctx context.Context, cutoff time.Time) ([]TimeSession, error)

	// CloseSessionAuto sets the session's end and marks it auto-closed.
	// A session closed by its employee in the meantime is left alone.
	CloseSessionAuto(ctx context.Context, id string, end time.Time) error
}

// Mailer delivers the approved month summary. Delivery is out of scope for
// the core; this interface exists so the service can refuse to send before
// an approval exists and record when sending happened.
type Mailer interface {
	SendPayrollSummary(ctx context.Context, data *MonthData) error
}

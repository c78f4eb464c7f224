/*
service.go - Month data, approval, and correction operations

PURPOSE:
  Composes the reconciler with the injected stores into the operations the
  payroll page calls. Reads are side-effect-free; the three mutations
  (approve, update row times, delete row) are each single-row and
  independently transactional - rows are recomputed fresh on the next read,
  so no cross-row coordination is needed.

RE-APPROVAL SIGNALLING:
  Editing or deleting a row after the month is approved succeeds, but the
  result carries RequiresReapproval=true so the caller can surface that the
  frozen snapshot is now stale rather than silently keeping it.

SEE ALSO:
  - reconciler.go: Row computation
  - store.go: Persistence interfaces
*/
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tably/boh-engine/clock"
)

// Service exposes the payroll collaborator contract.
type Service struct {
	Employees EmployeeStore
	Shifts    ShiftStore
	Sessions  SessionStore
	Approvals ApprovalStore
	Mailer    Mailer

	// Zone is the venue timezone all shift/session clock times are entered in.
	Zone *time.Location

	Reconciler *Reconciler
	Now        func() time.Time
}

func NewService(employees EmployeeStore, shifts ShiftStore, sessions SessionStore, approvals ApprovalStore, mailer Mailer, zone *time.Location) *Service {
	return &Service{
		Employees:  employees,
		Shifts:     shifts,
		Sessions:   sessions,
		Approvals:  approvals,
		Mailer:     mailer,
		Zone:       zone,
		Reconciler: NewReconciler(),
		Now:        time.Now,
	}
}

// =============================================================================
// READ: MONTH DATA
// =============================================================================

// MonthData computes the full month view. Returns ErrNoDataForPeriod when
// the month has no hourly shifts or sessions at all.
func (s *Service) MonthData(ctx context.Context, year int, month time.Month) (*MonthData, error) {
	employees, err := s.Employees.HourlyEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	shifts, err := s.Shifts.ShiftsForMonth(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("load shifts: %w", err)
	}
	sessions, err := s.Sessions.SessionsForMonth(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	if len(shifts) == 0 && len(sessions) == 0 {
		return nil, ErrNoDataForPeriod
	}

	rows := s.Reconciler.Reconcile(employees, shifts, sessions)
	summaries, totals := Summarize(employees, rows)

	period, err := s.periodOrDefault(ctx, year, month)
	if err != nil {
		return nil, err
	}
	approval, err := s.Approvals.Approval(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("load approval: %w", err)
	}

	return &MonthData{
		Year:      year,
		Month:     month,
		Rows:      rows,
		Employees: summaries,
		Totals:    totals,
		Period:    period,
		Approval:  approval,
	}, nil
}

// =============================================================================
// WRITE: APPROVAL
// =============================================================================

// ApproveMonth creates the (year, month) approval snapshot. A concurrent
// double-approval loses with ErrAlreadyApproved; the store's unique
// constraint guarantees at most one row ever exists.
func (s *Service) ApproveMonth(ctx context.Context, year int, month time.Month) (*MonthApproval, error) {
	if existing, err := s.Approvals.Approval(ctx, year, month); err != nil {
		return nil, fmt.Errorf("load approval: %w", err)
	} else if existing != nil {
		return nil, &AlreadyApprovedError{Year: year, Month: month, ApprovedAt: existing.ApprovedAt}
	}

	approval := MonthApproval{
		ID:         uuid.NewString(),
		Year:       year,
		Month:      month,
		ApprovedAt: s.now(),
	}
	if err := s.Approvals.CreateApproval(ctx, approval); err != nil {
		// The pre-check above races with concurrent approvers; the
		// constraint violation from the store settles it.
		return nil, err
	}
	return &approval, nil
}

// =============================================================================
// WRITE: ROW CORRECTIONS
// =============================================================================

// UpdateRowTimesRequest rewrites one session's clocked times. Times are
// venue-zone clock strings; EndTime nil reopens the session.
type UpdateRowTimesRequest struct {
	SessionID  string
	EmployeeID string
	Date       string // YYYY-MM-DD
	StartTime  string // HH:MM
	EndTime    *string
	Year       int
	Month      time.Month
}

// MutationResult reports whether the mutation landed in an approved month.
type MutationResult struct {
	RequiresReapproval bool
}

// UpdateRowTimes corrects a session's start/end. Succeeds even when the
// month is approved, but flags that re-approval is now required.
func (s *Service) UpdateRowTimes(ctx context.Context, req UpdateRowTimesRequest) (*MutationResult, error) {
	date, err := clock.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	startClock, err := clock.ParseClock(req.StartTime)
	if err != nil {
		return nil, err
	}
	start := clock.Instant(date, startClock, s.Zone)

	var end *time.Time
	if req.EndTime != nil {
		endClock, err := clock.ParseClock(*req.EndTime)
		if err != nil {
			return nil, err
		}
		e := clock.Instant(date, endClock, s.Zone)
		if !e.After(start) {
			// Overnight session: the clock-out belongs to the next day.
			e = e.AddDate(0, 0, 1)
		}
		end = &e
	}

	if err := s.Sessions.UpdateSessionTimes(ctx, req.SessionID, start, end); err != nil {
		return nil, err
	}
	return s.mutationResult(ctx, req.Year, req.Month)
}

// DeleteRow removes a row's session and/or shift. Either id may be empty.
func (s *Service) DeleteRow(ctx context.Context, sessionID, shiftID string, year int, month time.Month) (*MutationResult, error) {
	if sessionID != "" {
		if err := s.Sessions.DeleteSession(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	if shiftID != "" {
		if err := s.Shifts.DeleteShift(ctx, shiftID); err != nil {
			return nil, err
		}
	}
	return s.mutationResult(ctx, year, month)
}

func (s *Service) mutationResult(ctx context.Context, year int, month time.Month) (*MutationResult, error) {
	approval, err := s.Approvals.Approval(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("load approval: %w", err)
	}
	return &MutationResult{RequiresReapproval: approval != nil}, nil
}

// =============================================================================
// WRITE: ACCOUNTING PERIOD
// =============================================================================

// UpdatePeriod rewrites the accounting date range for (year, month).
// Rejected with ErrMonthApproved once the month is signed off.
func (s *Service) UpdatePeriod(ctx context.Context, year int, month time.Month, start, end string) (*Period, error) {
	startDate, err := clock.ParseDate(start)
	if err != nil {
		return nil, err
	}
	endDate, err := clock.ParseDate(end)
	if err != nil {
		return nil, err
	}
	if lessDate(endDate, startDate) {
		return nil, &clock.FormatError{Input: end, Want: "end on or after start"}
	}

	approval, err := s.Approvals.Approval(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("load approval: %w", err)
	}
	if approval != nil {
		return nil, ErrMonthApproved
	}

	period := Period{Year: year, Month: month, Start: startDate, End: endDate}
	if err := s.Approvals.SavePeriod(ctx, period); err != nil {
		return nil, err
	}
	return &period, nil
}

// =============================================================================
// EMAIL
// =============================================================================

// SendMonthEmail delivers the month summary through the injected Mailer.
// Requires an existing approval; records email_sent_at on success.
func (s *Service) SendMonthEmail(ctx context.Context, year int, month time.Month) error {
	approval, err := s.Approvals.Approval(ctx, year, month)
	if err != nil {
		return fmt.Errorf("load approval: %w", err)
	}
	if approval == nil {
		return ErrNotApproved
	}

	data, err := s.MonthData(ctx, year, month)
	if err != nil {
		return err
	}
	if err := s.Mailer.SendPayrollSummary(ctx, data); err != nil {
		return fmt.Errorf("send payroll summary: %w", err)
	}
	return s.Approvals.MarkEmailSent(ctx, year, month, s.now())
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) periodOrDefault(ctx context.Context, year int, month time.Month) (Period, error) {
	stored, err := s.Approvals.PeriodFor(ctx, year, month)
	if err != nil {
		return Period{}, fmt.Errorf("load period: %w", err)
	}
	if stored != nil {
		return *stored, nil
	}
	return DefaultPeriod(year, month), nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

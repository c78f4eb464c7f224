/*
payroll.go - SQLite implementation of the payroll store interfaces

Dates are stored as YYYY-MM-DD text, instants as RFC3339 UTC text, and
decimal rates as text to avoid float drift. Month scoping uses a LIKE on
the date prefix, which the date indexes serve.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tably/boh-engine/clock"
	"github.com/tably/boh-engine/payroll"
)

// =============================================================================
// EMPLOYEES (payroll.EmployeeStore)
// =============================================================================

// SaveEmployee upserts an employee row (seed/admin path).
func (s *Store) SaveEmployee(ctx context.Context, e payroll.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, hourly_rate, salaried)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			hourly_rate = excluded.hourly_rate,
			salaried = excluded.salaried
	`, e.ID, e.Name, e.HourlyRate.String(), e.Salaried)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// HourlyEmployees returns all non-salaried employees.
func (s *Store) HourlyEmployees(ctx context.Context) ([]payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, hourly_rate, salaried
		FROM employees
		WHERE salaried = FALSE
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []payroll.Employee
	for rows.Next() {
		var e payroll.Employee
		var rate string
		if err := rows.Scan(&e.ID, &e.Name, &rate, &e.Salaried); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		e.HourlyRate, err = decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("bad hourly_rate for employee %s: %w", e.ID, err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// =============================================================================
// SHIFT PLANS (payroll.ShiftStore)
// =============================================================================

// SaveShift upserts a shift plan (seed path; the rota feature owns writes).
func (s *Store) SaveShift(ctx context.Context, sp payroll.ShiftPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shift_plans (id, employee_id, date, start_at, end_at, department, note, sick)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			date = excluded.date,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			department = excluded.department,
			note = excluded.note,
			sick = excluded.sick
	`, sp.ID, sp.EmployeeID, sp.Date.String(), formatTime(sp.Start), formatTime(sp.End),
		nullString(sp.Department), nullString(sp.Note), sp.Sick)
	if err != nil {
		return fmt.Errorf("failed to save shift: %w", err)
	}
	return nil
}

// ShiftsForMonth returns all shift plans dated within (year, month).
func (s *Store) ShiftsForMonth(ctx context.Context, year int, month time.Month) ([]payroll.ShiftPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, date, start_at, end_at,
		       COALESCE(department, ''), COALESCE(note, ''), sick
		FROM shift_plans
		WHERE date LIKE ?
		ORDER BY date, start_at
	`, monthPrefix(year, month))
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []payroll.ShiftPlan
	for rows.Next() {
		var sp payroll.ShiftPlan
		var date, start, end string
		if err := rows.Scan(&sp.ID, &sp.EmployeeID, &date, &start, &end, &sp.Department, &sp.Note, &sp.Sick); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		if sp.Date, err = clock.ParseDate(date); err != nil {
			return nil, err
		}
		if sp.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if sp.End, err = parseTime(end); err != nil {
			return nil, err
		}
		shifts = append(shifts, sp)
	}
	return shifts, rows.Err()
}

// DeleteShift removes a planned shift.
func (s *Store) DeleteShift(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM shift_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shift: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payroll.ErrShiftNotFound
	}
	return nil
}

// =============================================================================
// TIME SESSIONS (payroll.SessionStore)
// =============================================================================

// SaveSession upserts a time session (seed path; the timeclock owns writes).
func (s *Store) SaveSession(ctx context.Context, ts payroll.TimeSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_sessions (id, employee_id, date, start_at, end_at, note, sick, auto_closed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			date = excluded.date,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			note = excluded.note,
			sick = excluded.sick,
			auto_closed = excluded.auto_closed
	`, ts.ID, ts.EmployeeID, ts.Date.String(), formatTime(ts.Start), nullTime(ts.End),
		nullString(ts.Note), ts.Sick, ts.AutoClosed)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// SessionsForMonth returns all sessions dated within (year, month).
func (s *Store) SessionsForMonth(ctx context.Context, year int, month time.Month) ([]payroll.TimeSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, date, start_at, end_at, COALESCE(note, ''), sick, auto_closed
		FROM time_sessions
		WHERE date LIKE ?
		ORDER BY date, start_at
	`, monthPrefix(year, month))
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []payroll.TimeSession
	for rows.Next() {
		var ts payroll.TimeSession
		var date, start string
		var end sql.NullString
		if err := rows.Scan(&ts.ID, &ts.EmployeeID, &date, &start, &end, &ts.Note, &ts.Sick, &ts.AutoClosed); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if ts.Date, err = clock.ParseDate(date); err != nil {
			return nil, err
		}
		if ts.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if end.Valid {
			t, err := parseTime(end.String)
			if err != nil {
				return nil, err
			}
			ts.End = &t
		}
		sessions = append(sessions, ts)
	}
	return sessions, rows.Err()
}

// UpdateSessionTimes rewrites a session's start/end instants.
func (s *Store) UpdateSessionTimes(ctx context.Context, id string, start time.Time, end *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE time_sessions SET start_at = ?, end_at = ? WHERE id = ?
	`, formatTime(start), nullTime(end), id)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payroll.ErrSessionNotFound
	}
	return nil
}

// OpenSessionsBefore returns sessions with no end whose start precedes the
// cutoff.
func (s *Store) OpenSessionsBefore(ctx context.Context, cutoff time.Time) ([]payroll.TimeSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, date, start_at, end_at, COALESCE(note, ''), sick, auto_closed
		FROM time_sessions
		WHERE end_at IS NULL AND start_at < ?
		ORDER BY start_at
	`, formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("failed to query open sessions: %w", err)
	}
	defer rows.Close()

	var sessions []payroll.TimeSession
	for rows.Next() {
		var ts payroll.TimeSession
		var date, start string
		var end sql.NullString
		if err := rows.Scan(&ts.ID, &ts.EmployeeID, &date, &start, &end, &ts.Note, &ts.Sick, &ts.AutoClosed); err != nil {
			return nil, fmt.Errorf("failed to scan open session: %w", err)
		}
		if ts.Date, err = clock.ParseDate(date); err != nil {
			return nil, err
		}
		if ts.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		sessions = append(sessions, ts)
	}
	return sessions, rows.Err()
}

// CloseSessionAuto ends an open session with the auto_closed marker. The
// end_at IS NULL guard makes the sweep idempotent against an employee
// clocking out mid-sweep.
func (s *Store) CloseSessionAuto(ctx context.Context, id string, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE time_sessions
		SET end_at = ?, auto_closed = TRUE
		WHERE id = ? AND end_at IS NULL
	`, formatTime(end), id)
	if err != nil {
		return fmt.Errorf("failed to auto-close session: %w", err)
	}
	return nil
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM time_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payroll.ErrSessionNotFound
	}
	return nil
}

// =============================================================================
// APPROVALS AND PERIODS (payroll.ApprovalStore)
// =============================================================================

// Approval returns the approval row for (year, month), or nil.
func (s *Store) Approval(ctx context.Context, year int, month time.Month) (*payroll.MonthApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, year, month, approved_at, email_sent_at
		FROM payroll_month_approvals
		WHERE year = ? AND month = ?
	`, year, int(month))

	var a payroll.MonthApproval
	var monthInt int
	var approvedAt string
	var emailSentAt sql.NullString
	err := row.Scan(&a.ID, &a.Year, &monthInt, &approvedAt, &emailSentAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query approval: %w", err)
	}
	a.Month = time.Month(monthInt)
	if a.ApprovedAt, err = parseTime(approvedAt); err != nil {
		return nil, err
	}
	if emailSentAt.Valid {
		t, err := parseTime(emailSentAt.String)
		if err != nil {
			return nil, err
		}
		a.EmailSentAt = &t
	}
	return &a, nil
}

// CreateApproval inserts the approval row. The UNIQUE(year, month) index
// settles concurrent approvals: the loser gets ErrAlreadyApproved.
func (s *Store) CreateApproval(ctx context.Context, a payroll.MonthApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payroll_month_approvals (id, year, month, approved_at, email_sent_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.Year, int(a.Month), formatTime(a.ApprovedAt), nullTime(a.EmailSentAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return &payroll.AlreadyApprovedError{Year: a.Year, Month: a.Month, ApprovedAt: a.ApprovedAt}
		}
		return fmt.Errorf("failed to create approval: %w", err)
	}
	return nil
}

// MarkEmailSent records when the summary email went out.
func (s *Store) MarkEmailSent(ctx context.Context, year int, month time.Month, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE payroll_month_approvals SET email_sent_at = ? WHERE year = ? AND month = ?
	`, formatTime(at), year, int(month))
	if err != nil {
		return fmt.Errorf("failed to mark email sent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payroll.ErrNotApproved
	}
	return nil
}

// PeriodFor returns the stored accounting period, or nil.
func (s *Store) PeriodFor(ctx context.Context, year int, month time.Month) (*payroll.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT year, month, period_start, period_end
		FROM payroll_periods
		WHERE year = ? AND month = ?
	`, year, int(month))

	var p payroll.Period
	var monthInt int
	var start, end string
	err := row.Scan(&p.Year, &monthInt, &start, &end)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query period: %w", err)
	}
	p.Month = time.Month(monthInt)
	if p.Start, err = clock.ParseDate(start); err != nil {
		return nil, err
	}
	if p.End, err = clock.ParseDate(end); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePeriod upserts the accounting period for its (year, month).
func (s *Store) SavePeriod(ctx context.Context, p payroll.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payroll_periods (year, month, period_start, period_end)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(year, month) DO UPDATE SET
			period_start = excluded.period_start,
			period_end = excluded.period_end
	`, p.Year, int(p.Month), p.Start.String(), p.End.String())
	if err != nil {
		return fmt.Errorf("failed to save period: %w", err)
	}
	return nil
}

// monthPrefix builds the "YYYY-MM-%" LIKE pattern for month scoping.
func monthPrefix(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d-%%", year, int(month))
}

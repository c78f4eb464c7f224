package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tably/boh-engine/clock"
	"github.com/tably/boh-engine/payroll"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var london = mustZone("Europe/London")

func mustZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func hourly(id, name string, rate float64) payroll.Employee {
	return payroll.Employee{ID: id, Name: name, HourlyRate: decimal.NewFromFloat(rate)}
}

func shift(id, employeeID, date, start, end string) payroll.ShiftPlan {
	d := clock.MustDate(date)
	return payroll.ShiftPlan{
		ID:         id,
		EmployeeID: employeeID,
		Date:       d,
		Start:      clock.Instant(d, clock.MustClock(start), london),
		End:        clock.Instant(d, clock.MustClock(end), london),
	}
}

func session(id, employeeID, date, start, end string) payroll.TimeSession {
	d := clock.MustDate(date)
	e := clock.Instant(d, clock.MustClock(end), london)
	return payroll.TimeSession{
		ID:         id,
		EmployeeID: employeeID,
		Date:       d,
		Start:      clock.Instant(d, clock.MustClock(start), london),
		End:        &e,
	}
}

func reconcile(t *testing.T, employees []payroll.Employee, shifts []payroll.ShiftPlan, sessions []payroll.TimeSession) []payroll.Row {
	t.Helper()
	r := payroll.NewReconciler()
	r.Now = func() time.Time { return time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC) }
	return r.Reconcile(employees, shifts, sessions)
}

// =============================================================================
// VARIANCE
// =============================================================================

func TestReconcile_LateInLateOut_VarianceFlagged(t *testing.T) {
	// GIVEN: A shift planned 09:00-17:00 and a session clocked 09:05-17:10
	// WHEN: The month is reconciled
	// THEN: One row with variance +0.08h and exactly the variance flag

	employees := []payroll.Employee{hourly("emp-1", "Ana", 10)}
	shifts := []payroll.ShiftPlan{shift("shift-1", "emp-1", "2025-07-04", "09:00", "17:00")}
	sessions := []payroll.TimeSession{session("sess-1", "emp-1", "2025-07-04", "09:05", "17:10")}

	rows := reconcile(t, employees, shifts, sessions)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.True(t, row.PlannedHours.Equal(decimal.NewFromFloat(8.0)), "planned hours: %s", row.PlannedHours)
	assert.True(t, row.ActualHours.Equal(decimal.NewFromFloat(8.08)), "actual hours: %s", row.ActualHours)
	assert.True(t, row.Variance.Equal(decimal.NewFromFloat(0.08)), "variance: %s", row.Variance)
	assert.True(t, row.Flags.Equal(payroll.NewFlagSet(payroll.FlagVariance)), "flags: %s", row.Flags)
	assert.True(t, row.Pay.Equal(decimal.NewFromFloat(80.80)), "pay: %s", row.Pay)
}

func TestReconcile_TinyDifference_NoVarianceFlag(t *testing.T) {
	// GIVEN: Actual hours differ from planned by less than 0.05h
	// WHEN: The month is reconciled
	// THEN: Variance is recorded but not flagged

	employees := []payroll.Employee{hourly("emp-1", "Ana", 10)}
	shifts := []payroll.ShiftPlan{shift("shift-1", "emp-1", "2025-07-04", "09:00", "17:00")}
	sessions := []payroll.TimeSession{session("sess-1", "emp-1", "2025-07-04", "09:00", "17:02")}

	rows := reconcile(t, employees, shifts, sessions)
	require.Len(t, rows, 1)

	assert.True(t, rows[0].Variance.Equal(decimal.NewFromFloat(0.03)), "variance: %s", rows[0].Variance)
	assert.False(t, rows[0].Flags.Has(payroll.FlagVariance))
}

func TestReconcile_OneSideMissing_NoVarianceFlag(t *testing.T) {
	// GIVEN: A planned shift with no session, and a session with no shift
	// WHEN: The month is reconciled
	// THEN: Neither row carries the variance flag, whatever the hour gap

	employees := []payroll.Employee{hourly("emp-1", "Ana", 10), hourly("emp-2", "Ben", 10)}
	shifts := []payroll.ShiftPlan{shift("shift-1", "emp-1", "2025-07-04", "09:00", "17:00")}
	sessions := []payroll.TimeSession{session("sess-1", "emp-2", "2025-07-04", "18:00", "23:00")}

	rows := reconcile(t, employees, shifts, sessions)
	require.Len(t, rows, 2)

	for _, row := range rows {
		assert.False(t, row.Flags.Has(payroll.FlagVariance), "row for %s", row.EmployeeID)
		assert.True(t, row.Variance.IsZero(), "row for %s", row.EmployeeID)
	}
}

// =============================================================================
// FLAGS
// =============================================================================

func TestReconcile_UnscheduledSession_Flagged(t *testing.T) {
	// GIVEN: A session on a day with no planned shift
	// WHEN: The month is reconciled
	// THEN: The row has no planned side and carries the unscheduled flag

	employees := []payroll.Employee{hourly("emp-1", "Ana", 12)}
	sessions := []payroll.TimeSession{session("sess-1", "emp-1", "2025-07-10", "18:00", "22:00")}

	rows := reconcile(t, employees, nil, sessions)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Nil(t, row.PlannedStart)
	assert.True(t, row.Flags.Has(payroll.FlagUnscheduled))
	assert.True(t, row.ActualHours.Equal(decimal.NewFromFloat(4.0)))
	assert.True(t, row.Pay.Equal(decimal.NewFromFloat(48.00)))
}

func TestReconcile_SickShift_Flagged(t *testing.T) {
	// GIVEN: A shift marked sick with no session
	// WHEN: The month is reconciled
	// THEN: The row carries the sick flag and zero actual hours

	sick := shift("shift-1", "emp-1", "2025-07-04", "09:00", "17:00")
	sick.Sick = true

	rows := reconcile(t, []payroll.Employee{hourly("emp-1", "Ana", 10)}, []payroll.ShiftPlan{sick}, nil)
	require.Len(t, rows, 1)

	assert.True(t, rows[0].Flags.Has(payroll.FlagSick))
	assert.True(t, rows[0].ActualHours.IsZero())
	assert.True(t, rows[0].Pay.IsZero())
}

func TestReconcile_AutoClosedSession_Flagged(t *testing.T) {
	// GIVEN: A session ended by the background auto-closer
	// WHEN: The month is reconciled
	// THEN: The row carries the auto_close flag

	s := session("sess-1", "emp-1", "2025-07-04", "09:00", "17:00")
	s.AutoClosed = true

	rows := reconcile(t, []payroll.Employee{hourly("emp-1", "Ana", 10)},
		[]payroll.ShiftPlan{shift("shift-1", "emp-1", "2025-07-04", "09:00", "17:00")},
		[]payroll.TimeSession{s})
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Flags.Has(payroll.FlagAutoClose))
}

func TestReconcile_OpenSession_ProvisionalHours(t *testing.T) {
	// GIVEN: A session clocked in at 09:00 with no clock-out, "now" is 12:00 UTC
	// WHEN: The month is reconciled
	// THEN: Actual hours run to now, the open flag is set, actual end stays nil

	d := clock.MustDate("2025-07-15")
	open := payroll.TimeSession{
		ID:         "sess-open",
		EmployeeID: "emp-1",
		Date:       d,
		Start:      clock.Instant(d, clock.MustClock("09:00"), london),
	}

	rows := reconcile(t, []payroll.Employee{hourly("emp-1", "Ana", 10)}, nil, []payroll.TimeSession{open})
	require.Len(t, rows, 1)

	row := rows[0]
	assert.True(t, row.Flags.Has(payroll.FlagOpen))
	assert.Nil(t, row.ActualEnd, "open session must not report a final end")
	// 09:00 BST is 08:00 UTC; injected now is 12:00 UTC.
	assert.True(t, row.ActualHours.Equal(decimal.NewFromFloat(4.0)), "hours: %s", row.ActualHours)
}

// =============================================================================
// ROSTER SCOPE
// =============================================================================

func TestReconcile_SalariedEmployee_Excluded(t *testing.T) {
	// GIVEN: A salaried manager with both a shift and a session on file
	// WHEN: The month is reconciled
	// THEN: No rows are produced for them at all

	manager := payroll.Employee{ID: "emp-gm", Name: "Dana", Salaried: true}
	employees := []payroll.Employee{manager, hourly("emp-1", "Ana", 10)}
	shifts := []payroll.ShiftPlan{
		shift("shift-gm", "emp-gm", "2025-07-04", "09:00", "17:00"),
		shift("shift-1", "emp-1", "2025-07-04", "09:00", "17:00"),
	}
	sessions := []payroll.TimeSession{session("sess-gm", "emp-gm", "2025-07-04", "09:00", "17:00")}

	rows := reconcile(t, employees, shifts, sessions)
	require.Len(t, rows, 1)
	assert.Equal(t, "emp-1", rows[0].EmployeeID)
}

func TestReconcile_UnknownEmployee_Dropped(t *testing.T) {
	// GIVEN: A session for an employee id not on the roster
	// WHEN: The month is reconciled
	// THEN: It produces no row

	rows := reconcile(t, []payroll.Employee{hourly("emp-1", "Ana", 10)}, nil,
		[]payroll.TimeSession{session("sess-x", "emp-unknown", "2025-07-04", "09:00", "17:00")})
	assert.Empty(t, rows)
}

// =============================================================================
// SPLIT SHIFTS
// =============================================================================

func TestReconcile_SplitShift_PairedChronologically(t *testing.T) {
	// GIVEN: Two shifts and two sessions on the same day (lunch + dinner)
	// WHEN: The month is reconciled
	// THEN: First shift pairs with first session, second with second

	employees := []payroll.Employee{hourly("emp-1", "Ana", 10)}
	shifts := []payroll.ShiftPlan{
		shift("shift-dinner", "emp-1", "2025-07-04", "18:00", "23:00"),
		shift("shift-lunch", "emp-1", "2025-07-04", "11:00", "15:00"),
	}
	sessions := []payroll.TimeSession{
		session("sess-lunch", "emp-1", "2025-07-04", "11:02", "15:01"),
		session("sess-dinner", "emp-1", "2025-07-04", "17:58", "23:05"),
	}

	rows := reconcile(t, employees, shifts, sessions)
	require.Len(t, rows, 2)

	assert.Equal(t, "shift-lunch", rows[0].ShiftID)
	assert.Equal(t, "sess-lunch", rows[0].SessionID)
	assert.Equal(t, "shift-dinner", rows[1].ShiftID)
	assert.Equal(t, "sess-dinner", rows[1].SessionID)
}

func TestReconcile_MoreSessionsThanShifts_ExtraUnscheduled(t *testing.T) {
	// GIVEN: One shift but two sessions on the day
	// WHEN: The month is reconciled
	// THEN: The second session gets its own unscheduled row

	employees := []payroll.Employee{hourly("emp-1", "Ana", 10)}
	shifts := []payroll.ShiftPlan{shift("shift-1", "emp-1", "2025-07-04", "11:00", "15:00")}
	sessions := []payroll.TimeSession{
		session("sess-1", "emp-1", "2025-07-04", "11:00", "15:00"),
		session("sess-2", "emp-1", "2025-07-04", "18:00", "22:00"),
	}

	rows := reconcile(t, employees, shifts, sessions)
	require.Len(t, rows, 2)
	assert.False(t, rows[0].Flags.Has(payroll.FlagUnscheduled))
	assert.True(t, rows[1].Flags.Has(payroll.FlagUnscheduled))
	assert.Empty(t, rows[1].ShiftID)
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestSummarize_TotalsAcrossEmployees(t *testing.T) {
	// GIVEN: Two employees with one worked day each
	// WHEN: Rows are summarized
	// THEN: Per-employee lines and grand totals both add up

	employees := []payroll.Employee{hourly("emp-1", "Ana", 10), hourly("emp-2", "Ben", 20)}
	shifts := []payroll.ShiftPlan{
		shift("shift-1", "emp-1", "2025-07-04", "09:00", "17:00"),
		shift("shift-2", "emp-2", "2025-07-05", "09:00", "13:00"),
	}
	sessions := []payroll.TimeSession{
		session("sess-1", "emp-1", "2025-07-04", "09:00", "17:00"),
		session("sess-2", "emp-2", "2025-07-05", "09:00", "13:00"),
	}

	rows := reconcile(t, employees, shifts, sessions)
	summaries, totals := payroll.Summarize(employees, rows)

	require.Len(t, summaries, 2)
	assert.Equal(t, "Ana", summaries[0].Name)
	assert.True(t, summaries[0].Pay.Equal(decimal.NewFromFloat(80.00)))
	assert.Equal(t, "Ben", summaries[1].Name)
	assert.True(t, summaries[1].Pay.Equal(decimal.NewFromFloat(80.00)))

	assert.True(t, totals.PlannedHours.Equal(decimal.NewFromFloat(12.0)))
	assert.True(t, totals.ActualHours.Equal(decimal.NewFromFloat(12.0)))
	assert.True(t, totals.Pay.Equal(decimal.NewFromFloat(160.00)))
}

func TestReconcile_RowsSortedByDateThenName(t *testing.T) {
	// GIVEN: Rows across two dates and two employees
	// WHEN: The month is reconciled
	// THEN: Output is ordered date first, then employee name

	employees := []payroll.Employee{hourly("emp-b", "Ben", 10), hourly("emp-a", "Ana", 10)}
	shifts := []payroll.ShiftPlan{
		shift("s1", "emp-b", "2025-07-05", "09:00", "17:00"),
		shift("s2", "emp-a", "2025-07-05", "09:00", "17:00"),
		shift("s3", "emp-b", "2025-07-04", "09:00", "17:00"),
	}

	rows := reconcile(t, employees, shifts, nil)
	require.Len(t, rows, 3)
	assert.Equal(t, "s3", rows[0].ShiftID)
	assert.Equal(t, "Ana", rows[1].EmployeeName)
	assert.Equal(t, "Ben", rows[2].EmployeeName)
}

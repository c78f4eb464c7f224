/*
reconciler.go - Planned-vs-actual pairing and flag derivation

PURPOSE:
  The heart of the payroll month view. Takes the month's shift plans and
  time sessions (already scoped to hourly employees) and produces one Row
  per (employee, date) pairing.

PAIRING RULE:
  Plans and sessions for the same (employee, date) are paired POSITIONALLY
  in chronological start-time order. This supports split shifts: the first
  plan of the day matches the first session, the second the second, and so
  on. Unmatched plans produce rows with no actual side; unmatched sessions
  produce rows with no planned side plus the unscheduled flag. Closest-
  start matching was considered and rejected: it can reorder pairs for
  split-shift days and makes flag outcomes order-dependent.

FLAG DERIVATION:
  sick        shift or session carries a sick marker
  variance    both sides present and |actual - planned| >= 0.05h
  auto_close  session was ended by the background auto-closer
  unscheduled session with no planned shift
  open        session has no end yet; actual hours use "now" provisionally

SEE ALSO:
  - types.go: Row and FlagSet definitions
  - service.go: Wraps the reconciler with store access
*/
package payroll

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tably/boh-engine/clock"
)

// Reconciler pairs shift plans with time sessions. Now is injectable so
// open-session hours are deterministic in tests.
type Reconciler struct {
	Now func() time.Time
}

func NewReconciler() *Reconciler {
	return &Reconciler{Now: time.Now}
}

// Reconcile produces the full row set for one month. The employee list
// defines the hourly roster: plans and sessions for anyone else (including
// salaried staff) are dropped entirely.
func (r *Reconciler) Reconcile(employees []Employee, shifts []ShiftPlan, sessions []TimeSession) []Row {
	roster := make(map[string]Employee, len(employees))
	for _, e := range employees {
		if e.Salaried {
			continue
		}
		roster[e.ID] = e
	}

	type dayKey struct {
		EmployeeID string
		Date       clock.CivilDate
	}

	plansByDay := make(map[dayKey][]ShiftPlan)
	for _, s := range shifts {
		if _, ok := roster[s.EmployeeID]; !ok {
			continue
		}
		k := dayKey{EmployeeID: s.EmployeeID, Date: s.Date}
		plansByDay[k] = append(plansByDay[k], s)
	}

	sessionsByDay := make(map[dayKey][]TimeSession)
	for _, s := range sessions {
		if _, ok := roster[s.EmployeeID]; !ok {
			continue
		}
		k := dayKey{EmployeeID: s.EmployeeID, Date: s.Date}
		sessionsByDay[k] = append(sessionsByDay[k], s)
	}

	keys := make(map[dayKey]struct{}, len(plansByDay)+len(sessionsByDay))
	for k := range plansByDay {
		keys[k] = struct{}{}
	}
	for k := range sessionsByDay {
		keys[k] = struct{}{}
	}

	var rows []Row
	for k := range keys {
		plans := plansByDay[k]
		sess := sessionsByDay[k]

		sort.Slice(plans, func(i, j int) bool { return plans[i].Start.Before(plans[j].Start) })
		sort.Slice(sess, func(i, j int) bool { return sess[i].Start.Before(sess[j].Start) })

		n := len(plans)
		if len(sess) > n {
			n = len(sess)
		}

		for i := 0; i < n; i++ {
			var plan *ShiftPlan
			var session *TimeSession
			if i < len(plans) {
				plan = &plans[i]
			}
			if i < len(sess) {
				session = &sess[i]
			}
			rows = append(rows, r.buildRow(roster[k.EmployeeID], k.Date, plan, session))
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Date != b.Date {
			return lessDate(a.Date, b.Date)
		}
		if a.EmployeeName != b.EmployeeName {
			return a.EmployeeName < b.EmployeeName
		}
		return lessStart(a, b)
	})
	return rows
}

func (r *Reconciler) buildRow(emp Employee, date clock.CivilDate, plan *ShiftPlan, session *TimeSession) Row {
	row := Row{
		EmployeeID:   emp.ID,
		EmployeeName: emp.Name,
		Date:         date,
		Flags:        NewFlagSet(),
	}

	if plan != nil {
		start, end := plan.Start, plan.End
		row.PlannedStart = &start
		row.PlannedEnd = &end
		row.PlannedHours = hoursBetween(start, end)
		row.ShiftID = plan.ID
		row.ShiftNote = plan.Note
		if plan.Sick {
			row.Flags.Add(FlagSick)
		}
	}

	if session != nil {
		start := session.Start
		row.ActualStart = &start
		row.SessionID = session.ID
		row.SessionNote = session.Note

		end := session.End
		if end == nil {
			// Provisional end for an open session; flagged so callers can
			// tell these hours are not final.
			now := r.now()
			end = &now
			row.Flags.Add(FlagOpen)
		} else {
			e := *end
			row.ActualEnd = &e
		}
		row.ActualHours = hoursBetween(start, *end)
		row.Pay = row.ActualHours.Mul(emp.HourlyRate).Round(2)

		if session.Sick {
			row.Flags.Add(FlagSick)
		}
		if session.AutoClosed {
			row.Flags.Add(FlagAutoClose)
		}
		if plan == nil {
			row.Flags.Add(FlagUnscheduled)
		}
	}

	if plan != nil && session != nil {
		row.Variance = row.ActualHours.Sub(row.PlannedHours).Round(2)
		if row.Variance.Abs().GreaterThanOrEqual(VarianceThreshold) {
			row.Flags.Add(FlagVariance)
		}
	}

	return row
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Summarize rolls rows up into per-employee summaries and grand totals.
func Summarize(employees []Employee, rows []Row) ([]EmployeeSummary, Totals) {
	byEmployee := make(map[string]*EmployeeSummary)
	for _, e := range employees {
		if e.Salaried {
			continue
		}
		byEmployee[e.ID] = &EmployeeSummary{
			EmployeeID: e.ID,
			Name:       e.Name,
			HourlyRate: e.HourlyRate,
		}
	}

	totals := Totals{}
	for _, row := range rows {
		s, ok := byEmployee[row.EmployeeID]
		if !ok {
			continue
		}
		s.PlannedHours = s.PlannedHours.Add(row.PlannedHours)
		s.ActualHours = s.ActualHours.Add(row.ActualHours)
		s.Pay = s.Pay.Add(row.Pay)
		s.RowCount++

		totals.PlannedHours = totals.PlannedHours.Add(row.PlannedHours)
		totals.ActualHours = totals.ActualHours.Add(row.ActualHours)
		totals.Pay = totals.Pay.Add(row.Pay)
	}

	summaries := make([]EmployeeSummary, 0, len(byEmployee))
	for _, s := range byEmployee {
		if s.RowCount == 0 {
			continue
		}
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, totals
}

// =============================================================================
// HELPERS
// =============================================================================

func hoursBetween(start, end time.Time) decimal.Decimal {
	if !end.After(start) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(end.Sub(start).Hours()).Round(2)
}

func lessDate(a, b clock.CivilDate) bool {
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	if a.Month != b.Month {
		return a.Month < b.Month
	}
	return a.Day < b.Day
}

func lessStart(a, b Row) bool {
	at, bt := rowStart(a), rowStart(b)
	return at.Before(bt)
}

func rowStart(r Row) time.Time {
	if r.PlannedStart != nil {
		return *r.PlannedStart
	}
	if r.ActualStart != nil {
		return *r.ActualStart
	}
	return time.Time{}
}

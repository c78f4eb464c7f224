package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tably/boh-engine/payroll"
)

// =============================================================================
// PAYROLL - Employees, shifts, sessions, approvals, periods
// =============================================================================

type Payroll struct {
	mu        sync.RWMutex
	employees []payroll.Employee
	shifts    map[string]payroll.ShiftPlan
	sessions  map[string]payroll.TimeSession
	approvals map[monthKey]payroll.MonthApproval
	periods   map[monthKey]payroll.Period
}

type monthKey struct {
	Year  int
	Month time.Month
}

func NewPayroll() *Payroll {
	return &Payroll{
		shifts:    make(map[string]payroll.ShiftPlan),
		sessions:  make(map[string]payroll.TimeSession),
		approvals: make(map[monthKey]payroll.MonthApproval),
		periods:   make(map[monthKey]payroll.Period),
	}
}

// --- Seeding ---------------------------------------------------------------

func (p *Payroll) PutEmployee(e payroll.Employee) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.employees = append(p.employees, e)
}

func (p *Payroll) PutShift(s payroll.ShiftPlan) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shifts[s.ID] = s
}

func (p *Payroll) PutSession(s payroll.TimeSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[s.ID] = s
}

// --- payroll.EmployeeStore -------------------------------------------------

func (p *Payroll) HourlyEmployees(_ context.Context) ([]payroll.Employee, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []payroll.Employee
	for _, e := range p.employees {
		if !e.Salaried {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- payroll.ShiftStore ----------------------------------------------------

func (p *Payroll) ShiftsForMonth(_ context.Context, year int, month time.Month) ([]payroll.ShiftPlan, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []payroll.ShiftPlan
	for _, s := range p.shifts {
		if s.Date.Year == year && s.Date.Month == month {
			out = append(out, s)
		}
	}
	return out, nil
}

func (p *Payroll) DeleteShift(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.shifts[id]; !ok {
		return payroll.ErrShiftNotFound
	}
	delete(p.shifts, id)
	return nil
}

// --- payroll.SessionStore --------------------------------------------------

func (p *Payroll) SessionsForMonth(_ context.Context, year int, month time.Month) ([]payroll.TimeSession, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []payroll.TimeSession
	for _, s := range p.sessions {
		if s.Date.Year == year && s.Date.Month == month {
			out = append(out, s)
		}
	}
	return out, nil
}

func (p *Payroll) UpdateSessionTimes(_ context.Context, id string, start time.Time, end *time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	if !ok {
		return payroll.ErrSessionNotFound
	}
	s.Start = start
	s.End = end
	p.sessions[id] = s
	return nil
}

func (p *Payroll) OpenSessionsBefore(_ context.Context, cutoff time.Time) ([]payroll.TimeSession, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []payroll.TimeSession
	for _, s := range p.sessions {
		if s.End == nil && s.Start.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (p *Payroll) CloseSessionAuto(_ context.Context, id string, end time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	if !ok || s.End != nil {
		return nil
	}
	s.End = &end
	s.AutoClosed = true
	p.sessions[id] = s
	return nil
}

func (p *Payroll) DeleteSession(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sessions[id]; !ok {
		return payroll.ErrSessionNotFound
	}
	delete(p.sessions, id)
	return nil
}

// --- payroll.ApprovalStore -------------------------------------------------

func (p *Payroll) Approval(_ context.Context, year int, month time.Month) (*payroll.MonthApproval, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.approvals[monthKey{year, month}]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// CreateApproval enforces the unique (year, month) constraint under the
// write lock, exactly as the SQLite unique index does.
func (p *Payroll) CreateApproval(_ context.Context, approval payroll.MonthApproval) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	k := monthKey{approval.Year, approval.Month}
	if existing, ok := p.approvals[k]; ok {
		return &payroll.AlreadyApprovedError{
			Year:       existing.Year,
			Month:      existing.Month,
			ApprovedAt: existing.ApprovedAt,
		}
	}
	p.approvals[k] = approval
	return nil
}

func (p *Payroll) MarkEmailSent(_ context.Context, year int, month time.Month, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	k := monthKey{year, month}
	a, ok := p.approvals[k]
	if !ok {
		return payroll.ErrNotApproved
	}
	a.EmailSentAt = &at
	p.approvals[k] = a
	return nil
}

func (p *Payroll) PeriodFor(_ context.Context, year int, month time.Month) (*payroll.Period, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	period, ok := p.periods[monthKey{year, month}]
	if !ok {
		return nil, nil
	}
	return &period, nil
}

func (p *Payroll) SavePeriod(_ context.Context, period payroll.Period) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.periods[monthKey{period.Year, period.Month}] = period
	return nil
}

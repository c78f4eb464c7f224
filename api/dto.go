/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the HTTP contract, decoupled from the domain types.
  Request types carry validator tags; validation runs in the handlers
  before any core logic.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/tably/boh-engine/payroll"
	"github.com/tably/boh-engine/tables"
)

// =============================================================================
// TABLE MOVE
// =============================================================================

// TableDTO is one candidate table in the availability response.
type TableDTO struct {
	ID          string `json:"id"`
	TableNumber string `json:"table_number"`
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	Area        string `json:"area,omitempty"`
}

// MoveTableOptionsDTO is the GET move-table response.
type MoveTableOptionsDTO struct {
	BookingID        string     `json:"booking_id"`
	StartDatetime    string     `json:"start_datetime"`
	EndDatetime      string     `json:"end_datetime"`
	AssignedTableIDs []string   `json:"assigned_table_ids"`
	Tables           []TableDTO `json:"tables"`
}

// MoveTableRequest is the POST move-table body.
type MoveTableRequest struct {
	TableID string `json:"table_id" validate:"required,uuid"`
}

// MoveTableResultDTO is the POST move-table response.
type MoveTableResultDTO struct {
	BookingID     string `json:"booking_id"`
	TableID       string `json:"table_id"`
	TableName     string `json:"table_name"`
	StartDatetime string `json:"start_datetime"`
	EndDatetime   string `json:"end_datetime"`
}

func availabilityDTO(a *tables.Availability) MoveTableOptionsDTO {
	dto := MoveTableOptionsDTO{
		BookingID:        a.BookingID.String(),
		AssignedTableIDs: []string{},
		Tables:           []TableDTO{},
	}
	if !a.Window.IsZero() {
		dto.StartDatetime = a.Window.Start.Format(time.RFC3339)
		dto.EndDatetime = a.Window.End.Format(time.RFC3339)
	}
	for _, id := range a.AssignedTableIDs() {
		dto.AssignedTableIDs = append(dto.AssignedTableIDs, id.String())
	}
	for _, opt := range a.Tables {
		dto.Tables = append(dto.Tables, TableDTO{
			ID:          opt.Table.ID.String(),
			TableNumber: opt.Table.Number,
			Name:        opt.Table.Name,
			Capacity:    opt.Table.Capacity,
			Area:        opt.AreaName,
		})
	}
	return dto
}

// =============================================================================
// PAYROLL
// =============================================================================

// PayrollRowDTO is one reconciled line of the month view.
type PayrollRowDTO struct {
	EmployeeID   string   `json:"employee_id"`
	EmployeeName string   `json:"employee_name"`
	Date         string   `json:"date"`
	PlannedStart *string  `json:"planned_start,omitempty"`
	PlannedEnd   *string  `json:"planned_end,omitempty"`
	PlannedHours float64  `json:"planned_hours"`
	ActualStart  *string  `json:"actual_start,omitempty"`
	ActualEnd    *string  `json:"actual_end,omitempty"`
	ActualHours  float64  `json:"actual_hours"`
	Variance     float64  `json:"variance"`
	Flags        string   `json:"flags"`
	Pay          float64  `json:"pay"`
	ShiftID      string   `json:"shift_id,omitempty"`
	ShiftNote    string   `json:"shift_note,omitempty"`
	SessionID    string   `json:"session_id,omitempty"`
	SessionNote  string   `json:"session_note,omitempty"`
}

// PayrollEmployeeDTO is one per-employee summary line.
type PayrollEmployeeDTO struct {
	EmployeeID   string  `json:"employee_id"`
	Name         string  `json:"name"`
	HourlyRate   float64 `json:"hourly_rate"`
	PlannedHours float64 `json:"planned_hours"`
	ActualHours  float64 `json:"actual_hours"`
	Pay          float64 `json:"pay"`
}

// PayrollMonthDTO is the GET payroll month response.
type PayrollMonthDTO struct {
	Year         int                  `json:"year"`
	Month        int                  `json:"month"`
	Rows         []PayrollRowDTO      `json:"rows"`
	Employees    []PayrollEmployeeDTO `json:"employees"`
	PlannedHours float64              `json:"total_planned_hours"`
	ActualHours  float64              `json:"total_actual_hours"`
	TotalPay     float64              `json:"total_pay"`
	PeriodStart  string               `json:"period_start"`
	PeriodEnd    string               `json:"period_end"`
	Approval     *ApprovalDTO         `json:"approval,omitempty"`
}

// ApprovalDTO is the month sign-off.
type ApprovalDTO struct {
	ID          string  `json:"id"`
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	ApprovedAt  string  `json:"approved_at"`
	EmailSentAt *string `json:"email_sent_at,omitempty"`
}

// UpdateRowTimesRequest corrects one session's clocked times.
type UpdateRowTimesRequest struct {
	SessionID  string  `json:"session_id" validate:"required"`
	EmployeeID string  `json:"employee_id" validate:"required"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime  string  `json:"start_time" validate:"required"`
	EndTime    *string `json:"end_time,omitempty"`
}

// DeleteRowRequest removes a row's session and/or shift.
type DeleteRowRequest struct {
	SessionID string `json:"session_id,omitempty"`
	ShiftID   string `json:"shift_id,omitempty"`
}

// UpdatePeriodRequest rewrites the accounting period.
type UpdatePeriodRequest struct {
	Start string `json:"period_start" validate:"required,datetime=2006-01-02"`
	End   string `json:"period_end" validate:"required,datetime=2006-01-02"`
}

// MutationResultDTO reports whether the month now needs re-approval.
type MutationResultDTO struct {
	RequiresReapproval bool `json:"requires_reapproval"`
}

func monthDTO(data *payroll.MonthData) PayrollMonthDTO {
	dto := PayrollMonthDTO{
		Year:         data.Year,
		Month:        int(data.Month),
		Rows:         []PayrollRowDTO{},
		Employees:    []PayrollEmployeeDTO{},
		PlannedHours: data.Totals.PlannedHours.InexactFloat64(),
		ActualHours:  data.Totals.ActualHours.InexactFloat64(),
		TotalPay:     data.Totals.Pay.InexactFloat64(),
		PeriodStart:  data.Period.Start.String(),
		PeriodEnd:    data.Period.End.String(),
	}
	for _, row := range data.Rows {
		dto.Rows = append(dto.Rows, rowDTO(row))
	}
	for _, e := range data.Employees {
		dto.Employees = append(dto.Employees, PayrollEmployeeDTO{
			EmployeeID:   e.EmployeeID,
			Name:         e.Name,
			HourlyRate:   e.HourlyRate.InexactFloat64(),
			PlannedHours: e.PlannedHours.InexactFloat64(),
			ActualHours:  e.ActualHours.InexactFloat64(),
			Pay:          e.Pay.InexactFloat64(),
		})
	}
	if data.Approval != nil {
		dto.Approval = approvalDTO(data.Approval)
	}
	return dto
}

func rowDTO(row payroll.Row) PayrollRowDTO {
	return PayrollRowDTO{
		EmployeeID:   row.EmployeeID,
		EmployeeName: row.EmployeeName,
		Date:         row.Date.String(),
		PlannedStart: timePtr(row.PlannedStart),
		PlannedEnd:   timePtr(row.PlannedEnd),
		PlannedHours: row.PlannedHours.InexactFloat64(),
		ActualStart:  timePtr(row.ActualStart),
		ActualEnd:    timePtr(row.ActualEnd),
		ActualHours:  row.ActualHours.InexactFloat64(),
		Variance:     row.Variance.InexactFloat64(),
		Flags:        row.Flags.String(),
		Pay:          row.Pay.InexactFloat64(),
		ShiftID:      row.ShiftID,
		ShiftNote:    row.ShiftNote,
		SessionID:    row.SessionID,
		SessionNote:  row.SessionNote,
	}
}

func approvalDTO(a *payroll.MonthApproval) *ApprovalDTO {
	dto := &ApprovalDTO{
		ID:         a.ID,
		Year:       a.Year,
		Month:      int(a.Month),
		ApprovedAt: a.ApprovedAt.Format(time.RFC3339),
	}
	if a.EmailSentAt != nil {
		s := a.EmailSentAt.Format(time.RFC3339)
		dto.EmailSentAt = &s
	}
	return dto
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

/*
handlers.go - HTTP handlers for the back-office core

PURPOSE:
  Exposes the payroll reconciler and table resolver over REST. Handles
  HTTP request/response, JSON serialization, payload validation, and
  permission gating, then delegates to the domain services.

ENDPOINTS:
  Table bookings:
    GET    /boh/table-bookings/{id}/move-table   Availability for a move
    POST   /boh/table-bookings/{id}/move-table   Perform the move

  Payroll:
    GET    /boh/payroll/{year}/{month}           Month data
    POST   /boh/payroll/{year}/{month}/approve   Approve the month
    PUT    /boh/payroll/{year}/{month}/rows      Correct a row's times
    DELETE /boh/payroll/{year}/{month}/rows      Delete a row
    PUT    /boh/payroll/{year}/{month}/period    Update accounting period
    POST   /boh/payroll/{year}/{month}/email     Send summary email

ERROR HANDLING:
  Errors are returned as {"error": "..."} with the appropriate status:
  - 400: Validation errors, invalid input
  - 403: Permission denied (checked before any core logic runs)
  - 404: Booking/table/month not found
  - 409: Conflict (table taken, stale state, double approval)
  - 500: Store failures (logged, never swallowed)
  Conflicts are worded for the UI's "refresh and retry" path, not as raw
  store errors.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tably/boh-engine/clock"
	"github.com/tably/boh-engine/payroll"
	"github.com/tably/boh-engine/tables"
)

// =============================================================================
// PERMISSIONS - Boundary concern; no core logic runs when denied
// =============================================================================

// Capabilities checked by the handlers.
const (
	CapPayrollView    = "payroll.view"
	CapPayrollApprove = "payroll.approve"
	CapPayrollEdit    = "payroll.edit"
	CapBookingsMove   = "bookings.move"
)

// Authorizer decides whether the request's caller holds a capability.
// Authentication itself is out of scope; deployments plug in their own.
type Authorizer interface {
	Allow(r *http.Request, capability string) bool
}

// AllowAll grants everything (dev/test).
type AllowAll struct{}

func (AllowAll) Allow(*http.Request, string) bool { return true }

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds all dependencies for the HTTP handlers.
type Handler struct {
	Payroll  *payroll.Service
	Resolver *tables.Resolver
	Mover    *tables.Mover
	Auth     Authorizer
	Log      *logrus.Logger

	validate *validator.Validate
}

func NewHandler(payrollSvc *payroll.Service, resolver *tables.Resolver, mover *tables.Mover, auth Authorizer, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		Payroll:  payrollSvc,
		Resolver: resolver,
		Mover:    mover,
		Auth:     auth,
		Log:      log,
		validate: validator.New(),
	}
}

// =============================================================================
// TABLE BOOKING HANDLERS
// =============================================================================

// GetMoveTableOptions returns the tables a booking can move to.
func (h *Handler) GetMoveTableOptions(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, CapBookingsMove) {
		return
	}
	bookingID, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	avail, err := h.Resolver.AvailableTables(r.Context(), bookingID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityDTO(avail))
}

// PostMoveTable moves the booking to the requested table.
func (h *Handler) PostMoveTable(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, CapBookingsMove) {
		return
	}
	bookingID, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	var req MoveTableRequest
	if !h.decode(w, r, &req) {
		return
	}
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table_id")
		return
	}

	result, err := h.Mover.MoveTable(r.Context(), bookingID, tableID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MoveTableResultDTO{
		BookingID:     result.BookingID.String(),
		TableID:       result.TableID.String(),
		TableName:     result.TableName,
		StartDatetime: result.Window.Start.Format(time.RFC3339),
		EndDatetime:   result.Window.End.Format(time.RFC3339),
	})
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// GetPayrollMonth returns the reconciled month view. A month with no data
// renders as an empty state, not an error.
func (h *Handler) GetPayrollMonth(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, CapPayrollView) {
		return
	}
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}

	data, err := h.Payroll.MonthData(r.Context(), year, month)
	if errors.Is(err, payroll.ErrNoDataForPeriod) {
		empty := &payroll.MonthData{Year: year, Month: month, Period: payroll.DefaultPeriod(year, month)}
		writeJSON(w, http.StatusOK, monthDTO(empty))
		return
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, monthDTO(data))
}

// PostApproveMonth signs the month off.
func (h *Handler) PostApproveMonth(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, CapPayrollApprove) {
		return
	}
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}

	approval, err := h.Payroll.ApproveMonth(r.Context(), year, month)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, approvalDTO(approval))
}

// PutPayrollRow corrects one session's clocked times.
func (h *Handler) PutPayrollRow(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, CapPayrollEdit) {
		return
	}
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}

	var req UpdateRowTimesRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.Payroll.UpdateRowTimes(r.Context(), payroll.UpdateRowTimesRequest{
		SessionID:  req.SessionID,
		EmployeeID: req.EmployeeID,
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Year:       year,
		Month:      month,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResultDTO{RequiresReapproval: result.RequiresReapproval})
}

// DeletePayrollRow removes a row's session and/or shift.
func (h *Handler) DeletePayrollRow(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, CapPayrollEdit) {
		return
	}
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}

	var req DeleteRowRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.SessionID == "" && req.ShiftID == "" {
		writeError(w, http.StatusBadRequest, "session_id or shift_id required")
		return
	}

	result, err := h.Payroll.DeleteRow(r.Context(), req.SessionID, req.ShiftID, year, month)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResultDTO{RequiresReapproval: result.RequiresReapproval})
}

// PutPayrollPeriod updates the accounting date range.
func (h *Handler) PutPayrollPeriod(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, CapPayrollEdit) {
		return
	}
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}

	var req UpdatePeriodRequest
	if !h.decode(w, r, &req) {
		return
	}

	period, err := h.Payroll.UpdatePeriod(r.Context(), year, month, req.Start, req.End)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"period_start": period.Start.String(),
		"period_end":   period.End.String(),
	})
}

// PostPayrollEmail sends the approved month summary.
func (h *Handler) PostPayrollEmail(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, CapPayrollApprove) {
		return
	}
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}

	if err := h.Payroll.SendMonthEmail(r.Context(), year, month); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// =============================================================================
// SHARED PLUMBING
// =============================================================================

func (h *Handler) allowed(w http.ResponseWriter, r *http.Request, capability string) bool {
	if h.Auth != nil && !h.Auth.Allow(r, capability) {
		writeError(w, http.StatusForbidden, "permission denied")
		return false
	}
	return true
}

func (h *Handler) bookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) yearMonth(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 2000 || year > 2100 {
		writeError(w, http.StatusBadRequest, "invalid year")
		return 0, 0, false
	}
	monthInt, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || monthInt < 1 || monthInt > 12 {
		writeError(w, http.StatusBadRequest, "invalid month")
		return 0, 0, false
	}
	return year, time.Month(monthInt), true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

// writeDomainError maps domain errors to HTTP statuses. Write failures are
// logged here; they are never swallowed silently.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clock.ErrInvalidTimeFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case tables.IsNotFound(err), payroll.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tables.ErrBookingNotMovable):
		writeError(w, http.StatusConflict, "booking cannot be moved in its current status")
	case tables.IsConflict(err):
		writeError(w, http.StatusConflict, "this table is no longer available, please pick another")
	case payroll.IsConflict(err):
		writeError(w, http.StatusConflict, "payroll month is already approved")
	case errors.Is(err, payroll.ErrMonthApproved):
		writeError(w, http.StatusConflict, "payroll month is approved; re-approval required first")
	case errors.Is(err, payroll.ErrNotApproved):
		writeError(w, http.StatusConflict, "payroll month must be approved first")
	default:
		h.Log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

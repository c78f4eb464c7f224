package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tably/boh-engine/api"
	"github.com/tably/boh-engine/clock"
	"github.com/tably/boh-engine/payroll"
	"github.com/tably/boh-engine/store/memory"
	"github.com/tably/boh-engine/tables"
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

type fixture struct {
	router  http.Handler
	venue   *memory.Venue
	payroll *memory.Payroll
}

type noopMailer struct{}

func (noopMailer) SendPayrollSummary(context.Context, *payroll.MonthData) error { return nil }

func newFixture(t *testing.T, auth api.Authorizer) *fixture {
	t.Helper()

	venue := memory.NewVenue()
	payrollStore := memory.NewPayroll()

	svc := payroll.NewService(payrollStore, payrollStore, payrollStore, payrollStore, noopMailer{}, london)
	resolver := &tables.Resolver{
		Tables:      venue,
		Bookings:    venue,
		Assignments: venue,
		Blocks:      venue,
		Zone:        london,
		Duration:    tables.DurationPolicy{DefaultMinutes: 90, MinimumMinutes: 30},
	}
	mover := &tables.Mover{Resolver: resolver, Bookings: venue, Tables: venue, Assignments: venue}

	log := logrus.New()
	log.SetOutput(bytes.NewBuffer(nil))

	handler := api.NewHandler(svc, resolver, mover, auth, log)
	return &fixture{
		router:  api.NewRouter(handler),
		venue:   venue,
		payroll: payrollStore,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func seedMoveFixture(t *testing.T, f *fixture) (b tables.Booking, from, to tables.Table) {
	t.Helper()
	area := tables.Area{ID: uuid.New(), Name: "Main Floor"}
	f.venue.PutArea(area)

	from = tables.Table{ID: uuid.New(), Number: "2", Name: "Window", Capacity: 4, AreaID: area.ID, Bookable: true}
	to = tables.Table{ID: uuid.New(), Number: "3", Name: "Booth", Capacity: 4, AreaID: area.ID, Bookable: true}
	f.venue.PutTable(from)
	f.venue.PutTable(to)

	b = tables.Booking{
		ID:        uuid.New(),
		Date:      clock.MustDate("2025-07-04"),
		Time:      clock.MustClock("19:00"),
		PartySize: 4,
		Status:    tables.StatusConfirmed,
		Category:  tables.CategoryRegular,
	}
	f.venue.PutBooking(b)

	start := clock.Instant(b.Date, b.Time, london)
	f.venue.PutAssignment(tables.Assignment{
		ID:        uuid.New(),
		BookingID: b.ID,
		TableID:   from.ID,
		Window:    clock.Window{Start: start, End: start.Add(90 * time.Minute)},
	})
	return b, from, to
}

func seedPayrollFixture(f *fixture) {
	f.payroll.PutEmployee(payroll.Employee{ID: "emp-1", Name: "Ana", HourlyRate: decimal.NewFromFloat(10)})

	date := clock.MustDate("2025-07-04")
	f.payroll.PutShift(payroll.ShiftPlan{
		ID: "shift-1", EmployeeID: "emp-1", Date: date,
		Start: clock.Instant(date, clock.MustClock("09:00"), london),
		End:   clock.Instant(date, clock.MustClock("17:00"), london),
	})
	end := clock.Instant(date, clock.MustClock("17:10"), london)
	f.payroll.PutSession(payroll.TimeSession{
		ID: "sess-1", EmployeeID: "emp-1", Date: date,
		Start: clock.Instant(date, clock.MustClock("09:05"), london),
		End:   &end,
	})
}

// =============================================================================
// PERMISSIONS
// =============================================================================

type denyAll struct{}

func (denyAll) Allow(*http.Request, string) bool { return false }

func TestHandlers_PermissionDenied_NoCoreLogicRuns(t *testing.T) {
	// GIVEN: An authorizer that denies everything
	// WHEN: Any endpoint is hit, even with ids that would otherwise 404
	// THEN: 403 on all of them

	f := newFixture(t, denyAll{})
	bookingID := uuid.NewString()

	paths := []struct{ method, path string }{
		{http.MethodGet, "/boh/table-bookings/" + bookingID + "/move-table"},
		{http.MethodPost, "/boh/table-bookings/" + bookingID + "/move-table"},
		{http.MethodGet, "/boh/payroll/2025/7/"},
		{http.MethodPost, "/boh/payroll/2025/7/approve"},
		{http.MethodPut, "/boh/payroll/2025/7/rows"},
		{http.MethodDelete, "/boh/payroll/2025/7/rows"},
		{http.MethodPut, "/boh/payroll/2025/7/period"},
		{http.MethodPost, "/boh/payroll/2025/7/email"},
	}
	for _, p := range paths {
		rec := f.do(t, p.method, p.path, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", p.method, p.path)
	}
}

// =============================================================================
// MOVE TABLE
// =============================================================================

func TestGetMoveTableOptions_ReturnsAvailability(t *testing.T) {
	// GIVEN: A booking on table 2 with table 3 free
	// WHEN: The options endpoint is hit
	// THEN: Table 3 is offered, table 2 reported as currently assigned

	f := newFixture(t, api.AllowAll{})
	b, from, to := seedMoveFixture(t, f)

	rec := f.do(t, http.MethodGet, "/boh/table-bookings/"+b.ID.String()+"/move-table", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decodeBody[api.MoveTableOptionsDTO](t, rec)
	assert.Equal(t, b.ID.String(), dto.BookingID)
	assert.Equal(t, []string{from.ID.String()}, dto.AssignedTableIDs)
	require.Len(t, dto.Tables, 1)
	assert.Equal(t, to.ID.String(), dto.Tables[0].ID)
	assert.Equal(t, "Main Floor", dto.Tables[0].Area)
	assert.NotEmpty(t, dto.StartDatetime)
}

func TestPostMoveTable_EndToEnd(t *testing.T) {
	// GIVEN: A booking on table 2
	// WHEN: Moved to table 3 over HTTP
	// THEN: 200 with the new assignment; the store reflects it

	f := newFixture(t, api.AllowAll{})
	b, _, to := seedMoveFixture(t, f)

	rec := f.do(t, http.MethodPost, "/boh/table-bookings/"+b.ID.String()+"/move-table",
		api.MoveTableRequest{TableID: to.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	dto := decodeBody[api.MoveTableResultDTO](t, rec)
	assert.Equal(t, to.ID.String(), dto.TableID)
	assert.Equal(t, "Booth", dto.TableName)

	after, err := f.venue.ForBooking(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, to.ID, after[0].TableID)
}

func TestPostMoveTable_TargetTaken_409WithFriendlyMessage(t *testing.T) {
	// GIVEN: Table 3 is held by another active booking
	// WHEN: The move is attempted
	// THEN: 409 with the pick-another message, not a raw store error

	f := newFixture(t, api.AllowAll{})
	b, _, to := seedMoveFixture(t, f)

	other := tables.Booking{
		ID: uuid.New(), Date: b.Date, Time: b.Time,
		PartySize: 2, Status: tables.StatusSeated, Category: tables.CategoryRegular,
	}
	f.venue.PutBooking(other)
	start := clock.Instant(other.Date, other.Time, london)
	f.venue.PutAssignment(tables.Assignment{
		ID: uuid.New(), BookingID: other.ID, TableID: to.ID,
		Window: clock.Window{Start: start, End: start.Add(90 * time.Minute)},
	})

	rec := f.do(t, http.MethodPost, "/boh/table-bookings/"+b.ID.String()+"/move-table",
		api.MoveTableRequest{TableID: to.ID.String()})
	require.Equal(t, http.StatusConflict, rec.Code)

	body := decodeBody[map[string]string](t, rec)
	assert.Contains(t, body["error"], "no longer available")
}

func TestPostMoveTable_UnknownBooking_404(t *testing.T) {
	f := newFixture(t, api.AllowAll{})
	_, _, to := seedMoveFixture(t, f)

	rec := f.do(t, http.MethodPost, "/boh/table-bookings/"+uuid.NewString()+"/move-table",
		api.MoveTableRequest{TableID: to.ID.String()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostMoveTable_CancelledBooking_409(t *testing.T) {
	f := newFixture(t, api.AllowAll{})
	b, _, to := seedMoveFixture(t, f)

	b.Status = tables.StatusCancelled
	f.venue.PutBooking(b)

	rec := f.do(t, http.MethodPost, "/boh/table-bookings/"+b.ID.String()+"/move-table",
		api.MoveTableRequest{TableID: to.ID.String()})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPostMoveTable_BadPayload_400(t *testing.T) {
	f := newFixture(t, api.AllowAll{})
	b, _, _ := seedMoveFixture(t, f)

	rec := f.do(t, http.MethodPost, "/boh/table-bookings/"+b.ID.String()+"/move-table",
		map[string]string{"table_id": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/boh/table-bookings/"+b.ID.String()+"/move-table",
		map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PAYROLL
// =============================================================================

func TestGetPayrollMonth_EmptyMonth_RendersEmptyState(t *testing.T) {
	// GIVEN: No data at all for the month
	// WHEN: The month is fetched
	// THEN: 200 with zero rows and the default calendar period, not an error

	f := newFixture(t, api.AllowAll{})

	rec := f.do(t, http.MethodGet, "/boh/payroll/2025/7/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decodeBody[api.PayrollMonthDTO](t, rec)
	assert.Empty(t, dto.Rows)
	assert.Equal(t, "2025-07-01", dto.PeriodStart)
	assert.Equal(t, "2025-07-31", dto.PeriodEnd)
	assert.Nil(t, dto.Approval)
}

func TestGetPayrollMonth_FullView(t *testing.T) {
	// GIVEN: One reconcilable day
	// WHEN: The month is fetched
	// THEN: The row carries the variance flag and computed pay

	f := newFixture(t, api.AllowAll{})
	seedPayrollFixture(f)

	rec := f.do(t, http.MethodGet, "/boh/payroll/2025/7/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decodeBody[api.PayrollMonthDTO](t, rec)
	require.Len(t, dto.Rows, 1)
	assert.Equal(t, "variance", dto.Rows[0].Flags)
	assert.InDelta(t, 0.08, dto.Rows[0].Variance, 0.001)
	assert.InDelta(t, 80.80, dto.TotalPay, 0.001)
	require.Len(t, dto.Employees, 1)
	assert.Equal(t, "Ana", dto.Employees[0].Name)
}

func TestPostApproveMonth_ThenConflict(t *testing.T) {
	// GIVEN: An unapproved month with data
	// WHEN: Approved twice
	// THEN: 201 then 409

	f := newFixture(t, api.AllowAll{})
	seedPayrollFixture(f)

	rec := f.do(t, http.MethodPost, "/boh/payroll/2025/7/approve", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	dto := decodeBody[api.ApprovalDTO](t, rec)
	assert.Equal(t, 7, dto.Month)
	assert.NotEmpty(t, dto.ApprovedAt)

	rec = f.do(t, http.MethodPost, "/boh/payroll/2025/7/approve", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPutPayrollRow_CorrectsTimes(t *testing.T) {
	// GIVEN: The variance row from the fixture
	// WHEN: The session is corrected to the planned times
	// THEN: 200, and the refetched month has no variance flag

	f := newFixture(t, api.AllowAll{})
	seedPayrollFixture(f)

	end := "17:00"
	rec := f.do(t, http.MethodPut, "/boh/payroll/2025/7/rows", api.UpdateRowTimesRequest{
		SessionID:  "sess-1",
		EmployeeID: "emp-1",
		Date:       "2025-07-04",
		StartTime:  "09:00",
		EndTime:    &end,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decodeBody[api.MutationResultDTO](t, rec).RequiresReapproval)

	month := decodeBody[api.PayrollMonthDTO](t, f.do(t, http.MethodGet, "/boh/payroll/2025/7/", nil))
	require.Len(t, month.Rows, 1)
	assert.Empty(t, month.Rows[0].Flags)
}

func TestPutPayrollRow_InvalidDate_400(t *testing.T) {
	f := newFixture(t, api.AllowAll{})
	seedPayrollFixture(f)

	rec := f.do(t, http.MethodPut, "/boh/payroll/2025/7/rows", api.UpdateRowTimesRequest{
		SessionID:  "sess-1",
		EmployeeID: "emp-1",
		Date:       "04/07/2025",
		StartTime:  "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeletePayrollRow_AfterApproval_FlagsReapproval(t *testing.T) {
	// GIVEN: An approved month
	// WHEN: A row is deleted
	// THEN: 200 with requires_reapproval true

	f := newFixture(t, api.AllowAll{})
	seedPayrollFixture(f)

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/boh/payroll/2025/7/approve", nil).Code)

	rec := f.do(t, http.MethodDelete, "/boh/payroll/2025/7/rows", api.DeleteRowRequest{
		SessionID: "sess-1", ShiftID: "shift-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[api.MutationResultDTO](t, rec).RequiresReapproval)
}

func TestDeletePayrollRow_NoIDs_400(t *testing.T) {
	f := newFixture(t, api.AllowAll{})

	rec := f.do(t, http.MethodDelete, "/boh/payroll/2025/7/rows", api.DeleteRowRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutPayrollPeriod_ApprovedMonth_409(t *testing.T) {
	f := newFixture(t, api.AllowAll{})
	seedPayrollFixture(f)

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/boh/payroll/2025/7/approve", nil).Code)

	rec := f.do(t, http.MethodPut, "/boh/payroll/2025/7/period", api.UpdatePeriodRequest{
		Start: "2025-06-29", End: "2025-07-26",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPutPayrollPeriod_Updates(t *testing.T) {
	f := newFixture(t, api.AllowAll{})
	seedPayrollFixture(f)

	rec := f.do(t, http.MethodPut, "/boh/payroll/2025/7/period", api.UpdatePeriodRequest{
		Start: "2025-06-29", End: "2025-07-26",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	month := decodeBody[api.PayrollMonthDTO](t, f.do(t, http.MethodGet, "/boh/payroll/2025/7/", nil))
	assert.Equal(t, "2025-06-29", month.PeriodStart)
}

func TestPostPayrollEmail_Unapproved_409(t *testing.T) {
	f := newFixture(t, api.AllowAll{})
	seedPayrollFixture(f)

	rec := f.do(t, http.MethodPost, "/boh/payroll/2025/7/email", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPostPayrollEmail_Approved_SendsAndRecords(t *testing.T) {
	f := newFixture(t, api.AllowAll{})
	seedPayrollFixture(f)

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/boh/payroll/2025/7/approve", nil).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/boh/payroll/2025/7/email", nil).Code)

	month := decodeBody[api.PayrollMonthDTO](t, f.do(t, http.MethodGet, "/boh/payroll/2025/7/", nil))
	require.NotNil(t, month.Approval)
	assert.NotNil(t, month.Approval.EmailSentAt)
}

func TestYearMonthValidation(t *testing.T) {
	f := newFixture(t, api.AllowAll{})

	for _, path := range []string{
		"/boh/payroll/notayear/7/",
		"/boh/payroll/2025/13/",
		"/boh/payroll/2025/0/",
	} {
		rec := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

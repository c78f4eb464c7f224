package payroll

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoDataForPeriod is returned when a month has no hourly shifts or
	// sessions at all. Non-fatal; callers render an empty state.
	ErrNoDataForPeriod = errors.New("no payroll data for period")

	// ErrAlreadyApproved is returned when approving a month that already has
	// an approval row. The store's unique (year, month) constraint is the
	// authoritative source of this conflict.
	ErrAlreadyApproved = errors.New("payroll month already approved")

	// ErrMonthApproved is returned when mutating something frozen by an
	// approval (currently: the accounting period).
	ErrMonthApproved = errors.New("payroll month is approved")

	// ErrNotApproved is returned when an operation requires an approval that
	// doesn't exist (e.g., sending the summary email).
	ErrNotApproved = errors.New("payroll month is not approved")

	// ErrSessionNotFound is returned by stores when a referenced time
	// session does not exist.
	ErrSessionNotFound = errors.New("time session not found")

	// ErrShiftNotFound is returned by stores when a referenced shift plan
	// does not exist.
	ErrShiftNotFound = errors.New("shift plan not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// AlreadyApprovedError carries the existing approval for display.
type AlreadyApprovedError struct {
	Year       int
	Month      time.Month
	ApprovedAt time.Time
}

func (e *AlreadyApprovedError) Error() string {
	return fmt.Sprintf("payroll %d-%02d already approved at %s",
		e.Year, int(e.Month), e.ApprovedAt.Format(time.RFC3339))
}

func (e *AlreadyApprovedError) Unwrap() error { return ErrAlreadyApproved }

// IsConflict reports whether err is an approval conflict.
func IsConflict(err error) bool { return errors.Is(err, ErrAlreadyApproved) }

// IsNotFound reports whether err indicates a missing shift or session.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrShiftNotFound)
}

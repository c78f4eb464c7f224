package tables

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBookingNotFound is returned when the referenced booking is absent.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrTableNotFound is returned when the referenced table is absent.
	ErrTableNotFound = errors.New("table not found")

	// ErrBookingNotMovable is returned when the booking's status rules out
	// table assignment (cancelled, no-show).
	ErrBookingNotMovable = errors.New("booking not movable")

	// ErrTableConflict is returned when the target table is (or became) no
	// longer available - either it failed the fresh availability check or
	// the store reported an overlap violation at commit time. The prior
	// assignments remain intact; callers may refresh and pick another table.
	ErrTableConflict = errors.New("table no longer available")

	// ErrStaleAssignment is returned when the booking's assignment set
	// changed between the availability read and the write. Callers should
	// retry from the availability step.
	ErrStaleAssignment = errors.New("assignment state changed, retry")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// NotMovableError carries the offending status.
type NotMovableError struct {
	BookingID uuid.UUID
	Status    BookingStatus
}

func (e *NotMovableError) Error() string {
	return fmt.Sprintf("booking %s not movable: status %s", e.BookingID, e.Status)
}

func (e *NotMovableError) Unwrap() error { return ErrBookingNotMovable }

// IsConflict reports whether err means "refresh and retry" rather than a
// terminal failure.
func IsConflict(err error) bool {
	return errors.Is(err, ErrTableConflict) || errors.Is(err, ErrStaleAssignment)
}

// IsNotFound reports whether err indicates a missing booking or table.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookingNotFound) || errors.Is(err, ErrTableNotFound)
}

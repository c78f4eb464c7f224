/*
store.go - Persistence interfaces for tables, bookings, and assignments

PURPOSE:
  The resolver and mover are handed these narrow interfaces rather than a
  database handle. Bookings are created and transitioned elsewhere; this
  package reads them and mutates only assignment rows.

CONCURRENCY CONTRACT:
  Reassign is the single write path. The implementation must be atomic and
  must enforce the no-overlap invariant for non-cancelled bookings, either
  via a range-exclusion constraint or - where the store lacks one - a
  serialized transaction with an overlap re-check immediately before the
  write. A violation surfaces as ErrTableConflict; a changed assignment set
  surfaces as ErrStaleAssignment. Either way no partial mutation is visible.

IMPLEMENTATIONS:
  - store/sqlite: production store (manual overlap re-check in a tx)
  - store/memory: in-memory store for tests

SEE ALSO:
  - move.go: The caller of Reassign
*/
package tables

import (
	"context"

	"github.com/google/uuid"
	"github.com/tably/boh-engine/clock"
)

// BookingStore reads bookings and their statuses.
type BookingStore interface {
	// Booking returns the booking, or nil when absent.
	Booking(ctx context.Context, id uuid.UUID) (*Booking, error)

	// Statuses resolves current statuses for a set of bookings.
	Statuses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]BookingStatus, error)
}

// TableStore reads the physical layout.
type TableStore interface {
	// BookableTables returns every table flagged bookable.
	BookableTables(ctx context.Context) ([]Table, error)

	// Table returns one table, or nil when absent.
	Table(ctx context.Context, id uuid.UUID) (*Table, error)

	// Areas returns all areas keyed by id, for display names.
	Areas(ctx context.Context) (map[uuid.UUID]Area, error)
}

// AssignmentStore reads and rewrites booking-table assignments.
type AssignmentStore interface {
	// ForBooking returns the booking's current assignments.
	ForBooking(ctx context.Context, bookingID uuid.UUID) ([]Assignment, error)

	// Overlapping returns assignments on any of the given tables whose
	// window intersects the half-open query window, across all bookings.
	// Status filtering is the caller's job (cancelled never blocks).
	Overlapping(ctx context.Context, tableIDs []uuid.UUID, window clock.Window) ([]Assignment, error)

	// Reassign atomically makes tableID the booking's only assignment with
	// the given window: update the existing (booking, table) row's window
	// if one exists, else insert a new row, then delete the booking's other
	// assignment rows. The update/insert happens before the deletes so a
	// failure leaves the prior assignments intact.
	//
	// expectedIDs is the assignment-id set the caller observed; if the
	// stored set differs at write time the store returns ErrStaleAssignment.
	// An overlap with another active booking returns ErrTableConflict.
	Reassign(ctx context.Context, bookingID, tableID uuid.UUID, window clock.Window, expectedIDs []uuid.UUID) (*Assignment, error)
}

// BlockStore answers the private-event question: which areas are blocked
// for a window because an active private booking occupies a venue space
// mapped to them.
type BlockStore interface {
	BlockedAreas(ctx context.Context, window clock.Window) (map[uuid.UUID]struct{}, error)
}

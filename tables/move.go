/*
move.go - Atomic move of a booking between tables

PURPOSE:
  Reassigns a booking from its current table(s) to exactly one target
  table, or refreshes its window on the same table. Availability is
  recomputed fresh inside this call - never reuse the snapshot a client
  rendered from, because two users can race for the same table between
  "viewed options" and "clicked move".

FAILURE SEMANTICS:
  ErrBookingNotFound   booking id is absent
  ErrBookingNotMovable booking is cancelled or no-show
  ErrTableConflict     target failed the fresh check, or a concurrent
                       assignment surfaced as a constraint violation at
                       commit time; prior assignments remain intact
  ErrStaleAssignment   the assignment set changed between read and write;
                       retry from availability

SEE ALSO:
  - availability.go: The fresh-check half of the protocol
  - store.go: Reassign's atomicity contract
*/
package tables

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tably/boh-engine/clock"
)

// Mover performs the state-changing table reassignment.
type Mover struct {
	Resolver    *Resolver
	Bookings    BookingStore
	Tables      TableStore
	Assignments AssignmentStore
}

// MoveResult reports the booking's new single assignment.
type MoveResult struct {
	BookingID uuid.UUID
	TableID   uuid.UUID
	TableName string
	Window    clock.Window
}

// MoveTable atomically makes tableID the booking's only table.
func (m *Mover) MoveTable(ctx context.Context, bookingID, tableID uuid.UUID) (*MoveResult, error) {
	booking, err := m.Bookings.Booking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if !booking.Status.Movable() {
		return nil, &NotMovableError{BookingID: bookingID, Status: booking.Status}
	}

	table, err := m.Tables.Table(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("load table: %w", err)
	}
	if table == nil {
		return nil, ErrTableNotFound
	}

	// Fresh availability at call time closes the check/use gap.
	avail, err := m.Resolver.AvailableTables(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	// Target must be available, or already one of the booking's tables
	// (the stay-put, adjust-window case).
	if !avail.Contains(tableID) && !containsID(avail.AssignedTableIDs(), tableID) {
		return nil, ErrTableConflict
	}

	expected := make([]uuid.UUID, 0, len(avail.CurrentAssignments))
	for _, a := range avail.CurrentAssignments {
		expected = append(expected, a.ID)
	}

	assignment, err := m.Assignments.Reassign(ctx, bookingID, tableID, avail.Window, expected)
	if err != nil {
		// The store's constraint violation is the authoritative conflict
		// signal; it is already mapped to ErrTableConflict there.
		return nil, err
	}

	return &MoveResult{
		BookingID: bookingID,
		TableID:   tableID,
		TableName: table.Name,
		Window:    assignment.Window,
	}, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

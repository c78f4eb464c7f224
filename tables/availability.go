/*
availability.go - Which tables can host a booking right now

PURPOSE:
  Computes the set of tables eligible to receive a booking: bookable,
  capacity-sufficient, free of overlapping active assignments, and not
  inside a privately-blocked area. The booking's own current tables are
  excluded from the result (they are reported separately so a move can be
  a window refresh).

CORRECTNESS BIAS:
  A failed read anywhere - including the private-block check - aborts the
  whole computation. A table is never treated as available because a check
  errored; under-availability is recoverable, over-availability is a
  double-seating.

SEE ALSO:
  - move.go: Recomputes availability fresh before every write
  - store.go: The injected read interfaces
*/
package tables

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tably/boh-engine/clock"
)

// Resolver computes table availability for a booking.
type Resolver struct {
	Tables      TableStore
	Bookings    BookingStore
	Assignments AssignmentStore
	Blocks      BlockStore

	// Zone is the venue timezone bookings are entered in.
	Zone     *time.Location
	Duration DurationPolicy
}

// TableOption is one available table plus its display context.
type TableOption struct {
	Table    Table
	AreaName string
}

// Availability is the resolver's result for one booking.
type Availability struct {
	BookingID uuid.UUID
	Window    clock.Window

	// CurrentAssignments is the booking's assignment set as read during
	// this computation; the mover passes its ids back to the store as the
	// stale-write guard.
	CurrentAssignments []Assignment

	// Tables eligible to move to, excluding the booking's current tables,
	// sorted by table number (natural numeric) then name.
	Tables []TableOption
}

// AssignedTableIDs returns the booking's current table ids.
func (a *Availability) AssignedTableIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(a.CurrentAssignments))
	for _, as := range a.CurrentAssignments {
		ids = append(ids, as.TableID)
	}
	return ids
}

// Contains reports whether tableID is in the available set.
func (a *Availability) Contains(tableID uuid.UUID) bool {
	for _, opt := range a.Tables {
		if opt.Table.ID == tableID {
			return true
		}
	}
	return false
}

// AvailableTables computes availability for the booking's window.
// A cancelled or no-show booking yields an empty result immediately.
func (r *Resolver) AvailableTables(ctx context.Context, bookingID uuid.UUID) (*Availability, error) {
	booking, err := r.Bookings.Booking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if !booking.Status.Movable() {
		return &Availability{BookingID: bookingID}, nil
	}

	window := r.BookingWindow(booking)

	// Candidates: bookable tables with enough seats.
	allTables, err := r.Tables.BookableTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}
	var candidates []Table
	for _, t := range allTables {
		if t.Capacity >= booking.PartySize {
			candidates = append(candidates, t)
		}
	}

	current, err := r.Assignments.ForBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load current assignments: %w", err)
	}
	currentTables := make(map[uuid.UUID]struct{}, len(current))
	for _, a := range current {
		currentTables[a.TableID] = struct{}{}
	}

	// Overlapping assignments held by other bookings. Resolve their
	// statuses and drop the cancelled ones - a cancelled booking never
	// blocks a table.
	candidateIDs := make([]uuid.UUID, len(candidates))
	for i, t := range candidates {
		candidateIDs[i] = t.ID
	}
	overlaps, err := r.Assignments.Overlapping(ctx, candidateIDs, window)
	if err != nil {
		return nil, fmt.Errorf("load overlapping assignments: %w", err)
	}

	otherBookings := make(map[uuid.UUID]struct{})
	for _, o := range overlaps {
		if o.BookingID != bookingID {
			otherBookings[o.BookingID] = struct{}{}
		}
	}
	statuses := map[uuid.UUID]BookingStatus{}
	if len(otherBookings) > 0 {
		ids := make([]uuid.UUID, 0, len(otherBookings))
		for id := range otherBookings {
			ids = append(ids, id)
		}
		statuses, err = r.Bookings.Statuses(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("resolve overlap statuses: %w", err)
		}
	}

	blocked := make(map[uuid.UUID]struct{})
	for _, o := range overlaps {
		if o.BookingID == bookingID {
			continue
		}
		if statuses[o.BookingID].Blocks() {
			blocked[o.TableID] = struct{}{}
		}
	}

	// Private-event blocks by area. An error here aborts the computation;
	// a table is never assumed free because the check failed.
	blockedAreas, err := r.Blocks.BlockedAreas(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("check private blocks: %w", err)
	}

	areas, err := r.Tables.Areas(ctx)
	if err != nil {
		return nil, fmt.Errorf("load areas: %w", err)
	}

	var options []TableOption
	for _, t := range candidates {
		if _, taken := blocked[t.ID]; taken {
			continue
		}
		if _, isCurrent := currentTables[t.ID]; isCurrent {
			continue
		}
		if _, areaBlocked := blockedAreas[t.AreaID]; areaBlocked {
			continue
		}
		options = append(options, TableOption{Table: t, AreaName: areas[t.AreaID].Name})
	}

	sort.Slice(options, func(i, j int) bool {
		a, b := options[i].Table, options[j].Table
		if a.Number != b.Number {
			return naturalLess(a.Number, b.Number)
		}
		return a.Name < b.Name
	})

	return &Availability{
		BookingID:          bookingID,
		Window:             window,
		CurrentAssignments: current,
		Tables:             options,
	}, nil
}

// BookingWindow returns the booking's [start, end) window: stored instants
// when present, else derived from date/time and the category's default
// duration.
func (r *Resolver) BookingWindow(b *Booking) clock.Window {
	var start time.Time
	if b.Start != nil {
		start = *b.Start
	} else {
		start = clock.Instant(b.Date, b.Time, r.Zone)
	}

	duration := b.DurationMinutes
	if duration <= 0 {
		duration = r.Duration.Minutes(b.Category)
	}
	return clock.DeriveWindow(start, b.End, duration, r.Duration.MinimumMinutes)
}

// =============================================================================
// NATURAL ORDERING - "2" before "10", "12a" before "12b"
// =============================================================================

// naturalLess compares strings chunk-wise, treating digit runs as numbers.
func naturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		aNum, aRest, aIsNum := splitChunk(a)
		bNum, bRest, bIsNum := splitChunk(b)

		if aIsNum && bIsNum {
			an, bn := numericValue(aNum), numericValue(bNum)
			if an != bn {
				return an < bn
			}
		} else if aNum != bNum {
			return aNum < bNum
		}
		a, b = aRest, bRest
	}
	return len(a) < len(b)
}

func splitChunk(s string) (chunk, rest string, isNum bool) {
	isNum = s[0] >= '0' && s[0] <= '9'
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9') == isNum {
		i++
	}
	return s[:i], s[i:], isNum
}

func numericValue(s string) int64 {
	var n int64
	for i := 0; i < len(s); i++ {
		n = n*10 + int64(s[i]-'0')
	}
	return n
}

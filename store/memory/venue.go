/*
Package memory provides in-memory store implementations (for testing/dev).

The Venue store implements every tables interface; the Payroll store (see
payroll.go) implements every payroll interface. Both are mutex-guarded so
concurrency tests can hammer them, and both enforce the same constraints
the SQLite store enforces (approval uniqueness, assignment overlap).
*/
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tably/boh-engine/clock"
	"github.com/tably/boh-engine/tables"
)

// =============================================================================
// VENUE - Tables, bookings, assignments, private blocks
// =============================================================================

type Venue struct {
	mu          sync.RWMutex
	areas       map[uuid.UUID]tables.Area
	tables      map[uuid.UUID]tables.Table
	bookings    map[uuid.UUID]tables.Booking
	assignments map[uuid.UUID]tables.Assignment
	blocks      []AreaBlock
}

// AreaBlock marks an area as privately booked for a window.
type AreaBlock struct {
	AreaID uuid.UUID
	Window clock.Window
}

func NewVenue() *Venue {
	return &Venue{
		areas:       make(map[uuid.UUID]tables.Area),
		tables:      make(map[uuid.UUID]tables.Table),
		bookings:    make(map[uuid.UUID]tables.Booking),
		assignments: make(map[uuid.UUID]tables.Assignment),
	}
}

// --- Seeding ---------------------------------------------------------------

func (v *Venue) PutArea(a tables.Area) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.areas[a.ID] = a
}

func (v *Venue) PutTable(t tables.Table) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tables[t.ID] = t
}

func (v *Venue) PutBooking(b tables.Booking) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bookings[b.ID] = b
}

func (v *Venue) PutAssignment(a tables.Assignment) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.assignments[a.ID] = a
}

func (v *Venue) AddBlock(b AreaBlock) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.blocks = append(v.blocks, b)
}

// --- tables.BookingStore ---------------------------------------------------

func (v *Venue) Booking(_ context.Context, id uuid.UUID) (*tables.Booking, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	b, ok := v.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (v *Venue) Statuses(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]tables.BookingStatus, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[uuid.UUID]tables.BookingStatus, len(ids))
	for _, id := range ids {
		if b, ok := v.bookings[id]; ok {
			out[id] = b.Status
		}
	}
	return out, nil
}

// --- tables.TableStore -----------------------------------------------------

func (v *Venue) BookableTables(_ context.Context) ([]tables.Table, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []tables.Table
	for _, t := range v.tables {
		if t.Bookable {
			out = append(out, t)
		}
	}
	return out, nil
}

func (v *Venue) Table(_ context.Context, id uuid.UUID) (*tables.Table, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	t, ok := v.tables[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (v *Venue) Areas(_ context.Context) (map[uuid.UUID]tables.Area, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[uuid.UUID]tables.Area, len(v.areas))
	for id, a := range v.areas {
		out[id] = a
	}
	return out, nil
}

// --- tables.AssignmentStore ------------------------------------------------

func (v *Venue) ForBooking(_ context.Context, bookingID uuid.UUID) ([]tables.Assignment, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.assignmentsForLocked(bookingID), nil
}

func (v *Venue) Overlapping(_ context.Context, tableIDs []uuid.UUID, window clock.Window) ([]tables.Assignment, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	wanted := make(map[uuid.UUID]struct{}, len(tableIDs))
	for _, id := range tableIDs {
		wanted[id] = struct{}{}
	}

	var out []tables.Assignment
	for _, a := range v.assignments {
		if _, ok := wanted[a.TableID]; !ok {
			continue
		}
		if a.Window.Overlaps(window) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Reassign mirrors the SQLite store's protocol: stale check, overlap
// re-check, upsert-then-delete, all under one lock.
func (v *Venue) Reassign(_ context.Context, bookingID, tableID uuid.UUID, window clock.Window, expectedIDs []uuid.UUID) (*tables.Assignment, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	current := v.assignmentsForLocked(bookingID)
	if !sameIDSet(current, expectedIDs) {
		return nil, tables.ErrStaleAssignment
	}

	// Overlap re-check directly before the write: any active other-booking
	// assignment on the target table in this window is a conflict.
	for _, a := range v.assignments {
		if a.TableID != tableID || a.BookingID == bookingID {
			continue
		}
		if !a.Window.Overlaps(window) {
			continue
		}
		if b, ok := v.bookings[a.BookingID]; !ok || b.Status.Blocks() {
			return nil, tables.ErrTableConflict
		}
	}

	// Upsert the target row, then delete the rest.
	var target *tables.Assignment
	for _, a := range current {
		if a.TableID == tableID {
			updated := a
			updated.Window = window
			v.assignments[a.ID] = updated
			target = &updated
			break
		}
	}
	if target == nil {
		created := tables.Assignment{
			ID:        uuid.New(),
			BookingID: bookingID,
			TableID:   tableID,
			Window:    window,
		}
		v.assignments[created.ID] = created
		target = &created
	}

	for _, a := range current {
		if a.TableID != tableID {
			delete(v.assignments, a.ID)
		}
	}
	return target, nil
}

// --- tables.BlockStore -----------------------------------------------------

func (v *Venue) BlockedAreas(_ context.Context, window clock.Window) (map[uuid.UUID]struct{}, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[uuid.UUID]struct{})
	for _, b := range v.blocks {
		if b.Window.Overlaps(window) {
			out[b.AreaID] = struct{}{}
		}
	}
	return out, nil
}

// --- helpers ---------------------------------------------------------------

func (v *Venue) assignmentsForLocked(bookingID uuid.UUID) []tables.Assignment {
	var out []tables.Assignment
	for _, a := range v.assignments {
		if a.BookingID == bookingID {
			out = append(out, a)
		}
	}
	return out
}

func sameIDSet(current []tables.Assignment, expected []uuid.UUID) bool {
	if len(current) != len(expected) {
		return false
	}
	have := make(map[uuid.UUID]struct{}, len(current))
	for _, a := range current {
		have[a.ID] = struct{}{}
	}
	for _, id := range expected {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

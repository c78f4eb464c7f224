/*
Package tables resolves table availability and moves booking assignments.

PURPOSE:
  Given a table booking's time window, determine which physical tables can
  host it (capacity-sufficient, not overlapping another active booking's
  assignment, not blocked by a private-event space), and atomically move a
  booking between tables with conflict detection.

KEY CONCEPTS IN THIS FILE (types.go):
  - Table/Area:    Physical seating units grouped into zones
  - Booking:       A table booking with a party size and time window
  - Assignment:    Join of a booking to a table, with its own window
  - BookingStatus: Lifecycle state; cancelled bookings never block tables

DESIGN PRINCIPLES:
  1. Windows are half-open [start, end): back-to-back seatings on the same
     table do not conflict.
  2. Assignments carry their own window so a booking can span a narrower or
     wider slot than its nominal time, and large parties can combine tables.
  3. The store's overlap constraint is the concurrency primitive; the
     application recomputes availability fresh and treats a constraint
     violation at commit time as the authoritative conflict signal.

SEE ALSO:
  - availability.go: The availability resolver
  - move.go: The atomic move-table operation
  - store.go: Injected persistence interfaces
*/
package tables

import (
	"time"

	"github.com/google/uuid"
	"github.com/tably/boh-engine/clock"
)

// =============================================================================
// BOOKING STATUS
// =============================================================================

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusSeated    BookingStatus = "seated"
	StatusLeft      BookingStatus = "left"
	StatusCancelled BookingStatus = "cancelled"
	StatusNoShow    BookingStatus = "no_show"
)

// Blocks reports whether a booking in this status holds its tables. A
// cancelled booking never blocks a table.
func (s BookingStatus) Blocks() bool { return s != StatusCancelled }

// Movable reports whether a booking in this status can be (re)assigned a
// table. Cancelled and no-show bookings have no available-table concept.
func (s BookingStatus) Movable() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// =============================================================================
// BOOKING CATEGORIES - Drive the default window duration
// =============================================================================

const (
	CategoryRegular   = "regular"
	CategoryFixedMenu = "fixed_menu"
)

// DurationPolicy maps a booking category to its default duration. The
// defaults are configuration inputs, not constants of the resolver.
type DurationPolicy struct {
	DefaultMinutes int            // fallback for unknown categories
	ByCategory     map[string]int // e.g. fixed_menu -> 120
	MinimumMinutes int
}

// Minutes returns the default duration for a category.
func (p DurationPolicy) Minutes(category string) int {
	if m, ok := p.ByCategory[category]; ok {
		return m
	}
	return p.DefaultMinutes
}

// =============================================================================
// PHYSICAL LAYOUT
// =============================================================================

type Area struct {
	ID   uuid.UUID
	Name string
}

type Table struct {
	ID       uuid.UUID
	Number   string // display number; sorted with natural numeric collation
	Name     string
	Capacity int
	AreaID   uuid.UUID
	Bookable bool
}

// =============================================================================
// BOOKING
// =============================================================================

type Booking struct {
	ID        uuid.UUID
	Date      clock.CivilDate
	Time      clock.ClockTime
	PartySize int
	Status    BookingStatus
	Category  string

	// Stored computed instants; either may be nil, in which case the window
	// is derived from Date/Time/DurationMinutes.
	Start *time.Time
	End   *time.Time

	// DurationMinutes of 0 means "use the category default".
	DurationMinutes int
}

// =============================================================================
// ASSIGNMENT - Booking-to-table join with its own window
// =============================================================================

// Assignment links a booking to one table for a window. A booking may hold
// several assignments (multi-table combination for a large party).
// Assignments are replaced, never updated in place for a table change.
type Assignment struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	TableID   uuid.UUID
	Window    clock.Window
}

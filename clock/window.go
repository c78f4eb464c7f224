/*
window.go - Half-open time windows and window derivation

PURPOSE:
  A Window is the [start, end) interval every availability and payroll
  comparison runs on. Derivation handles the "no explicit end" case:
  bookings carry a duration (category default from config) and shifts carry
  an explicit end time.

HALF-OPEN SEMANTICS:
  Windows are [start, end): a booking ending at 11:30 does not collide with
  one starting at 11:30. Overlap test is start < other.end && end > other.start.

SEE ALSO:
  - clock.go: instant conversion feeding Start/End
  - tables/availability.go: overlap queries against assignments
*/
package clock

import "time"

// =============================================================================
// WINDOW - Half-open [Start, End) interval in UTC
// =============================================================================

type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// Contains reports whether t falls within [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

func (w Window) IsZero() bool { return w.Start.IsZero() && w.End.IsZero() }

// DefaultMinimumMinutes is the floor applied to derived window durations.
const DefaultMinimumMinutes = 30

// DeriveWindow builds a window from a start instant and either an explicit
// end or a duration. With no explicit end, end = start + max(duration,
// minimum). minimumMinutes <= 0 falls back to DefaultMinimumMinutes.
// Category defaults for durationMinutes (regular vs fixed-menu seating) are
// a config input, not decided here.
func DeriveWindow(start time.Time, explicitEnd *time.Time, durationMinutes, minimumMinutes int) Window {
	if explicitEnd != nil && explicitEnd.After(start) {
		return Window{Start: start, End: *explicitEnd}
	}
	if minimumMinutes <= 0 {
		minimumMinutes = DefaultMinimumMinutes
	}
	if durationMinutes < minimumMinutes {
		durationMinutes = minimumMinutes
	}
	return Window{Start: start, End: start.Add(time.Duration(durationMinutes) * time.Minute)}
}

// =============================================================================
// MONTH WINDOW - Payroll month boundaries in the venue zone
// =============================================================================

// MonthWindow returns the [first-of-month 00:00, first-of-next-month 00:00)
// window for a (year, month) pair in the venue zone, as UTC instants.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Window{Start: start.UTC(), End: start.AddDate(0, 1, 0).UTC()}
}

// DaysInMonth returns the day count of a (year, month) pair.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

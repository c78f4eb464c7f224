/*
venue.go - SQLite implementation of the tables store interfaces

Assignment windows are stored as RFC3339 UTC text; with a fixed format and
zone the lexicographic comparison in SQL matches chronological order, so
the half-open overlap test is start_at < ? AND end_at > ? directly on the
text columns.

Reassign is the single concurrency-sensitive write. SQLite has no
range-exclusion constraint, so it uses the fallback protocol: one
serialized transaction that re-checks the overlap immediately before the
write. The upsert happens before the deletes, so a conflict leaves the
booking's prior assignments untouched.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tably/boh-engine/clock"
	"github.com/tably/boh-engine/tables"
)

// =============================================================================
// LAYOUT (tables.TableStore)
// =============================================================================

// SaveArea upserts an area row (seed/admin path).
func (s *Store) SaveArea(ctx context.Context, a tables.Area) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO table_areas (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, a.ID.String(), a.Name)
	if err != nil {
		return fmt.Errorf("failed to save area: %w", err)
	}
	return nil
}

// SaveTable upserts a table row (seed/admin path).
func (s *Store) SaveTable(ctx context.Context, t tables.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO venue_tables (id, table_number, name, capacity, area_id, bookable)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			table_number = excluded.table_number,
			name = excluded.name,
			capacity = excluded.capacity,
			area_id = excluded.area_id,
			bookable = excluded.bookable
	`, t.ID.String(), t.Number, t.Name, t.Capacity, t.AreaID.String(), t.Bookable)
	if err != nil {
		return fmt.Errorf("failed to save table: %w", err)
	}
	return nil
}

// BookableTables returns every table flagged bookable.
func (s *Store) BookableTables(ctx context.Context) ([]tables.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, table_number, name, capacity, area_id, bookable
		FROM venue_tables
		WHERE bookable = TRUE
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var out []tables.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Table returns one table, or nil when absent.
func (s *Store) Table(ctx context.Context, id uuid.UUID) (*tables.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, table_number, name, capacity, area_id, bookable
		FROM venue_tables
		WHERE id = ?
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query table: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	t, err := scanTable(rows)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Areas returns all areas keyed by id.
func (s *Store) Areas(ctx context.Context) (map[uuid.UUID]tables.Area, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM table_areas`)
	if err != nil {
		return nil, fmt.Errorf("failed to query areas: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]tables.Area)
	for rows.Next() {
		var idStr, name string
		if err := rows.Scan(&idStr, &name); err != nil {
			return nil, fmt.Errorf("failed to scan area: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("bad area id %q: %w", idStr, err)
		}
		out[id] = tables.Area{ID: id, Name: name}
	}
	return out, rows.Err()
}

// =============================================================================
// BOOKINGS (tables.BookingStore)
// =============================================================================

// SaveBooking upserts a booking row (seed path; bookings are created and
// transitioned by the reservations feature).
func (s *Store) SaveBooking(ctx context.Context, b tables.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO table_bookings (id, date, time, party_size, status, category, start_at, end_at, duration_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			time = excluded.time,
			party_size = excluded.party_size,
			status = excluded.status,
			category = excluded.category,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			duration_minutes = excluded.duration_minutes
	`, b.ID.String(), b.Date.String(), b.Time.String(), b.PartySize, string(b.Status),
		b.Category, nullTime(b.Start), nullTime(b.End), b.DurationMinutes)
	if err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Booking returns the booking, or nil when absent.
func (s *Store) Booking(ctx context.Context, id uuid.UUID) (*tables.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, time, party_size, status, category, start_at, end_at, duration_minutes
		FROM table_bookings
		WHERE id = ?
	`, id.String())

	var b tables.Booking
	var idStr, date, clockStr, status string
	var startAt, endAt sql.NullString
	err := row.Scan(&idStr, &date, &clockStr, &b.PartySize, &status, &b.Category, &startAt, &endAt, &b.DurationMinutes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query booking: %w", err)
	}

	if b.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("bad booking id %q: %w", idStr, err)
	}
	if b.Date, err = clock.ParseDate(date); err != nil {
		return nil, err
	}
	if b.Time, err = clock.ParseClock(clockStr); err != nil {
		return nil, err
	}
	b.Status = tables.BookingStatus(status)
	if startAt.Valid {
		t, err := parseTime(startAt.String)
		if err != nil {
			return nil, err
		}
		b.Start = &t
	}
	if endAt.Valid {
		t, err := parseTime(endAt.String)
		if err != nil {
			return nil, err
		}
		b.End = &t
	}
	return &b, nil
}

// Statuses resolves current statuses for a set of bookings.
func (s *Store) Statuses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]tables.BookingStatus, error) {
	out := make(map[uuid.UUID]tables.BookingStatus, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, status FROM table_bookings WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var idStr, status string
		if err := rows.Scan(&idStr, &status); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("bad booking id %q: %w", idStr, err)
		}
		out[id] = tables.BookingStatus(status)
	}
	return out, rows.Err()
}

// =============================================================================
// ASSIGNMENTS (tables.AssignmentStore)
// =============================================================================

// SaveAssignment inserts an assignment row directly (seed path).
func (s *Store) SaveAssignment(ctx context.Context, a tables.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO booking_table_assignments (id, booking_id, table_id, start_at, end_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID.String(), a.BookingID.String(), a.TableID.String(),
		formatTime(a.Window.Start), formatTime(a.Window.End))
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	return nil
}

// ForBooking returns the booking's current assignments.
func (s *Store) ForBooking(ctx context.Context, bookingID uuid.UUID) ([]tables.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assignmentsForBooking(ctx, s.db, bookingID)
}

// Overlapping returns assignments on the given tables intersecting the
// window, across all bookings. Status filtering is the caller's job.
func (s *Store) Overlapping(ctx context.Context, tableIDs []uuid.UUID, window clock.Window) ([]tables.Assignment, error) {
	if len(tableIDs) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, booking_id, table_id, start_at, end_at
		FROM booking_table_assignments
		WHERE start_at < ? AND end_at > ?
		  AND table_id IN (?` + strings.Repeat(",?", len(tableIDs)-1) + `)`
	args := []any{formatTime(window.End), formatTime(window.Start)}
	for _, id := range tableIDs {
		args = append(args, id.String())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlaps: %w", err)
	}
	defer rows.Close()

	var out []tables.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Reassign makes tableID the booking's only assignment, atomically.
// Protocol: stale check, overlap re-check, upsert target, delete the rest.
func (s *Store) Reassign(ctx context.Context, bookingID, tableID uuid.UUID, window clock.Window, expectedIDs []uuid.UUID) (*tables.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Stale check: the assignment set must still match what the caller
	// observed during the availability computation.
	current, err := s.assignmentsForBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if !matchesIDSet(current, expectedIDs) {
		return nil, tables.ErrStaleAssignment
	}

	// Overlap re-check directly before the write. This stands in for a
	// range-exclusion constraint: any active other-booking assignment on
	// the target table in this window is a conflict.
	var conflicts int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM booking_table_assignments a
		JOIN table_bookings b ON b.id = a.booking_id
		WHERE a.table_id = ?
		  AND a.booking_id != ?
		  AND b.status != 'cancelled'
		  AND a.start_at < ? AND a.end_at > ?
	`, tableID.String(), bookingID.String(), formatTime(window.End), formatTime(window.Start)).Scan(&conflicts)
	if err != nil {
		return nil, fmt.Errorf("failed to re-check overlap: %w", err)
	}
	if conflicts > 0 {
		return nil, tables.ErrTableConflict
	}

	// Upsert the target row first so a failure here leaves the prior
	// assignments intact, then delete the others.
	target := tables.Assignment{BookingID: bookingID, TableID: tableID, Window: window}
	for _, a := range current {
		if a.TableID == tableID {
			target.ID = a.ID
			break
		}
	}
	if target.ID == uuid.Nil {
		target.ID = uuid.New()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO booking_table_assignments (id, booking_id, table_id, start_at, end_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(booking_id, table_id) DO UPDATE SET
			start_at = excluded.start_at,
			end_at = excluded.end_at
	`, target.ID.String(), bookingID.String(), tableID.String(),
		formatTime(window.Start), formatTime(window.End))
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, tables.ErrTableConflict
		}
		return nil, fmt.Errorf("failed to upsert assignment: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM booking_table_assignments
		WHERE booking_id = ? AND table_id != ?
	`, bookingID.String(), tableID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to delete old assignments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reassignment: %w", err)
	}
	return &target, nil
}

// =============================================================================
// PRIVATE BLOCKS (tables.BlockStore)
// =============================================================================

// SaveSpace upserts a venue space (seed/admin path).
func (s *Store) SaveSpace(ctx context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO venue_spaces (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, id.String(), name)
	if err != nil {
		return fmt.Errorf("failed to save space: %w", err)
	}
	return nil
}

// MapSpaceToArea records that a private booking of the space blocks the area.
func (s *Store) MapSpaceToArea(ctx context.Context, spaceID, areaID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO space_area_map (space_id, area_id) VALUES (?, ?)
		ON CONFLICT(space_id, area_id) DO NOTHING
	`, spaceID.String(), areaID.String())
	if err != nil {
		return fmt.Errorf("failed to map space to area: %w", err)
	}
	return nil
}

// SavePrivateBooking upserts a private-event booking (seed path).
func (s *Store) SavePrivateBooking(ctx context.Context, id, spaceID uuid.UUID, status string, window clock.Window) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO private_bookings (id, space_id, status, start_at, end_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			space_id = excluded.space_id,
			status = excluded.status,
			start_at = excluded.start_at,
			end_at = excluded.end_at
	`, id.String(), spaceID.String(), status, formatTime(window.Start), formatTime(window.End))
	if err != nil {
		return fmt.Errorf("failed to save private booking: %w", err)
	}
	return nil
}

// BlockedAreas returns area ids blocked by active private bookings whose
// window intersects the query window.
func (s *Store) BlockedAreas(ctx context.Context, window clock.Window) (map[uuid.UUID]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT m.area_id
		FROM private_bookings pb
		JOIN space_area_map m ON m.space_id = pb.space_id
		WHERE pb.status != 'cancelled'
		  AND pb.start_at < ? AND pb.end_at > ?
	`, formatTime(window.End), formatTime(window.Start))
	if err != nil {
		return nil, fmt.Errorf("failed to query blocked areas: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("failed to scan blocked area: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("bad area id %q: %w", idStr, err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTable(r rowScanner) (tables.Table, error) {
	var t tables.Table
	var idStr, areaStr string
	if err := r.Scan(&idStr, &t.Number, &t.Name, &t.Capacity, &areaStr, &t.Bookable); err != nil {
		return tables.Table{}, fmt.Errorf("failed to scan table: %w", err)
	}
	var err error
	if t.ID, err = uuid.Parse(idStr); err != nil {
		return tables.Table{}, fmt.Errorf("bad table id %q: %w", idStr, err)
	}
	if t.AreaID, err = uuid.Parse(areaStr); err != nil {
		return tables.Table{}, fmt.Errorf("bad area id %q: %w", areaStr, err)
	}
	return t, nil
}

func scanAssignment(r rowScanner) (tables.Assignment, error) {
	var a tables.Assignment
	var idStr, bookingStr, tableStr, start, end string
	if err := r.Scan(&idStr, &bookingStr, &tableStr, &start, &end); err != nil {
		return tables.Assignment{}, fmt.Errorf("failed to scan assignment: %w", err)
	}
	var err error
	if a.ID, err = uuid.Parse(idStr); err != nil {
		return tables.Assignment{}, fmt.Errorf("bad assignment id %q: %w", idStr, err)
	}
	if a.BookingID, err = uuid.Parse(bookingStr); err != nil {
		return tables.Assignment{}, fmt.Errorf("bad booking id %q: %w", bookingStr, err)
	}
	if a.TableID, err = uuid.Parse(tableStr); err != nil {
		return tables.Assignment{}, fmt.Errorf("bad table id %q: %w", tableStr, err)
	}
	if a.Window.Start, err = parseTime(start); err != nil {
		return tables.Assignment{}, err
	}
	if a.Window.End, err = parseTime(end); err != nil {
		return tables.Assignment{}, err
	}
	return a, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) assignmentsForBooking(ctx context.Context, db querier, bookingID uuid.UUID) ([]tables.Assignment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, booking_id, table_id, start_at, end_at
		FROM booking_table_assignments
		WHERE booking_id = ?
		ORDER BY start_at
	`, bookingID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []tables.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func matchesIDSet(current []tables.Assignment, expected []uuid.UUID) bool {
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


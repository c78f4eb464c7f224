package tables_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tably/boh-engine/store/memory"
	"github.com/tably/boh-engine/tables"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestMover(t *testing.T) (*tables.Mover, *memory.Venue) {
	t.Helper()
	resolver, venue := newTestResolver(t)
	mover := &tables.Mover{
		Resolver:    resolver,
		Bookings:    venue,
		Tables:      venue,
		Assignments: venue,
	}
	return mover, venue
}

// =============================================================================
// MOVE
// =============================================================================

func TestMoveTable_EndToEnd(t *testing.T) {
	// GIVEN: A booking seated on table 2, table 3 free
	// WHEN: Moved to table 3
	// THEN: Table 3 is the only assignment, carrying the booking's window

	mover, venue := newTestMover(t)
	from := seatTable(venue, "2", 4, areaMain)
	to := seatTable(venue, "3", 4, areaMain)

	b := booking(venue, "2025-07-04", "19:00", 4, tables.StatusConfirmed)
	assign(venue, b, from, windowAt("2025-07-04", "19:00", 90))

	result, err := mover.MoveTable(context.Background(), b.ID, to.ID)
	require.NoError(t, err)
	assert.Equal(t, to.ID, result.TableID)
	assert.Equal(t, "Table 3", result.TableName)
	assert.Equal(t, windowAt("2025-07-04", "19:00", 90), result.Window)

	after, err := venue.ForBooking(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, to.ID, after[0].TableID)
}

func TestMoveTable_CombinedTables_CollapseToOne(t *testing.T) {
	// GIVEN: A large party holding tables 2 and 3 together
	// WHEN: Moved to the single 8-top
	// THEN: Both old assignments are replaced by one

	mover, venue := newTestMover(t)
	first := seatTable(venue, "2", 4, areaMain)
	second := seatTable(venue, "3", 4, areaMain)
	big := seatTable(venue, "10", 8, areaMain)

	b := booking(venue, "2025-07-04", "19:00", 7, tables.StatusConfirmed)
	w := windowAt("2025-07-04", "19:00", 90)
	assign(venue, b, first, w)
	assign(venue, b, second, w)

	result, err := mover.MoveTable(context.Background(), b.ID, big.ID)
	require.NoError(t, err)
	assert.Equal(t, big.ID, result.TableID)

	after, err := venue.ForBooking(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, big.ID, after[0].TableID)
}

func TestMoveTable_TargetTaken_ConflictKeepsOldAssignment(t *testing.T) {
	// GIVEN: Table 3 is held by another active booking for the same window
	// WHEN: The move is attempted
	// THEN: Conflict, and the booking still sits on table 2

	mover, venue := newTestMover(t)
	from := seatTable(venue, "2", 4, areaMain)
	to := seatTable(venue, "3", 4, areaMain)

	other := booking(venue, "2025-07-04", "19:00", 2, tables.StatusSeated)
	assign(venue, other, to, windowAt("2025-07-04", "19:00", 90))

	b := booking(venue, "2025-07-04", "19:00", 4, tables.StatusConfirmed)
	original := assign(venue, b, from, windowAt("2025-07-04", "19:00", 90))

	_, err := mover.MoveTable(context.Background(), b.ID, to.ID)
	require.Error(t, err)
	assert.True(t, tables.IsConflict(err))

	after, err := venue.ForBooking(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, original.ID, after[0].ID)
	assert.Equal(t, from.ID, after[0].TableID)
}

func TestMoveTable_TooSmallTarget_Conflict(t *testing.T) {
	// GIVEN: A party of 6 and a free 4-top
	// WHEN: The move targets the 4-top
	// THEN: Conflict; capacity rules are enforced on write, not just display

	mover, venue := newTestMover(t)
	from := seatTable(venue, "2", 6, areaMain)
	small := seatTable(venue, "3", 4, areaMain)

	b := booking(venue, "2025-07-04", "19:00", 6, tables.StatusConfirmed)
	assign(venue, b, from, windowAt("2025-07-04", "19:00", 90))

	_, err := mover.MoveTable(context.Background(), b.ID, small.ID)
	assert.ErrorIs(t, err, tables.ErrTableConflict)
}

func TestMoveTable_SameTable_RefreshesWindow(t *testing.T) {
	// GIVEN: A booking on table 2 with a stale assignment window
	// WHEN: "Moved" to its own table
	// THEN: The assignment is rewritten to the booking's current window

	mover, venue := newTestMover(t)
	table := seatTable(venue, "2", 4, areaMain)

	b := booking(venue, "2025-07-04", "19:00", 4, tables.StatusConfirmed)
	assign(venue, b, table, windowAt("2025-07-04", "18:00", 60))

	result, err := mover.MoveTable(context.Background(), b.ID, table.ID)
	require.NoError(t, err)
	assert.Equal(t, windowAt("2025-07-04", "19:00", 90), result.Window)

	after, err := venue.ForBooking(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, windowAt("2025-07-04", "19:00", 90), after[0].Window)
}

func TestMoveTable_CancelledBooking_NotMovable(t *testing.T) {
	// GIVEN: A cancelled booking
	// WHEN: A move is attempted
	// THEN: NotMovableError naming the status

	mover, venue := newTestMover(t)
	table := seatTable(venue, "2", 4, areaMain)
	b := booking(venue, "2025-07-04", "19:00", 2, tables.StatusCancelled)

	_, err := mover.MoveTable(context.Background(), b.ID, table.ID)
	require.Error(t, err)

	var notMovable *tables.NotMovableError
	require.ErrorAs(t, err, &notMovable)
	assert.Equal(t, tables.StatusCancelled, notMovable.Status)
	assert.ErrorIs(t, err, tables.ErrBookingNotMovable)
}

func TestMoveTable_UnknownBooking_NotFound(t *testing.T) {
	mover, venue := newTestMover(t)
	table := seatTable(venue, "2", 4, areaMain)

	_, err := mover.MoveTable(context.Background(), uuid.New(), table.ID)
	assert.ErrorIs(t, err, tables.ErrBookingNotFound)
}

func TestMoveTable_UnknownTable_NotFound(t *testing.T) {
	mover, venue := newTestMover(t)
	b := booking(venue, "2025-07-04", "19:00", 2, tables.StatusConfirmed)

	_, err := mover.MoveTable(context.Background(), b.ID, uuid.New())
	assert.ErrorIs(t, err, tables.ErrTableNotFound)
}

func TestMoveTable_PrivateBlockOverWindow_Conflict(t *testing.T) {
	// GIVEN: The garden is privately booked over the booking's window
	// WHEN: The move targets a garden table
	// THEN: Conflict; the block wins even though the table itself is empty

	mover, venue := newTestMover(t)
	from := seatTable(venue, "2", 4, areaMain)
	garden := seatTable(venue, "20", 4, areaGarden)

	venue.AddBlock(memory.AreaBlock{
		AreaID: areaGarden.ID,
		Window: windowAt("2025-07-04", "18:00", 240),
	})

	b := booking(venue, "2025-07-04", "19:00", 4, tables.StatusConfirmed)
	assign(venue, b, from, windowAt("2025-07-04", "19:00", 90))

	_, err := mover.MoveTable(context.Background(), b.ID, garden.ID)
	assert.ErrorIs(t, err, tables.ErrTableConflict)
}

// =============================================================================
// RACES
// =============================================================================

func TestMoveTable_TwoBookingsRaceForOneTable_OneWins(t *testing.T) {
	// GIVEN: Two active bookings both targeting the free table 3
	// WHEN: Both moves run
	// THEN: Exactly one lands; the loser keeps its original table

	mover, venue := newTestMover(t)
	tableA := seatTable(venue, "1", 4, areaMain)
	tableB := seatTable(venue, "2", 4, areaMain)
	target := seatTable(venue, "3", 4, areaMain)

	w := windowAt("2025-07-04", "19:00", 90)
	b1 := booking(venue, "2025-07-04", "19:00", 4, tables.StatusConfirmed)
	assign(venue, b1, tableA, w)
	b2 := booking(venue, "2025-07-04", "19:00", 4, tables.StatusConfirmed)
	assign(venue, b2, tableB, w)

	ctx := context.Background()
	done := make(chan error, 2)
	go func() {
		_, err := mover.MoveTable(ctx, b1.ID, target.ID)
		done <- err
	}()
	go func() {
		_, err := mover.MoveTable(ctx, b2.ID, target.ID)
		done <- err
	}()

	var wins, conflicts int
	for i := 0; i < 2; i++ {
		if err := <-done; err == nil {
			wins++
		} else {
			assert.True(t, tables.IsConflict(err), "unexpected error: %v", err)
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	holders, err := venue.Overlapping(ctx, []uuid.UUID{target.ID}, w)
	require.NoError(t, err)
	assert.Len(t, holders, 1, "target table must hold exactly one assignment")
}

func TestMoveTable_StaleAssignmentSet_Retryable(t *testing.T) {
	// GIVEN: The booking's assignments change between availability and write
	// WHEN: Reassign runs with the stale expected id set
	// THEN: ErrStaleAssignment, which reads as a retryable conflict

	_, venue := newTestMover(t)
	table := seatTable(venue, "2", 4, areaMain)
	target := seatTable(venue, "3", 4, areaMain)

	b := booking(venue, "2025-07-04", "19:00", 4, tables.StatusConfirmed)
	w := windowAt("2025-07-04", "19:00", 90)
	stale := assign(venue, b, table, w)

	// Another actor moves the booking first, replacing the assignment set.
	_, err := venue.Reassign(context.Background(), b.ID, target.ID, w, []uuid.UUID{stale.ID})
	require.NoError(t, err)

	_, err = venue.Reassign(context.Background(), b.ID, table.ID, w, []uuid.UUID{stale.ID})
	assert.ErrorIs(t, err, tables.ErrStaleAssignment)
	assert.True(t, tables.IsConflict(err))
}

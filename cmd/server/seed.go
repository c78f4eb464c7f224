/*
seed.go - Demo data for local development

Seeds a small venue (two areas, six tables, one private space) and one
payroll month so the endpoints return something meaningful out of the box.
Only runs behind the -seed flag; all writes are upserts, so re-running is
safe.
*/
package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tably/boh-engine/clock"
	"github.com/tably/boh-engine/payroll"
	"github.com/tably/boh-engine/store/sqlite"
	"github.com/tably/boh-engine/tables"
)

func seedDemoData(ctx context.Context, store *sqlite.Store, zone *time.Location) error {
	if err := seedVenue(ctx, store, zone); err != nil {
		return err
	}
	return seedPayroll(ctx, store, zone)
}

func seedVenue(ctx context.Context, store *sqlite.Store, zone *time.Location) error {
	mainFloor := tables.Area{ID: uuid.MustParse("a1000000-0000-0000-0000-000000000001"), Name: "Main Floor"}
	garden := tables.Area{ID: uuid.MustParse("a1000000-0000-0000-0000-000000000002"), Name: "Garden"}
	for _, a := range []tables.Area{mainFloor, garden} {
		if err := store.SaveArea(ctx, a); err != nil {
			return err
		}
	}

	seatTables := []tables.Table{
		{ID: uuid.MustParse("b1000000-0000-0000-0000-000000000001"), Number: "1", Name: "Window", Capacity: 2, AreaID: mainFloor.ID, Bookable: true},
		{ID: uuid.MustParse("b1000000-0000-0000-0000-000000000002"), Number: "2", Name: "Window", Capacity: 4, AreaID: mainFloor.ID, Bookable: true},
		{ID: uuid.MustParse("b1000000-0000-0000-0000-000000000003"), Number: "10", Name: "Booth", Capacity: 6, AreaID: mainFloor.ID, Bookable: true},
		{ID: uuid.MustParse("b1000000-0000-0000-0000-000000000004"), Number: "20", Name: "Patio", Capacity: 4, AreaID: garden.ID, Bookable: true},
		{ID: uuid.MustParse("b1000000-0000-0000-0000-000000000005"), Number: "21", Name: "Patio", Capacity: 4, AreaID: garden.ID, Bookable: true},
		{ID: uuid.MustParse("b1000000-0000-0000-0000-000000000006"), Number: "99", Name: "Staff", Capacity: 2, AreaID: mainFloor.ID, Bookable: false},
	}
	for _, t := range seatTables {
		if err := store.SaveTable(ctx, t); err != nil {
			return err
		}
	}

	// Private dining room: booking it blocks the whole garden.
	spaceID := uuid.MustParse("c1000000-0000-0000-0000-000000000001")
	if err := store.SaveSpace(ctx, spaceID, "Garden Room"); err != nil {
		return err
	}
	if err := store.MapSpaceToArea(ctx, spaceID, garden.ID); err != nil {
		return err
	}

	tonight := clock.DateOf(time.Now(), zone)
	dinner := tables.Booking{
		ID:        uuid.MustParse("d1000000-0000-0000-0000-000000000001"),
		Date:      tonight,
		Time:      clock.MustClock("19:00"),
		PartySize: 4,
		Status:    tables.StatusConfirmed,
		Category:  tables.CategoryRegular,
	}
	if err := store.SaveBooking(ctx, dinner); err != nil {
		return err
	}

	start := clock.Instant(dinner.Date, dinner.Time, zone)
	window := clock.Window{Start: start, End: start.Add(90 * time.Minute)}
	return store.SaveAssignment(ctx, tables.Assignment{
		ID:        uuid.MustParse("e1000000-0000-0000-0000-000000000001"),
		BookingID: dinner.ID,
		TableID:   seatTables[1].ID,
		Window:    window,
	})
}

func seedPayroll(ctx context.Context, store *sqlite.Store, zone *time.Location) error {
	employees := []payroll.Employee{
		{ID: "emp-ana", Name: "Ana Pereira", HourlyRate: decimal.NewFromFloat(14.50)},
		{ID: "emp-ben", Name: "Ben Okafor", HourlyRate: decimal.NewFromFloat(12.75)},
		{ID: "emp-gm", Name: "Dana Whitfield", HourlyRate: decimal.Zero, Salaried: true},
	}
	for _, e := range employees {
		if err := store.SaveEmployee(ctx, e); err != nil {
			return err
		}
	}

	now := time.Now().In(zone)
	date := clock.CivilDate{Year: now.Year(), Month: now.Month(), Day: 3}

	shiftStart := clock.Instant(date, clock.MustClock("09:00"), zone)
	shiftEnd := clock.Instant(date, clock.MustClock("17:00"), zone)
	if err := store.SaveShift(ctx, payroll.ShiftPlan{
		ID:         "shift-ana-1",
		EmployeeID: "emp-ana",
		Date:       date,
		Start:      shiftStart,
		End:        shiftEnd,
		Department: "Front of House",
	}); err != nil {
		return err
	}

	sessionStart := clock.Instant(date, clock.MustClock("09:05"), zone)
	sessionEnd := clock.Instant(date, clock.MustClock("17:10"), zone)
	if err := store.SaveSession(ctx, payroll.TimeSession{
		ID:         "session-ana-1",
		EmployeeID: "emp-ana",
		Date:       date,
		Start:      sessionStart,
		End:        &sessionEnd,
	}); err != nil {
		return err
	}

	// Unscheduled cover shift for Ben, no plan on file.
	benStart := clock.Instant(date, clock.MustClock("18:00"), zone)
	benEnd := clock.Instant(date, clock.MustClock("23:00"), zone)
	return store.SaveSession(ctx, payroll.TimeSession{
		ID:         "session-ben-1",
		EmployeeID: "emp-ben",
		Date:       date,
		Start:      benStart,
		End:        &benEnd,
	})
}

/*
Package clock provides venue-timezone time computation.

PURPOSE:
  Everything in the back office is entered as a civil date plus a local
  clock time in the venue's timezone. Before any interval comparison those
  values must become absolute UTC instants, converted through the zone's
  offset rules. This package is the single place where that conversion
  happens.

KEY CONCEPTS IN THIS FILE (clock.go):
  - CivilDate: A calendar date with no time or zone (2025-07-04)
  - ClockTime: A wall-clock time with no date or zone (19:00)
  - Instant(): date + clock + zone -> absolute time.Time in UTC

DESIGN PRINCIPLES:
  1. DST correctness: conversion always goes through time.Date with the
     venue *time.Location. Naive "UTC + fixed offset" arithmetic is wrong
     twice a year and is deliberately impossible to express here.
  2. Strict formats: dates are ISO-8601 YYYY-MM-DD, times are HH:MM.
     Anything else is ErrInvalidTimeFormat, surfaced immediately.

USAGE:
  d, _ := clock.ParseDate("2025-07-04")
  t, _ := clock.ParseClock("19:00")
  start := clock.Instant(d, t, venueZone) // UTC instant

SEE ALSO:
  - window.go: Window derivation and overlap testing
  - payroll: consumes instants for shift/session hours
  - tables: consumes windows for availability and moves
*/
package clock

import (
	"fmt"
	"time"
)

// =============================================================================
// CIVIL DATE - Calendar date without time or zone
// =============================================================================

type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses an ISO-8601 YYYY-MM-DD string.
func ParseDate(s string) (CivilDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CivilDate{}, &FormatError{Input: s, Want: "YYYY-MM-DD"}
	}
	return CivilDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func MustDate(s string) CivilDate {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d CivilDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// DateOf extracts the civil date of t in the given zone.
func DateOf(t time.Time, loc *time.Location) CivilDate {
	lt := t.In(loc)
	return CivilDate{Year: lt.Year(), Month: lt.Month(), Day: lt.Day()}
}

// =============================================================================
// CLOCK TIME - Wall-clock time without date or zone
// =============================================================================

type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses an HH:MM string (24-hour).
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, &FormatError{Input: s, Want: "HH:MM"}
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func MustClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// =============================================================================
// CONVERSION - Civil date + clock + zone -> absolute instant
// =============================================================================

// Instant converts a civil date and local clock time to an absolute UTC
// instant using the venue zone's offset rules. Across a DST transition the
// result reflects the zone's actual offset on that date, which is the whole
// point of routing every conversion through here.
func Instant(d CivilDate, c ClockTime, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc).UTC()
}

// ParseInstant parses a "YYYY-MM-DD" + "HH:MM" pair in one step.
func ParseInstant(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	c, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return Instant(d, c, loc), nil
}

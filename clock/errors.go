package clock

import (
	"errors"
	"fmt"
)

// ErrInvalidTimeFormat is returned when a date is not YYYY-MM-DD or a clock
// time is not HH:MM. Use errors.Is; the concrete *FormatError carries the
// offending input.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// FormatError reports a malformed date or clock string.
type FormatError struct {
	Input string
	Want  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid time format: %q (want %s)", e.Input, e.Want)
}

func (e *FormatError) Unwrap() error { return ErrInvalidTimeFormat }

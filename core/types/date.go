// Package types - Shared value types for the dose calculator.
package types

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the exchange format for calendar dates (month/day/year).
// Leading zeros are optional when parsing.
const DateLayout = "1/2/2006"

// displayLayout always pads month and day.
const displayLayout = "01/02/2006"

// Date is a calendar date with day granularity and no time zone.
type Date struct {
	t time.Time
}

// NewDate builds a date from its components
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date in the timestamp's location
func DateOf(ts time.Time) Date {
	y, m, d := ts.Date()
	return NewDate(y, m, d)
}

// Today returns the local calendar date
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a m/d/Y date
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected month/day/year: %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParseDate parses a date and panics on failure. For fixtures and seeds.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

// DaysSince returns the whole days elapsed from earlier to d.
// Negative when earlier is after d.
func (d Date) DaysSince(earlier Date) int {
	return int((d.t.Unix() - earlier.t.Unix()) / 86400)
}

// AddDays returns the date n days later
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// String renders the date as mm/dd/yyyy
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(displayLayout)
}

// MarshalText implements encoding.TextMarshaler
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

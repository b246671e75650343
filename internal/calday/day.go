// Package calday provides a day-granularity date value. A Day carries only
// year, month and day-of-month, so two Days compare equal exactly when they
// name the same calendar day, whatever time-of-day or offset they came from.
package calday

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical text form of a Day.
const Layout = "2006-01-02"

// Day is a calendar day. The zero value is not a valid day; use IsZero to test for it.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// New builds a Day, normalizing out-of-range values the way time.Date does
// (day 0 is the last day of the previous month, month 13 is January of the next year).
func New(year int, month time.Month, day int) Day {
	t := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Of returns the calendar day of t as observed in loc.
func Of(t time.Time, loc *time.Location) Day {
	if loc != nil {
		t = t.In(loc)
	}
	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Today returns the current day in loc.
func Today(loc *time.Location) Day {
	return Of(time.Now(), loc)
}

// Parse reads either a bare date (2006-01-02) or an RFC3339 timestamp.
// Timestamps are converted into loc before the time-of-day is dropped.
func Parse(s string, loc *time.Location) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(Layout, s); err == nil {
		return Day{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", s)
	}
	return Of(t, loc), nil
}

// MustParse is Parse for literals in tests and fixtures; it panics on error.
func MustParse(s string) Day {
	d, err := Parse(s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d == Day{}
}

// Time returns midnight of d in loc.
func (d Day) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the day n days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	return New(d.Year, d.Month, d.Day+n)
}

// Weekday returns the day of the week, Sunday = 0.
func (d Day) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

// Compare returns -1, 0 or +1.
func (d Day) Compare(o Day) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func (d Day) Before(o Day) bool { return d.Compare(o) < 0 }
func (d Day) After(o Day) bool  { return d.Compare(o) > 0 }
func (d Day) Equal(o Day) bool  { return d == o }

// String formats d as YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON encodes d as a YYYY-MM-DD string.
func (d Day) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a YYYY-MM-DD or RFC3339 string. RFC3339 values are
// truncated in UTC; callers that care about a local reference should parse
// the raw string with Parse instead.
func (d *Day) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Day{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s, time.UTC)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer. Days are stored as YYYY-MM-DD text so the
// database compares them lexically without timezone drift.
func (d Day) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Day) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := Parse(v, time.UTC)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		return d.Scan(string(v))
	case time.Time:
		*d = Day{Year: v.Year(), Month: v.Month(), Day: v.Day()}
	case nil:
		*d = Day{}
	default:
		return fmt.Errorf("cannot scan %T into calday.Day", src)
	}
	return nil
}

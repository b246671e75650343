package calday

import (
	"fmt"
	"time"
)

// Range is an inclusive span of days. A nil bound is open.
type Range struct {
	Start *Day
	End   *Day
}

// Between returns the closed range [start, end].
func Between(start, end Day) Range {
	return Range{Start: &start, End: &end}
}

// Contains reports whether d falls inside r.
func (r Range) Contains(d Day) bool {
	if r.Start != nil && d.Before(*r.Start) {
		return false
	}
	if r.End != nil && d.After(*r.End) {
		return false
	}
	return true
}

// Days lists every day of a closed range. Open ranges yield nil.
func (r Range) Days() []Day {
	if r.Start == nil || r.End == nil {
		return nil
	}
	var out []Day
	for d := *r.Start; !d.After(*r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

func (r Range) String() string {
	bound := func(d *Day) string {
		if d == nil {
			return "*"
		}
		return d.String()
	}
	return fmt.Sprintf("[%s, %s]", bound(r.Start), bound(r.End))
}

// ParseRange reads optional start/end strings. Empty strings leave the bound open.
func ParseRange(start, end string, loc *time.Location) (Range, error) {
	var r Range
	if start != "" {
		d, err := Parse(start, loc)
		if err != nil {
			return Range{}, fmt.Errorf("startDate: %w", err)
		}
		r.Start = &d
	}
	if end != "" {
		d, err := Parse(end, loc)
		if err != nil {
			return Range{}, fmt.Errorf("endDate: %w", err)
		}
		r.End = &d
	}
	return r, nil
}

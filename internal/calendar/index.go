package calendar

import (
	"time"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/menu"
)

// Index resolves a calendar day to its menu entry. It is built once per
// fetch and never modified afterwards.
type Index struct {
	byDay map[calday.Day]menu.Entry
}

// NewIndex builds an index from entries in any order. If two entries share a
// day the later one in the slice wins; the store never returns such a pair.
func NewIndex(entries []menu.Entry) *Index {
	idx := &Index{byDay: make(map[calday.Day]menu.Entry, len(entries))}
	for _, e := range entries {
		idx.byDay[e.Date] = e
	}
	return idx
}

// Lookup returns the entry for day, if any.
func (idx *Index) Lookup(day calday.Day) (menu.Entry, bool) {
	if idx == nil {
		return menu.Entry{}, false
	}
	e, ok := idx.byDay[day]
	return e, ok
}

// LookupTime normalizes t to its calendar day in loc before looking it up.
func (idx *Index) LookupTime(t time.Time, loc *time.Location) (menu.Entry, bool) {
	return idx.Lookup(calday.Of(t, loc))
}

// Len reports the number of indexed days.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byDay)
}

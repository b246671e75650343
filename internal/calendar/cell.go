package calendar

import (
	"meal-calendar/internal/calday"
	"meal-calendar/internal/menu"
)

// Cell is one rendered calendar square.
type Cell struct {
	Day          calday.Day  `json:"date"`
	InFocalMonth bool        `json:"inFocalMonth"`
	IsToday      bool        `json:"isToday"`
	Entry        *menu.Entry `json:"entry,omitempty"`
}

// BindMonth pairs every day of the month grid with its entry.
func BindMonth(m Month, idx *Index, today calday.Day) []Cell {
	grid := MonthGrid(m.Year, m.Month)
	return bind(grid[:], idx, today, func(d calday.Day) bool {
		return d.Year == m.Year && d.Month == m.Month
	})
}

// BindWeek pairs every day of the week grid with its entry. All seven days
// count as focal.
func BindWeek(anchor calday.Day, idx *Index, today calday.Day) []Cell {
	grid := WeekGrid(anchor)
	return bind(grid[:], idx, today, func(calday.Day) bool { return true })
}

func bind(days []calday.Day, idx *Index, today calday.Day, focal func(calday.Day) bool) []Cell {
	cells := make([]Cell, len(days))
	for i, d := range days {
		cells[i] = Cell{Day: d, InFocalMonth: focal(d), IsToday: d == today}
		if e, ok := idx.Lookup(d); ok {
			cells[i].Entry = &e
		}
	}
	return cells
}

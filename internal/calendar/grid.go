// Package calendar lays out month and week grids, binds menu entries to
// their cells, and drives the calendar view as a pure state machine.
package calendar

import (
	"time"

	"meal-calendar/internal/calday"
)

const (
	// MonthCells is six full Sunday-to-Saturday weeks.
	MonthCells = 42
	// WeekCells is one Sunday-to-Saturday week.
	WeekCells = 7
)

// MonthGrid returns the 42 days shown for a month. Leading days come from the
// previous month (as many as the weekday of the 1st) and trailing days from
// the next.
func MonthGrid(year int, month time.Month) [MonthCells]calday.Day {
	first := calday.New(year, month, 1)
	start := first.AddDays(-int(first.Weekday()))

	var grid [MonthCells]calday.Day
	for i := range grid {
		grid[i] = start.AddDays(i)
	}
	return grid
}

// WeekGrid returns the Sunday-to-Saturday week containing anchor.
func WeekGrid(anchor calday.Day) [WeekCells]calday.Day {
	start := anchor.AddDays(-int(anchor.Weekday()))

	var grid [WeekCells]calday.Day
	for i := range grid {
		grid[i] = start.AddDays(i)
	}
	return grid
}

// MonthRange is the inclusive span covered by MonthGrid(year, month).
func MonthRange(year int, month time.Month) calday.Range {
	g := MonthGrid(year, month)
	return calday.Between(g[0], g[MonthCells-1])
}

// WeekRange is the inclusive span covered by WeekGrid(anchor).
func WeekRange(anchor calday.Day) calday.Range {
	g := WeekGrid(anchor)
	return calday.Between(g[0], g[WeekCells-1])
}

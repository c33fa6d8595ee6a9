// Package calendar builds fixed six-week month grids.
package calendar

import (
	"fmt"
	"time"
)

// GridSize is the number of cells in a month grid: six weeks of seven days.
const GridSize = 42

// Day is one cell of a month grid.
type Day struct {
	Date    time.Time `json:"date"`
	InMonth bool      `json:"in_month"`
	IsToday bool      `json:"is_today"`
}

// Key returns the cell's date as YYYY-MM-DD.
func (d Day) Key() string {
	return d.Date.Format(time.DateOnly)
}

// Days returns the 42 cells for month of year, starting on the weekStart day
// on or before the first of the month. today marks IsToday; pass the zero
// time to leave every cell unmarked. Dates are midnight UTC.
func Days(year int, month time.Month, weekStart time.Weekday, today time.Time) ([]Day, error) {
	first, err := firstOfMonth(year, month)
	if err != nil {
		return nil, err
	}
	start := gridStart(first, weekStart)

	todayKey := ""
	if !today.IsZero() {
		todayKey = today.UTC().Format(time.DateOnly)
	}

	days := make([]Day, GridSize)
	for i := range days {
		date := start.AddDate(0, 0, i)
		days[i] = Day{
			Date:    date,
			InMonth: date.Month() == month && date.Year() == year,
			IsToday: todayKey != "" && date.Format(time.DateOnly) == todayKey,
		}
	}
	return days, nil
}

// Range returns the first grid date and the instant just after the last grid
// date, suitable for half-open range queries.
func Range(year int, month time.Month, weekStart time.Weekday) (time.Time, time.Time, error) {
	first, err := firstOfMonth(year, month)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := gridStart(first, weekStart)
	return start, start.AddDate(0, 0, GridSize), nil
}

// DaysInMonth returns the number of days in month of year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func firstOfMonth(year int, month time.Month) (time.Time, error) {
	if month < time.January || month > time.December {
		return time.Time{}, fmt.Errorf("invalid month %d", month)
	}
	if year < 1 || year > 9999 {
		return time.Time{}, fmt.Errorf("invalid year %d", year)
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), nil
}

func gridStart(first time.Time, weekStart time.Weekday) time.Time {
	offset := (int(first.Weekday()) - int(weekStart) + 7) % 7
	return first.AddDate(0, 0, -offset)
}

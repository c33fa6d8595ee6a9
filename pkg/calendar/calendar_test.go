package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysAlwaysFortyTwo(t *testing.T) {
	for year := 2023; year <= 2026; year++ {
		for month := time.January; month <= time.December; month++ {
			for _, ws := range []time.Weekday{time.Sunday, time.Monday} {
				days, err := Days(year, month, ws, time.Time{})
				require.NoError(t, err)
				require.Len(t, days, GridSize)

				inMonth := 0
				for i, d := range days {
					if d.InMonth {
						inMonth++
						assert.Equal(t, inMonth, d.Date.Day(), "in-month cells must run 1..n in order")
					}
					if i > 0 {
						assert.Equal(t, 24*time.Hour, d.Date.Sub(days[i-1].Date))
					}
				}
				assert.Equal(t, DaysInMonth(year, month), inMonth, "%d-%02d", year, month)
				assert.Equal(t, ws, days[0].Date.Weekday())
			}
		}
	}
}

func TestDaysStartsOnWeekStart(t *testing.T) {
	// 1 March 2026 is a Sunday.
	days, err := Days(2026, time.March, time.Sunday, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", days[0].Key())
	assert.True(t, days[0].InMonth)

	days, err = Days(2026, time.March, time.Monday, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "2026-02-23", days[0].Key())
	assert.False(t, days[0].InMonth)
}

func TestDaysMarksToday(t *testing.T) {
	today := time.Date(2026, time.February, 14, 15, 30, 0, 0, time.UTC)
	days, err := Days(2026, time.February, time.Sunday, today)
	require.NoError(t, err)

	marked := 0
	for _, d := range days {
		if d.IsToday {
			marked++
			assert.Equal(t, "2026-02-14", d.Key())
		}
	}
	assert.Equal(t, 1, marked)
}

func TestDaysLeapFebruary(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 28, DaysInMonth(2026, time.February))
}

func TestInvalidMonth(t *testing.T) {
	_, err := Days(2026, 13, time.Sunday, time.Time{})
	assert.Error(t, err)
	_, _, err = Range(2026, 0, time.Sunday)
	assert.Error(t, err)
}

func TestRange(t *testing.T) {
	from, to, err := Range(2026, time.March, time.Sunday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, time.April, 12, 0, 0, 0, 0, time.UTC), to)
}

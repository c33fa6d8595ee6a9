// Package timefmt renders timestamps for activity feeds.
package timefmt

import (
	"fmt"
	"time"
)

const absoluteAfter = 30 * 24 * time.Hour

// Relative describes t relative to now: "just now", "5 minutes ago",
// "in 3 hours". Differences of 30 days or more fall back to "Jan 2, 2006".
func Relative(t, now time.Time) string {
	diff := now.Sub(t)
	future := diff < 0
	if future {
		diff = -diff
	}

	if diff < time.Minute {
		return "just now"
	}
	if diff >= absoluteAfter {
		return t.Format("Jan 2, 2006")
	}

	var n int
	var unit string
	switch {
	case diff < time.Hour:
		n, unit = int(diff/time.Minute), "minute"
	case diff < 24*time.Hour:
		n, unit = int(diff/time.Hour), "hour"
	default:
		n, unit = int(diff/(24*time.Hour)), "day"
	}
	if n != 1 {
		unit += "s"
	}
	if future {
		return fmt.Sprintf("in %d %s", n, unit)
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

package history

import (
	"fmt"
	"time"
)

// FormatDate renders a point's timestamp for display. The granularity tracks
// the period's hours-per-step: sub-hour steps show minutes, sub-month steps
// show the day, monthly steps show month and year, anything longer the year.
func FormatDate(timestampMillis int64, hoursPerStep float64) string {
	t := time.UnixMilli(timestampMillis).UTC()

	if hoursPerStep <= 1 {
		if hoursPerStep >= 1 {
			return t.Format("3 PM")
		}
		return t.Format("3:04 PM")
	}

	if hoursPerStep < 24*30 {
		return t.Format("Jan 02")
	}

	if hoursPerStep == 24*30 {
		return fmt.Sprintf("%s %s", t.Format("Jan"), t.Format("06"))
	}

	return t.Format("2006")
}

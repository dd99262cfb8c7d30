// Package time holds the calendar-day helpers the CLI, API and scheduler share
package time

import (
	"fmt"
	"time"
)

// DayLayout is the calendar-day format used by CLI flags and API params
const DayLayout = "2006-01-02"

// StartOfDay returns local midnight of t's day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDay parses YYYY-MM-DD as midnight in loc (UTC when nil)
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("day %q: want %s", s, DayLayout)
	}
	return t, nil
}

// Days lists the midnights of every calendar day in [from, to)
// days are stepped with AddDate so DST days stay aligned to midnight
func Days(from, to time.Time) []time.Time {
	var out []time.Time
	for d := StartOfDay(from); d.Before(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}


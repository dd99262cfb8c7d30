package time

import (
	"testing"
	"time"
)

func TestStartOfDayAndDays(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	at := time.Date(2025, 3, 8, 15, 4, 5, 0, ny)
	if got := StartOfDay(at); got.Hour() != 0 || got.Day() != 8 || got.Location() != ny {
		t.Fatalf("StartOfDay = %v", got)
	}

	// spans the spring-forward day
	days := Days(at, time.Date(2025, 3, 11, 0, 0, 0, 0, ny))
	if len(days) != 3 {
		t.Fatalf("days = %v", days)
	}
	for _, d := range days {
		if d.Hour() != 0 {
			t.Fatalf("day %v not at midnight", d)
		}
	}
	if days[1].Sub(days[0]) != 24*time.Hour || days[2].Sub(days[1]) != 23*time.Hour {
		t.Fatalf("DST day length not honored: %v", days)
	}
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2025-03-04", nil)
	if err != nil || !d.Equal(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDay = %v, %v", d, err)
	}
	if _, err := ParseDay("03/04/2025", time.UTC); err == nil {
		t.Fatalf("expected layout error")
	}
}

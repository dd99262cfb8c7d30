// Package segment groups screen events into usage sessions separated by idle gaps
package segment

import (
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
)

// DefaultGap is the idle threshold used when a caller has no study-specific value
const DefaultGap = 60 * time.Second

// UnknownApp is the dominant app of a session whose events carry no app name
const UnknownApp = "Unknown"

// Session is a maximal run of events with no gap above the threshold
// From and To are the half-open event indices [From, To) into the input
type Session struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes float64   `json:"duration_minutes"`
	DominantApp     string    `json:"dominant_app"`
	From            int       `json:"from"`
	To              int       `json:"to"`
	Events          int       `json:"events"`
}

// Segment splits events into sessions; a gap strictly greater than gap breaks a session
func Segment(events streams.ScreenStream, gap time.Duration) ([]Session, error) {
	if gap < 0 {
		return nil, perr.WithField(perr.InvalidArgf("gap must not be negative, got %s", gap), "gap")
	}
	if err := events.Validate(); err != nil {
		return nil, err
	}
	pts := events.Points
	if len(pts) == 0 {
		return []Session{}, nil
	}

	var out []Session
	from := 0
	for i := 1; i <= len(pts); i++ {
		if i < len(pts) && pts[i].At.Sub(pts[i-1].At) <= gap {
			continue
		}
		out = append(out, build(pts, from, i))
		from = i
	}
	return out, nil
}

func build(pts []timeseries.Point[streams.Screen], from, to int) Session {
	start, end := pts[from].At, pts[to-1].At
	return Session{
		Start:           start,
		End:             end,
		DurationMinutes: end.Sub(start).Minutes(),
		DominantApp:     dominant(pts[from:to]),
		From:            from,
		To:              to,
		Events:          to - from,
	}
}

// dominant picks the most frequent non-empty app; ties go to the first seen
func dominant(pts []timeseries.Point[streams.Screen]) string {
	counts := make(map[string]int, 4)
	best, bestN := "", 0
	for _, p := range pts {
		if p.Val.App == "" {
			continue
		}
		counts[p.Val.App]++
	}
	// second pass in arrival order so the first app to reach the max wins
	for _, p := range pts {
		if n := counts[p.Val.App]; p.Val.App != "" && n > bestN {
			best, bestN = p.Val.App, n
		}
	}
	if best == "" {
		return UnknownApp
	}
	return best
}

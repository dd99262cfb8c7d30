// Package summary holds descriptive per-participant rollups built on the core streams
package summary

import (
	"sort"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/segment"
	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"

	"github.com/montanaflynn/stats"
)

// Count is a named tally
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Usage is the app usage rollup of a screen stream
type Usage struct {
	Total      int     `json:"total"`
	TopApps    []Count `json:"top_apps"`
	Categories []Count `json:"categories"`
	Hourly     [24]int `json:"hourly"`
}

// AppUsage counts screen events per app, per canonical category and per local hour
// top keeps the n most used apps; n <= 0 keeps all
func AppUsage(s streams.ScreenStream, top int) Usage {
	u := Usage{Total: s.Len()}
	apps := map[string]int{}
	cats := map[string]int{}
	for _, p := range s.Points {
		if p.Val.App != "" {
			apps[p.Val.App]++
		}
		if c := streams.CanonicalCategory(p.Val.Category); c != "" {
			cats[c]++
		}
		u.Hourly[p.At.Hour()]++
	}
	u.TopApps = ranked(apps)
	if top > 0 && len(u.TopApps) > top {
		u.TopApps = u.TopApps[:top]
	}
	u.Categories = ranked(cats)
	return u
}

// ranked orders by count descending then name
func ranked(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Activity is the step rollup of one stream
type Activity struct {
	TotalSteps       float64          `json:"total_steps"`
	ActiveHours      int              `json:"active_hours"`
	MeanStepsPerHour timeseries.Value `json:"mean_steps_per_hour"`
}

// DailyActivity sums steps and averages them over every hour between the first
// and last sample, counting hours with no steps as zero
func DailyActivity(s streams.StepsStream) (Activity, error) {
	if err := s.Validate(); err != nil {
		return Activity{}, err
	}
	var a Activity
	if s.Empty() {
		return a, nil
	}
	first, last, _ := s.Span()
	origin := timeseries.Floor(first, time.Hour)
	hours := make([]float64, timeseries.Bucket(last, origin, time.Hour)+1)
	for _, p := range s.Points {
		hours[timeseries.Bucket(p.At, origin, time.Hour)] += p.Val.Count
		a.TotalSteps += p.Val.Count
	}
	for _, h := range hours {
		if h > 0 {
			a.ActiveHours++
		}
	}
	if m, err := stats.Mean(hours); err == nil {
		a.MeanStepsPerHour = timeseries.Some(m)
	}
	return a, nil
}

// AppMinutes is the session time attributed to one app
type AppMinutes struct {
	App      string  `json:"app"`
	Minutes  float64 `json:"minutes"`
	Sessions int     `json:"sessions"`
}

// AppTime attributes each session's duration to its dominant app
// ordered by minutes descending then app name
func AppTime(sessions []segment.Session) []AppMinutes {
	idx := map[string]int{}
	var out []AppMinutes
	for _, s := range sessions {
		i, ok := idx[s.DominantApp]
		if !ok {
			i = len(out)
			idx[s.DominantApp] = i
			out = append(out, AppMinutes{App: s.DominantApp})
		}
		out[i].Minutes += s.DurationMinutes
		out[i].Sessions++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Minutes != out[j].Minutes {
			return out[i].Minutes > out[j].Minutes
		}
		return out[i].App < out[j].App
	})
	return out
}

// ContextRow is one bucket of movement and mobility context
type ContextRow struct {
	Start          time.Time        `json:"start"`
	MovementMean   timeseries.Value `json:"movement_mean"`
	MovementStd    timeseries.Value `json:"movement_std"`
	LocationChange timeseries.Value `json:"location_change_m"`
}

// Context buckets motion magnitude and mean position at step
// LocationChange is the distance between this bucket's mean position and the
// previous bucket's; it has no value when either bucket lacks a fix
func Context(motion streams.MotionStream, loc streams.LocationStream, step time.Duration) ([]ContextRow, error) {
	if err := timeseries.CheckStep(step); err != nil {
		return nil, err
	}
	if err := motion.Validate(); err != nil {
		return nil, err
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	mf, ml, mok := motion.Span()
	lf, ll, lok := loc.Span()
	var lo, hi time.Time
	switch {
	case mok && lok:
		lo, hi = minTime(mf, lf), maxTime(ml, ll)
	case mok:
		lo, hi = mf, ml
	case lok:
		lo, hi = lf, ll
	default:
		return []ContextRow{}, nil
	}
	origin := timeseries.Floor(lo, step)
	if err := timeseries.CheckCount(int64(hi.Sub(origin)/step)+1, timeseries.MaxBuckets, "buckets"); err != nil {
		return nil, err
	}
	n := timeseries.Bucket(hi, origin, step) + 1

	mags := make([][]float64, n)
	for _, p := range motion.Points {
		b := timeseries.Bucket(p.At, origin, step)
		mags[b] = append(mags[b], p.Val.Magnitude())
	}
	lat := make([][]float64, n)
	lon := make([][]float64, n)
	for _, p := range loc.Points {
		b := timeseries.Bucket(p.At, origin, step)
		lat[b] = append(lat[b], p.Val.Lat)
		lon[b] = append(lon[b], p.Val.Lon)
	}

	out := make([]ContextRow, n)
	var prev *streams.Location
	for b := range out {
		r := ContextRow{Start: origin.Add(time.Duration(b) * step)}
		if len(mags[b]) > 0 {
			m, _ := stats.Mean(mags[b])
			r.MovementMean = timeseries.Some(m)
		}
		if len(mags[b]) > 1 {
			sd, _ := stats.StandardDeviationSample(mags[b])
			r.MovementStd = timeseries.Some(sd)
		}
		var cur *streams.Location
		if len(lat[b]) > 0 {
			la, _ := stats.Mean(lat[b])
			ln, _ := stats.Mean(lon[b])
			cur = &streams.Location{Lat: la, Lon: ln}
		}
		if cur != nil && prev != nil {
			r.LocationChange = timeseries.Some(prev.DistanceTo(*cur))
		}
		prev = cur
		out[b] = r
	}
	return out, nil
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

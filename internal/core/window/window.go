// Package window cuts a time range into fixed windows and summarizes every
// stream inside each one into a flat feature row with an optional label
package window

import (
	"sort"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
)

// Range is the half-open extraction interval [Start, End)
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Feature is one named statistic of a window
type Feature struct {
	Name  string           `json:"name"`
	Value timeseries.Value `json:"value"`
}

// FeatureWindow is one row of the feature table
type FeatureWindow struct {
	Participant string           `json:"participant,omitempty"`
	Start       time.Time        `json:"start"`
	End         time.Time        `json:"end"`
	Features    []Feature        `json:"features"`
	Label       int              `json:"label"`
	HasLabel    bool             `json:"has_label"`
	RawLabel    timeseries.Value `json:"raw_label"`
	HourOfDay   int              `json:"hour_of_day"`
	DayOfWeek   int              `json:"day_of_week"`
}

// Get looks a feature up by name
func (w FeatureWindow) Get(name string) (timeseries.Value, bool) {
	for _, f := range w.Features {
		if f.Name == name {
			return f.Value, true
		}
	}
	return timeseries.None(), false
}

// Weekday maps Monday to 0 and Sunday to 6
func Weekday(t time.Time) int { return (int(t.Weekday()) + 6) % 7 }

// Extract summarizes streams over consecutive windows of width freq covering r
// the last window is clipped to r.End; labels come from the most recent survey
// response inside each window passed through rule
func Extract(r Range, freq time.Duration, in map[string]streams.Stream, labels streams.SurveyStream, rule LabelRule) ([]FeatureWindow, error) {
	if err := timeseries.CheckStep(freq); err != nil {
		return nil, err
	}
	if r.End.Before(r.Start) {
		return nil, perr.WithField(perr.InvalidArgf("range end %s precedes start %s",
			r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339)), "range")
	}
	if err := labels.Validate(); err != nil {
		return nil, perr.WithField(err, "labels")
	}
	if rule == nil && labels.Len() > 0 {
		return nil, perr.WithField(perr.InvalidArgf("labels given without a label rule"), "rule")
	}

	cells := timeseries.Cells(r.End.Sub(r.Start), freq)
	if err := timeseries.CheckCount(cells, timeseries.MaxWindows, "windows"); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(in))
	for name, s := range in {
		if s == nil {
			continue
		}
		if err := s.Validate(); err != nil {
			return nil, perr.WithField(err, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	n := int(cells)
	out := make([]FeatureWindow, 0, n)
	for i := 0; i < n; i++ {
		start := r.Start.Add(time.Duration(i) * freq)
		end := start.Add(freq)
		if end.After(r.End) {
			end = r.End
		}
		w := FeatureWindow{
			Start:     start,
			End:       end,
			Label:     NoLabel,
			HourOfDay: start.Hour(),
			DayOfWeek: Weekday(start),
		}
		for _, name := range names {
			w.Features = append(w.Features, features(name, in[name], start, end)...)
		}
		if pts := labels.Range(start, end); len(pts) > 0 {
			raw := pts[len(pts)-1].Val.Label
			w.RawLabel = timeseries.Some(raw)
			w.Label = rule(raw)
			w.HasLabel = true
		}
		out = append(out, w)
	}
	return out, nil
}

// Participant bundles one participant's inputs for ExtractAll
type Participant struct {
	ID      string
	Range   Range
	Streams map[string]streams.Stream
	Labels  streams.SurveyStream
}

// ExtractAll runs Extract per participant; output is grouped by participant ID
// in ascending order, then by time
func ExtractAll(ps []Participant, freq time.Duration, rule LabelRule) ([]FeatureWindow, error) {
	sorted := append([]Participant(nil), ps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var out []FeatureWindow
	for _, p := range sorted {
		ws, err := Extract(p.Range, freq, p.Streams, p.Labels, rule)
		if err != nil {
			return nil, perr.WithOp(err, "participant "+p.ID)
		}
		for i := range ws {
			ws[i].Participant = p.ID
		}
		out = append(out, ws...)
	}
	return out, nil
}

// features computes the per-variant statistics of one stream for [start, end)
func features(name string, s streams.Stream, start, end time.Time) []Feature {
	f := func(stat string, v timeseries.Value) Feature { return Feature{Name: name + "_" + stat, Value: v} }

	switch v := streams.Deref(s).(type) {
	case streams.ScreenStream:
		pts := v.Range(start, end)
		apps := make(map[string]struct{}, len(pts))
		cats := make(map[string]struct{}, len(pts))
		for _, p := range pts {
			if p.Val.App != "" {
				apps[p.Val.App] = struct{}{}
			}
			if c := streams.CanonicalCategory(p.Val.Category); c != "" {
				cats[c] = struct{}{}
			}
		}
		return []Feature{
			f("count", timeseries.Count(len(pts))),
			f("unique_apps", timeseries.Count(len(apps))),
			f("unique_categories", timeseries.Count(len(cats))),
		}
	case streams.MotionStream:
		xs := values(v.Range(start, end), streams.Motion.Magnitude)
		return []Feature{f("mean", mean(xs)), f("std", std(xs)), f("max", maxOf(xs))}
	case streams.HeartRateStream:
		xs := values(v.Range(start, end), func(h streams.HeartRate) float64 { return h.BPM })
		return []Feature{f("mean", mean(xs)), f("std", std(xs)), f("max", maxOf(xs))}
	case streams.StepsStream:
		xs := values(v.Range(start, end), func(s streams.Steps) float64 { return s.Count })
		return []Feature{f("sum", sum(xs))}
	case streams.LocationStream:
		pts := v.Range(start, end)
		lat := values(pts, func(l streams.Location) float64 { return l.Lat })
		lon := values(pts, func(l streams.Location) float64 { return l.Lon })
		disp := timeseries.None()
		if len(pts) > 0 {
			a, b := pts[0].Val, pts[len(pts)-1].Val
			disp = timeseries.Some(a.DistanceTo(b))
		}
		return []Feature{f("lat_mean", mean(lat)), f("lon_mean", mean(lon)), f("displacement_m", disp)}
	case streams.SurveyStream:
		pts := v.Range(start, end)
		xs := values(pts, func(s streams.Survey) float64 { return s.Label })
		return []Feature{f("mean", mean(xs)), f("count", timeseries.Count(len(pts)))}
	default:
		return nil
	}
}

func values[T any](pts []timeseries.Point[T], get func(T) float64) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = get(p.Val)
	}
	return out
}

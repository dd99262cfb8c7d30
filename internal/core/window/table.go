package window

import (
	"strconv"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
)

// Columns that precede and follow the feature columns of every table
var (
	LeadColumns  = []string{"participant", "window_start", "window_end", "hour_of_day", "day_of_week"}
	TrailColumns = []string{"raw_label", "label", "has_label"}
)

// Table is a flat view of windows with one stable column set
type Table struct {
	Features []string
	Windows  []FeatureWindow
}

// NewTable collects feature names in first-seen order so every row shares one schema
func NewTable(ws []FeatureWindow) Table {
	seen := make(map[string]struct{})
	t := Table{Windows: ws}
	for _, w := range ws {
		for _, f := range w.Features {
			if _, ok := seen[f.Name]; ok {
				continue
			}
			seen[f.Name] = struct{}{}
			t.Features = append(t.Features, f.Name)
		}
	}
	return t
}

// Header is the full column list
func (t Table) Header() []string {
	h := make([]string, 0, len(LeadColumns)+len(t.Features)+len(TrailColumns))
	h = append(h, LeadColumns...)
	h = append(h, t.Features...)
	return append(h, TrailColumns...)
}

// Values returns row i's features aligned to t.Features; missing ones are absent
func (t Table) Values(i int) []timeseries.Value {
	w := t.Windows[i]
	idx := make(map[string]timeseries.Value, len(w.Features))
	for _, f := range w.Features {
		idx[f.Name] = f.Value
	}
	out := make([]timeseries.Value, len(t.Features))
	for j, name := range t.Features {
		out[j] = idx[name]
	}
	return out
}

// Record renders row i as strings in Header order; absent values are empty
func (t Table) Record(i int) []string {
	w := t.Windows[i]
	rec := make([]string, 0, len(LeadColumns)+len(t.Features)+len(TrailColumns))
	rec = append(rec,
		w.Participant,
		w.Start.Format(time.RFC3339),
		w.End.Format(time.RFC3339),
		strconv.Itoa(w.HourOfDay),
		strconv.Itoa(w.DayOfWeek),
	)
	for _, v := range t.Values(i) {
		rec = append(rec, v.String())
	}
	return append(rec, w.RawLabel.String(), strconv.Itoa(w.Label), strconv.FormatBool(w.HasLabel))
}

// Len is the number of rows
func (t Table) Len() int { return len(t.Windows) }

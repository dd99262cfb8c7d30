package service

import (
	"strconv"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/align"
	"github.com/open-sensor-research-platform/osrp/internal/core/segment"
	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
	"github.com/open-sensor-research-platform/osrp/internal/core/window"
	"github.com/open-sensor-research-platform/osrp/internal/services/export/domain"
)

func cell(v timeseries.Value) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

// windowRows adds typed cells to a window table
type windowRows struct{ window.Table }

// Windows views a feature table as export rows
func Windows(t window.Table) domain.Rows { return windowRows{t} }

func (r windowRows) Cells(i int) []any {
	w := r.Windows[i]
	out := []any{w.Participant, w.Start, w.End, w.HourOfDay, w.DayOfWeek}
	for _, v := range r.Values(i) {
		out = append(out, cell(v))
	}
	return append(out, cell(w.RawLabel), w.Label, w.HasLabel)
}

// frameRows is an aligned frame with a leading participant and timestamp
type frameRows struct {
	participant string
	f           align.Frame
}

// Frame views an aligned frame as export rows
func Frame(participant string, f align.Frame) domain.Rows { return frameRows{participant, f} }

func (r frameRows) Header() []string {
	return append([]string{"participant", "timestamp"}, r.f.Columns...)
}

func (r frameRows) Len() int { return r.f.Len() }

func (r frameRows) Record(i int) []string {
	rec := []string{r.participant, r.f.Index[i].Format(time.RFC3339)}
	for _, v := range r.f.Row(i) {
		rec = append(rec, v.String())
	}
	return rec
}

func (r frameRows) Cells(i int) []any {
	out := []any{r.participant, r.f.Index[i]}
	for _, v := range r.f.Row(i) {
		out = append(out, cell(v))
	}
	return out
}

// SessionColumns is the session export header
var SessionColumns = []string{"participant", "session_start", "session_end", "duration_minutes", "dominant_app", "events"}

type sessionRows struct {
	participant string
	ss          []segment.Session
}

// Sessions views screen sessions as export rows
func Sessions(participant string, ss []segment.Session) domain.Rows { return sessionRows{participant, ss} }

func (r sessionRows) Header() []string { return SessionColumns }

func (r sessionRows) Len() int { return len(r.ss) }

func (r sessionRows) Record(i int) []string {
	s := r.ss[i]
	return []string{
		r.participant,
		s.Start.Format(time.RFC3339),
		s.End.Format(time.RFC3339),
		strconv.FormatFloat(s.DurationMinutes, 'f', -1, 64),
		s.DominantApp,
		strconv.Itoa(s.Events),
	}
}

func (r sessionRows) Cells(i int) []any {
	s := r.ss[i]
	return []any{r.participant, s.Start, s.End, s.DurationMinutes, s.DominantApp, s.Events}
}

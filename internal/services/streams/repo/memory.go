package repo

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/repokit"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/services/streams/domain"
)

// Record is one exported reading as carried in JSON Lines fixtures
// only the fields of the record's stream kind are read
type Record struct {
	Participant string     `json:"participant"`
	Group       string     `json:"group,omitempty"`
	Stream      string     `json:"stream"`
	TS          *time.Time `json:"ts"`
	Source      string     `json:"source,omitempty"`

	App      string  `json:"app,omitempty"`
	Category string  `json:"category,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	Z        float64 `json:"z,omitempty"`
	Lat      float64 `json:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty"`
	Value    float64 `json:"value,omitempty"`
	Label    float64 `json:"label,omitempty"`
	SurveyID string  `json:"survey_id,omitempty"`
}

// Memory is an in-process StorageRepo over loaded records
// safe for concurrent reads once loaded
type Memory struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemory returns an empty in-memory repo
func NewMemory(recs ...Record) *Memory { return &Memory{records: recs} }

// Binder exposes the memory repo through the same binder seam as the stores
func (m *Memory) Binder() repokit.Binder[domain.StorageRepo] {
	return repokit.BindFunc[domain.StorageRepo](func(repokit.Queryer) domain.StorageRepo { return m })
}

// Add appends records
func (m *Memory) Add(recs ...Record) {
	m.mu.Lock()
	m.records = append(m.records, recs...)
	m.mu.Unlock()
}

// LoadJSONL reads one Record per line; blank lines are skipped
func LoadJSONL(r io.Reader) (*Memory, error) {
	m := NewMemory()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "fixture line %d", line)
		}
		if _, err := streams.ParseKind(rec.Stream); err != nil {
			return nil, perr.WithOp(err, "fixture line "+strconv.Itoa(line))
		}
		m.records = append(m.records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "read fixture")
	}
	return m, nil
}

func (m *Memory) match(q domain.Query, kind streams.Kind) (pts []Record, malformed int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.Participant != q.Participant || streams.Kind(strings.ToLower(r.Stream)) != kind {
			continue
		}
		if q.Source != "" && r.Source != q.Source {
			continue
		}
		if q.SurveyID != "" && r.SurveyID != q.SurveyID {
			continue
		}
		if r.TS == nil || r.TS.IsZero() {
			malformed++
			continue
		}
		if r.TS.Before(q.Start) || !r.TS.Before(q.End) {
			continue
		}
		pts = append(pts, r)
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].TS.Before(*pts[j].TS) })
	return pts, malformed
}

func batch[T any](recs []Record, malformed int, f func(Record) T) domain.Batch[T] {
	b := domain.Batch[T]{Malformed: malformed, Points: make([]timeseries.Point[T], len(recs))}
	for i, r := range recs {
		b.Points[i] = timeseries.Point[T]{At: *r.TS, Val: f(r)}
	}
	return b
}

// Screen implements domain.StorageRepo
func (m *Memory) Screen(_ context.Context, q domain.Query) (domain.Batch[streams.Screen], error) {
	recs, bad := m.match(q, streams.KindScreen)
	return batch(recs, bad, func(r Record) streams.Screen { return streams.Screen{App: r.App, Category: r.Category} }), nil
}

// Motion implements domain.StorageRepo
func (m *Memory) Motion(_ context.Context, q domain.Query) (domain.Batch[streams.Motion], error) {
	recs, bad := m.match(q, q.Kind)
	return batch(recs, bad, func(r Record) streams.Motion { return streams.Motion{X: r.X, Y: r.Y, Z: r.Z} }), nil
}

// HeartRate implements domain.StorageRepo
func (m *Memory) HeartRate(_ context.Context, q domain.Query) (domain.Batch[streams.HeartRate], error) {
	recs, bad := m.match(q, streams.KindHeartRate)
	return batch(recs, bad, func(r Record) streams.HeartRate { return streams.HeartRate{BPM: r.Value} }), nil
}

// Steps implements domain.StorageRepo
func (m *Memory) Steps(_ context.Context, q domain.Query) (domain.Batch[streams.Steps], error) {
	recs, bad := m.match(q, streams.KindSteps)
	return batch(recs, bad, func(r Record) streams.Steps { return streams.Steps{Count: r.Value} }), nil
}

// Location implements domain.StorageRepo
func (m *Memory) Location(_ context.Context, q domain.Query) (domain.Batch[streams.Location], error) {
	recs, bad := m.match(q, streams.KindLocation)
	return batch(recs, bad, func(r Record) streams.Location { return streams.Location{Lat: r.Lat, Lon: r.Lon} }), nil
}

// Survey implements domain.StorageRepo
func (m *Memory) Survey(_ context.Context, q domain.Query) (domain.Batch[streams.Survey], error) {
	recs, bad := m.match(q, streams.KindEMA)
	return batch(recs, bad, func(r Record) streams.Survey { return streams.Survey{Label: r.Label, SurveyID: r.SurveyID} }), nil
}

// Participants lists distinct participant ids seen in the records
func (m *Memory) Participants(_ context.Context, group string) ([]domain.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]*domain.Participant{}
	for _, r := range m.records {
		if r.Participant == "" {
			continue
		}
		p, ok := seen[r.Participant]
		if !ok {
			p = &domain.Participant{ID: r.Participant}
			seen[r.Participant] = p
		}
		if r.Group != "" {
			p.Group = r.Group
		}
		if r.TS != nil && (p.LastSeen == nil || r.TS.After(*p.LastSeen)) {
			ts := *r.TS
			p.LastSeen = &ts
		}
	}
	out := make([]domain.Participant, 0, len(seen))
	for _, p := range seen {
		if group == "" || p.Group == group {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

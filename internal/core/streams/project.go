package streams

import (
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
)

// Aggregate says how samples that share a bucket combine
type Aggregate uint8

const (
	// AggMean averages samples; an empty bucket has no value
	AggMean Aggregate = iota
	// AggSum adds samples; an empty bucket inside the stream's span is 0
	AggSum
	// AggCount counts samples; an empty bucket inside the stream's span is 0
	AggCount
)

func (a Aggregate) String() string {
	switch a {
	case AggSum:
		return "sum"
	case AggCount:
		return "count"
	default:
		return "mean"
	}
}

// Field is one numeric column a stream contributes to an aligned frame
type Field struct {
	Name string
	Agg  Aggregate
}

// Projection is the numeric view of a stream used for resampling
// Rows[i][j] holds Fields[j] for the sample at At[i]
type Projection struct {
	Fields []Field
	At     []time.Time
	Rows   [][]float64
}

// Fields returns the declared schema for a kind in column order
func Fields(k Kind) []Field {
	switch k {
	case KindScreen:
		return []Field{{"count", AggCount}}
	case KindAccelerometer, KindGyroscope:
		return []Field{{"x", AggMean}, {"y", AggMean}, {"z", AggMean}, {"magnitude", AggMean}}
	case KindHeartRate:
		return []Field{{"bpm", AggMean}}
	case KindSteps:
		return []Field{{"count", AggSum}}
	case KindLocation:
		return []Field{{"lat", AggMean}, {"lon", AggMean}}
	case KindEMA:
		return []Field{{"label", AggMean}}
	default:
		return nil
	}
}

// Project flattens a stream into its projection
func Project(s Stream) Projection {
	p := Projection{Fields: Fields(s.Kind())}
	switch v := Deref(s).(type) {
	case ScreenStream:
		p.At, p.Rows = rows(v.Series, func(Screen) []float64 { return []float64{1} })
	case MotionStream:
		p.At, p.Rows = rows(v.Series, func(m Motion) []float64 { return []float64{m.X, m.Y, m.Z, m.Magnitude()} })
	case HeartRateStream:
		p.At, p.Rows = rows(v.Series, func(h HeartRate) []float64 { return []float64{h.BPM} })
	case StepsStream:
		p.At, p.Rows = rows(v.Series, func(st Steps) []float64 { return []float64{st.Count} })
	case LocationStream:
		p.At, p.Rows = rows(v.Series, func(l Location) []float64 { return []float64{l.Lat, l.Lon} })
	case SurveyStream:
		p.At, p.Rows = rows(v.Series, func(sv Survey) []float64 { return []float64{sv.Label} })
	}
	return p
}

func rows[T any](s timeseries.Series[T], f func(T) []float64) ([]time.Time, [][]float64) {
	at := make([]time.Time, len(s.Points))
	out := make([][]float64, len(s.Points))
	for i, pt := range s.Points {
		at[i] = pt.At
		out[i] = f(pt.Val)
	}
	return at, out
}

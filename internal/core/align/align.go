// Package align resamples independent sensing streams onto one uniform time grid
package align

import (
	"sort"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
)

// Frame is a time-aligned table; Cols[j][i] is column Columns[j] at Index[i]
// Index is strictly increasing with spacing Freq
type Frame struct {
	Freq    time.Duration
	Index   []time.Time
	Columns []string
	Cols    [][]timeseries.Value
}

// Len is the number of rows
func (f Frame) Len() int { return len(f.Index) }

// Col returns a column by name
func (f Frame) Col(name string) ([]timeseries.Value, bool) {
	for j, c := range f.Columns {
		if c == name {
			return f.Cols[j], true
		}
	}
	return nil, false
}

// Row returns row i in column order
func (f Frame) Row(i int) []timeseries.Value {
	out := make([]timeseries.Value, len(f.Cols))
	for j := range f.Cols {
		out[j] = f.Cols[j][i]
	}
	return out
}

// Align resamples every stream at freq, outer-joins them on one grid and fills gaps
//
// buckets start at local midnight of the earliest sample; columns are named
// {stream}_{field}, ordered by stream name then declared field order
func Align(in map[string]streams.Stream, freq time.Duration, policy FillPolicy) (Frame, error) {
	if err := timeseries.CheckStep(freq); err != nil {
		return Frame{}, err
	}

	names := make([]string, 0, len(in))
	for name, s := range in {
		if s == nil {
			continue
		}
		if err := s.Validate(); err != nil {
			return Frame{}, perr.WithField(err, name)
		}
		if s.Len() > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return Frame{Freq: freq}, nil
	}

	var lo, hi time.Time
	for i, name := range names {
		first, last, _ := in[name].Span()
		if i == 0 || first.Before(lo) {
			lo = first
		}
		if i == 0 || last.After(hi) {
			hi = last
		}
	}
	origin := timeseries.Floor(lo, freq)
	if err := timeseries.CheckCount(int64(hi.Sub(origin)/freq)+1, timeseries.MaxBuckets, "buckets"); err != nil {
		return Frame{}, err
	}
	// the last bucket is counted from origin so multi-day grids stay evenly spaced
	index := timeseries.Grid(origin, origin.Add(time.Duration(timeseries.Bucket(hi, origin, freq))*freq), freq)

	f := Frame{Freq: freq, Index: index}
	for _, name := range names {
		p := streams.Project(in[name])
		for j, fld := range p.Fields {
			f.Columns = append(f.Columns, name+"_"+fld.Name)
			f.Cols = append(f.Cols, resample(p, j, fld.Agg, origin, freq, len(index)))
		}
	}
	for _, col := range f.Cols {
		fill(col, policy)
	}
	return f, nil
}

// resample aggregates field j of p into n buckets starting at origin
// sum and count report 0 for empty buckets within the stream's own span
func resample(p streams.Projection, j int, agg streams.Aggregate, origin time.Time, freq time.Duration, n int) []timeseries.Value {
	sums := make([]float64, n)
	counts := make([]int, n)
	for i, at := range p.At {
		b := timeseries.Bucket(at, origin, freq)
		sums[b] += p.Rows[i][j]
		counts[b]++
	}

	out := make([]timeseries.Value, n)
	if len(p.At) == 0 {
		return out
	}
	first := timeseries.Bucket(p.At[0], origin, freq)
	last := timeseries.Bucket(p.At[len(p.At)-1], origin, freq)
	for b := range out {
		switch agg {
		case streams.AggMean:
			if counts[b] > 0 {
				out[b] = timeseries.Some(sums[b] / float64(counts[b]))
			}
		case streams.AggSum:
			if counts[b] > 0 || (b >= first && b <= last) {
				out[b] = timeseries.Some(sums[b])
			}
		case streams.AggCount:
			if counts[b] > 0 || (b >= first && b <= last) {
				out[b] = timeseries.Count(counts[b])
			}
		}
	}
	return out
}

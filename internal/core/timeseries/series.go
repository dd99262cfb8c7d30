// Package timeseries is the shared data model of the fusion engine: ordered
// (instant, record) streams, the explicit missing-value marker and the bucket grid
package timeseries

import (
	"sort"
	"time"

	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
)

// Point is one timestamped record
type Point[T any] struct {
	At  time.Time
	Val T
}

// Series is a named stream of points indexed by time
// Points must be non-decreasing in At before any windowing or resampling
// equal timestamps keep their arrival order
type Series[T any] struct {
	Name   string
	Points []Point[T]
}

// Of builds a series from points as given
func Of[T any](name string, pts ...Point[T]) Series[T] {
	return Series[T]{Name: name, Points: pts}
}

// Len is the number of points
func (s Series[T]) Len() int { return len(s.Points) }

// Empty reports whether the series has no points
func (s Series[T]) Empty() bool { return len(s.Points) == 0 }

// Span returns the first and last instants; ok is false for an empty series
// assumes the series is sorted
func (s Series[T]) Span() (first, last time.Time, ok bool) {
	if len(s.Points) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.Points[0].At, s.Points[len(s.Points)-1].At, true
}

// IsSorted reports whether instants are non-decreasing
func (s Series[T]) IsSorted() bool {
	for i := 1; i < len(s.Points); i++ {
		if s.Points[i].At.Before(s.Points[i-1].At) {
			return false
		}
	}
	return true
}

// Validate returns an invalid argument error naming the first out-of-order point
func (s Series[T]) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		if s.Points[i].At.Before(s.Points[i-1].At) {
			return perr.WithField(
				perr.InvalidArgf("series %q: point %d at %s precedes point %d at %s",
					s.Name, i, s.Points[i].At.Format(time.RFC3339Nano), i-1, s.Points[i-1].At.Format(time.RFC3339Nano)),
				s.Name,
			)
		}
	}
	return nil
}

// SortStable orders points by instant in place, keeping arrival order for ties
func (s Series[T]) SortStable() {
	sort.SliceStable(s.Points, func(i, j int) bool { return s.Points[i].At.Before(s.Points[j].At) })
}

// Range returns the points with start <= At < end as a sub-slice (no copy)
func (s Series[T]) Range(start, end time.Time) []Point[T] {
	lo := sort.Search(len(s.Points), func(i int) bool { return !s.Points[i].At.Before(start) })
	hi := sort.Search(len(s.Points), func(i int) bool { return !s.Points[i].At.Before(end) })
	if hi < lo {
		hi = lo
	}
	return s.Points[lo:hi]
}

package timeseries

import (
	"time"

	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
)

const (
	// MaxBuckets caps the grid one alignment or rollup builds
	MaxBuckets = 1 << 20
	// MaxWindows caps the windows one extraction produces
	MaxWindows = 1 << 20
)

// Cells is how many step-wide cells tile span, counting a partial last cell
func Cells(span, step time.Duration) int64 {
	if span <= 0 || step <= 0 {
		return 0
	}
	n := int64(span / step)
	if span%step != 0 {
		n++
	}
	return n
}

// CheckCount rejects a cell count above limit; call it before allocating
func CheckCount(n int64, limit int, what string) error {
	if n > int64(limit) {
		return perr.WithField(perr.InvalidArgf("%d %s exceed the limit of %d, use a coarser frequency", n, what, limit), "frequency")
	}
	return nil
}

// CheckStep rejects zero and negative bucket widths
func CheckStep(step time.Duration) error {
	if step <= 0 {
		return perr.WithField(perr.InvalidArgf("frequency must be positive, got %s", step), "frequency")
	}
	return nil
}

// Floor returns the start of the bucket holding t
// buckets are measured from local midnight of t's day in t's location
// so 5m or 1h buckets land on wall-clock marks
func Floor(t time.Time, step time.Duration) time.Time {
	y, m, d := t.Date()
	origin := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return origin.Add(t.Sub(origin) / step * step)
}

// Grid lists first, first+step, ... up to and including last
// first and last are expected to be bucket starts; a grid over MaxBuckets is nil
func Grid(first, last time.Time, step time.Duration) []time.Time {
	if step <= 0 || last.Before(first) {
		return nil
	}
	n := int(last.Sub(first)/step) + 1
	if n > MaxBuckets {
		return nil
	}
	out := make([]time.Time, n)
	for i := range out {
		out[i] = first.Add(time.Duration(i) * step)
	}
	return out
}

// Bucket returns the index of t on the grid that starts at first
// t must not precede first
func Bucket(t, first time.Time, step time.Duration) int {
	return int(t.Sub(first) / step)
}

package window

import (
	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"

	"github.com/montanaflynn/stats"
)

func mean(xs []float64) timeseries.Value {
	if len(xs) == 0 {
		return timeseries.None()
	}
	m, err := stats.Mean(xs)
	if err != nil {
		return timeseries.None()
	}
	return timeseries.Some(m)
}

// std is the sample standard deviation; undefined below two samples
func std(xs []float64) timeseries.Value {
	if len(xs) < 2 {
		return timeseries.None()
	}
	sd, err := stats.StandardDeviationSample(xs)
	if err != nil {
		return timeseries.None()
	}
	return timeseries.Some(sd)
}

func maxOf(xs []float64) timeseries.Value {
	if len(xs) == 0 {
		return timeseries.None()
	}
	m, err := stats.Max(xs)
	if err != nil {
		return timeseries.None()
	}
	return timeseries.Some(m)
}

func sum(xs []float64) timeseries.Value {
	if len(xs) == 0 {
		return timeseries.None()
	}
	s, err := stats.Sum(xs)
	if err != nil {
		return timeseries.None()
	}
	return timeseries.Some(s)
}

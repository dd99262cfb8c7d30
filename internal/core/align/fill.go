package align

import (
	"strings"

	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
)

// FillPolicy decides how buckets without a value are filled after the join
type FillPolicy uint8

const (
	// FillForward carries the last present value forward; leading gaps stay empty
	FillForward FillPolicy = iota
	// FillBackward carries the next present value backward; trailing gaps stay empty
	FillBackward
	// FillInterpolate fills interior gaps linearly in time; edges stay empty
	FillInterpolate
	// FillNone leaves gaps as they are
	FillNone
)

func (p FillPolicy) String() string {
	switch p {
	case FillBackward:
		return "bfill"
	case FillInterpolate:
		return "interpolate"
	case FillNone:
		return "none"
	default:
		return "ffill"
	}
}

// ParseFillPolicy accepts the names used in study plans and query strings
func ParseFillPolicy(s string) (FillPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ffill", "forward", "":
		return FillForward, nil
	case "bfill", "backward":
		return FillBackward, nil
	case "interpolate", "linear":
		return FillInterpolate, nil
	case "none":
		return FillNone, nil
	default:
		return 0, perr.WithField(perr.Validationf("unknown fill policy %q", s), "fill")
	}
}

// MarshalText lets policies round-trip through YAML and JSON as names
func (p FillPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a policy name
func (p *FillPolicy) UnmarshalText(b []byte) error {
	v, err := ParseFillPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// fill applies the policy to one column in place
// buckets are evenly spaced so linear interpolation can work on indices
func fill(col []timeseries.Value, p FillPolicy) {
	switch p {
	case FillForward:
		var last timeseries.Value
		for i, v := range col {
			if v.Valid {
				last = v
			} else {
				col[i] = last
			}
		}
	case FillBackward:
		var next timeseries.Value
		for i := len(col) - 1; i >= 0; i-- {
			if col[i].Valid {
				next = col[i]
			} else {
				col[i] = next
			}
		}
	case FillInterpolate:
		prev := -1
		for i, v := range col {
			if !v.Valid {
				continue
			}
			if prev >= 0 && i-prev > 1 {
				a, b := col[prev].Float64, v.Float64
				span := float64(i - prev)
				for j := prev + 1; j < i; j++ {
					col[j] = timeseries.Some(a + (b-a)*float64(j-prev)/span)
				}
			}
			prev = i
		}
	}
}

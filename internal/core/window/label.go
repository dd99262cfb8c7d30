package window

import "math"

// Label values; NoLabel marks a window with no self-report and is never a class
const (
	NoLabel   = -1
	LabelLow  = 0
	LabelHigh = 1
)

// LabelRule maps a raw survey answer to a class label
type LabelRule func(raw float64) int

// Threshold is the stock binary rule: answers at or above Cut are high
// (strictly above when Inclusive is false)
type Threshold struct {
	Cut       float64
	Inclusive bool
}

// Rule returns the threshold as a LabelRule
func (th Threshold) Rule() LabelRule {
	return func(raw float64) int {
		if raw > th.Cut || (th.Inclusive && raw == th.Cut) {
			return LabelHigh
		}
		return LabelLow
	}
}

// Round keeps ordinal answers as their nearest integer class
func Round(raw float64) int { return int(math.Round(raw)) }

package timeseries

import (
	"math"
	"strconv"
)

// Value is a float that may be absent
// the zero value is absent, so forgetting to set one never reads as 0
type Value struct {
	Float64 float64
	Valid   bool
}

// Some wraps a present value; NaN and Inf collapse to absent
func Some(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{Float64: f, Valid: true}
}

// None is the explicit missing marker
func None() Value { return Value{} }

// Count wraps a discrete count, which is always present
func Count(n int) Value { return Value{Float64: float64(n), Valid: true} }

// Or returns the value or def when absent
func (v Value) Or(def float64) float64 {
	if !v.Valid {
		return def
	}
	return v.Float64
}

// String renders the value for tabular output; absent is the empty string
func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

// MarshalJSON renders absent as null
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.Float64, 'g', -1, 64), nil
}

// UnmarshalJSON accepts a number or null
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Value{}
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

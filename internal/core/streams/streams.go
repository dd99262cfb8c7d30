// Package streams declares the sensing stream variants the fusion engine consumes
//
// every variant has a fixed schema; consumers resolve them with one type switch
// so there is no column-existence probing anywhere downstream
package streams

import (
	"math"
	"strings"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Kind names a stream type as stored and configured
type Kind string

const (
	KindScreen        Kind = "screen"
	KindAccelerometer Kind = "accelerometer"
	KindGyroscope     Kind = "gyroscope"
	KindHeartRate     Kind = "heart_rate"
	KindSteps         Kind = "steps"
	KindLocation      Kind = "location"
	KindEMA           Kind = "ema"
)

// Kinds lists every known kind in a stable order
func Kinds() []Kind {
	return []Kind{KindScreen, KindAccelerometer, KindGyroscope, KindHeartRate, KindSteps, KindLocation, KindEMA}
}

// ParseKind validates a configured kind
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", perr.WithField(perr.Validationf("unknown stream kind %q", s), "stream")
}

// Screen is one screenshot/app-usage event
type Screen struct {
	App      string `json:"app,omitempty"`
	Category string `json:"category,omitempty"`
}

// Motion is one inertial sample
type Motion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Magnitude is the euclidean norm of the sample
func (m Motion) Magnitude() float64 { return math.Sqrt(m.X*m.X + m.Y*m.Y + m.Z*m.Z) }

// HeartRate is one wearable heart-rate sample
type HeartRate struct {
	BPM float64 `json:"bpm"`
}

// Steps is one step-count sample
type Steps struct {
	Count float64 `json:"count"`
}

// Location is one position fix in decimal degrees
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// earthRadiusM is the mean earth radius
const earthRadiusM = 6371008.8

// DistanceTo is the haversine great-circle distance in meters
func (l Location) DistanceTo(o Location) float64 {
	rad := math.Pi / 180
	dLat := (o.Lat - l.Lat) * rad
	dLon := (o.Lon - l.Lon) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(l.Lat*rad)*math.Cos(o.Lat*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Survey is one EMA response; Label is the raw answer before any label rule
type Survey struct {
	Label    float64 `json:"label"`
	SurveyID string  `json:"survey_id,omitempty"`
}

// Stream is the closed set of stream variants
type Stream interface {
	Kind() Kind
	Len() int
	Span() (first, last time.Time, ok bool)
	Validate() error
	SortStable()
	stream()
}

// ScreenStream carries screen events
type ScreenStream struct{ timeseries.Series[Screen] }

// MotionStream carries accelerometer or gyroscope samples; Sensor tells which
type MotionStream struct {
	timeseries.Series[Motion]
	Sensor Kind
}

// HeartRateStream carries heart-rate samples
type HeartRateStream struct{ timeseries.Series[HeartRate] }

// StepsStream carries step counts
type StepsStream struct{ timeseries.Series[Steps] }

// LocationStream carries position fixes
type LocationStream struct{ timeseries.Series[Location] }

// SurveyStream carries EMA responses
type SurveyStream struct{ timeseries.Series[Survey] }

func (ScreenStream) Kind() Kind    { return KindScreen }
func (HeartRateStream) Kind() Kind { return KindHeartRate }
func (StepsStream) Kind() Kind     { return KindSteps }
func (LocationStream) Kind() Kind  { return KindLocation }
func (SurveyStream) Kind() Kind    { return KindEMA }

// Kind defaults to accelerometer when Sensor is unset
func (s MotionStream) Kind() Kind {
	if s.Sensor == "" {
		return KindAccelerometer
	}
	return s.Sensor
}

func (ScreenStream) stream()    {}
func (MotionStream) stream()    {}
func (HeartRateStream) stream() {}
func (StepsStream) stream()     {}
func (LocationStream) stream()  {}
func (SurveyStream) stream()    {}

// Empty returns a zero-length stream of the given kind
func Empty(k Kind, name string) (Stream, error) {
	switch k {
	case KindScreen:
		return &ScreenStream{timeseries.Series[Screen]{Name: name}}, nil
	case KindAccelerometer, KindGyroscope:
		return &MotionStream{Series: timeseries.Series[Motion]{Name: name}, Sensor: k}, nil
	case KindHeartRate:
		return &HeartRateStream{timeseries.Series[HeartRate]{Name: name}}, nil
	case KindSteps:
		return &StepsStream{timeseries.Series[Steps]{Name: name}}, nil
	case KindLocation:
		return &LocationStream{timeseries.Series[Location]{Name: name}}, nil
	case KindEMA:
		return &SurveyStream{timeseries.Series[Survey]{Name: name}}, nil
	default:
		return nil, perr.WithField(perr.Validationf("unknown stream kind %q", k), "stream")
	}
}

// Deref unwraps pointer variants so switches only need value cases
func Deref(s Stream) Stream {
	switch v := s.(type) {
	case *ScreenStream:
		return *v
	case *MotionStream:
		return *v
	case *HeartRateStream:
		return *v
	case *StepsStream:
		return *v
	case *LocationStream:
		return *v
	case *SurveyStream:
		return *v
	default:
		return s
	}
}

// CanonicalCategory folds case and width so "Social", "SOCIAL" and fullwidth
// forms count as one category; blank input stays blank
// a Caser is stateful, so each call builds its own
func CanonicalCategory(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Fold().String(norm.NFKC.String(s))
}

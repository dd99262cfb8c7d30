// Package domain holds DTOs for the fusion http surface
package domain

import (
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/align"
	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/net/http/bind"
	fusiondom "github.com/open-sensor-research-platform/osrp/internal/services/fusion/domain"
)

// Span is one participant's half-open range; times are RFC3339
type Span struct {
	Participant string    `json:"participant" validate:"required,max=128" example:"P001"`
	Start       time.Time `json:"start" validate:"required" example:"2025-06-02T08:00:00Z"`
	End         time.Time `json:"end" validate:"required,gtfield=Start" example:"2025-06-02T10:00:00Z"`
}

func (s Span) toDomain() fusiondom.Span {
	return fusiondom.Span{Participant: s.Participant, Start: s.Start, End: s.End}
}

// SessionsInput asks for screen sessions
type SessionsInput struct {
	Span
	Stream string `json:"stream,omitempty" validate:"omitempty,max=64" example:"screen"`
	Gap    string `json:"gap,omitempty" validate:"omitempty,duration" example:"5m"`
}

// optDuration parses s when set; an empty string is zero
func optDuration(s, field string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := bind.ParseDuration(s)
	return d, perr.WithField(err, field)
}

// Request converts to the service request; an empty gap leaves the plan default
func (in SessionsInput) Request() (fusiondom.SessionsRequest, error) {
	req := fusiondom.SessionsRequest{Span: in.Span.toDomain(), Stream: in.Stream}
	d, err := optDuration(in.Gap, "gap")
	if err != nil {
		return req, err
	}
	if d > 0 {
		req.Gap = &d
	}
	return req, nil
}

// AlignedInput asks for a multi-stream frame
type AlignedInput struct {
	Span
	Streams []string `json:"streams,omitempty" validate:"omitempty,max=32,unique,dive,required" example:"heart_rate"`
	Freq    string   `json:"freq,omitempty" validate:"omitempty,duration" example:"1m"`
	Fill    string   `json:"fill,omitempty" validate:"omitempty,oneof=ffill forward bfill backward interpolate linear none" example:"ffill"`
}

// Request converts to the service request
func (in AlignedInput) Request() (fusiondom.AlignRequest, error) {
	req := fusiondom.AlignRequest{Span: in.Span.toDomain(), Streams: in.Streams, Fill: in.Fill}
	var err error
	req.Freq, err = optDuration(in.Freq, "freq")
	return req, err
}

// FeaturesInput asks for feature windows
type FeaturesInput struct {
	Span
	Window string `json:"window,omitempty" validate:"omitempty,duration" example:"1h"`
}

// Request converts to the service request
func (in FeaturesInput) Request() (fusiondom.FeaturesRequest, error) {
	req := fusiondom.FeaturesRequest{Span: in.Span.toDomain()}
	var err error
	req.Window, err = optDuration(in.Window, "window")
	return req, err
}

// SummaryQuery is bound from the query string of GET /summary
type SummaryQuery struct {
	Participant string `json:"participant" validate:"required,max=128" example:"P001"`
	Day         string `json:"day" validate:"required,datetime=2006-01-02" example:"2025-06-02"`
}

// FrameOut is the row-major wire form of an aligned frame
// absent values encode as null
type FrameOut struct {
	Freq    string               `json:"freq" example:"1m0s"`
	Columns []string             `json:"columns"`
	Index   []time.Time          `json:"index"`
	Rows    [][]timeseries.Value `json:"rows"`
}

// NewFrameOut transposes f
func NewFrameOut(f align.Frame) FrameOut {
	out := FrameOut{
		Freq:    f.Freq.String(),
		Columns: f.Columns,
		Index:   f.Index,
		Rows:    make([][]timeseries.Value, f.Len()),
	}
	for i := range out.Rows {
		out.Rows[i] = f.Row(i)
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	if out.Index == nil {
		out.Index = []time.Time{}
	}
	return out
}

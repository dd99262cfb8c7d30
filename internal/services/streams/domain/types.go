// Package domain holds the stream reader contracts and row shapes
package domain

import (
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
)

// Query selects one participant's stream over the half-open range [Start, End)
type Query struct {
	Participant string
	Kind        streams.Kind
	Start, End  time.Time

	// Source narrows wearable reads to one device feed (polar_h10, googlefit); empty means any
	Source string
	// SurveyID narrows EMA reads to one instrument; empty means all
	SurveyID string
}

// Batch is what a repo returns for one query
// Malformed counts rows dropped for lacking a timestamp
type Batch[T any] struct {
	Points    []timeseries.Point[T]
	Malformed int
}

// Participant is one roster entry
type Participant struct {
	ID       string     `json:"id"`
	Group    string     `json:"group,omitempty"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// Package domain holds fusion request and result types and the ports the
// service depends on
package domain

import (
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/summary"
	"github.com/open-sensor-research-platform/osrp/internal/core/window"
)

// Span is one participant's half-open time range
type Span struct {
	Participant string    `json:"participant"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// SessionsRequest segments one screen stream
// Stream names a plan stream of kind screen; empty picks the first one
type SessionsRequest struct {
	Span
	Stream string
	Gap    *time.Duration
}

// AlignRequest aligns plan streams; empty Streams means all of them
// zero Freq and empty Fill fall back to the plan
type AlignRequest struct {
	Span
	Streams []string
	Freq    time.Duration
	Fill    string
}

// FeaturesRequest extracts windows; zero Window falls back to the plan
type FeaturesRequest struct {
	Span
	Window time.Duration
}

// RunRequest fans out over participants x days in [Start, End)
// empty Participants means the plan's roster filter
type RunRequest struct {
	Start        time.Time
	End          time.Time
	Participants []string
}

// Unit outcomes
const (
	OutcomeOK           = "ok"
	OutcomeInsufficient = "insufficient"
	OutcomeFailed       = "failed"
)

// Unit is one participant-day of a run
type Unit struct {
	Participant string    `json:"participant"`
	Day         time.Time `json:"day"`
	Windows     int       `json:"windows"`
	Labeled     int       `json:"labeled"`
	Outcome     string    `json:"outcome"`
	Err         string    `json:"error,omitempty"`
}

// Run is the result of one batch
type Run struct {
	ID           string    `json:"id"`
	Plan         string    `json:"plan"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Units        []Unit    `json:"units"`
	Failed       int       `json:"failed"`
	Insufficient int       `json:"insufficient"`
	Finished     time.Time `json:"finished"`

	// Windows holds every unit's windows, grouped by participant then time
	Windows []window.FeatureWindow `json:"-"`
}

// Table flattens the run's windows
func (r Run) Table() window.Table { return window.NewTable(r.Windows) }

// StreamStats describes one stream over a summary day
type StreamStats struct {
	Name    string     `json:"name"`
	Kind    string     `json:"kind"`
	Samples int        `json:"samples"`
	First   *time.Time `json:"first,omitempty"`
	Last    *time.Time `json:"last,omitempty"`
}

// DailySummary is the per-participant-day overview
type DailySummary struct {
	Participant string               `json:"participant"`
	Day         time.Time            `json:"day"`
	Streams     []StreamStats        `json:"streams"`
	Labels      int                  `json:"labels"`
	Usage       *summary.Usage       `json:"usage,omitempty"`
	Activity    *summary.Activity    `json:"activity,omitempty"`
	AppTime     []summary.AppMinutes `json:"app_time,omitempty"`
	Context     []summary.ContextRow `json:"context,omitempty"`
}

package domain

import (
	"context"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/align"
	"github.com/open-sensor-research-platform/osrp/internal/core/segment"
	"github.com/open-sensor-research-platform/osrp/internal/core/window"
	streamsdom "github.com/open-sensor-research-platform/osrp/internal/services/streams/domain"
)

// ReaderPort is the injected stream reader
type ReaderPort = streamsdom.ReaderPort

// RosterPort lists participants
type RosterPort = streamsdom.RosterPort

// SourcePort is what the fusion service reads through
type SourcePort = streamsdom.Ports

// SinkPort persists one run's windows
type SinkPort interface {
	WriteWindows(ctx context.Context, runID string, t window.Table) error
}

// Ports is what the fusion module exposes
type Ports interface {
	Sessions(ctx context.Context, req SessionsRequest) ([]segment.Session, error)
	Aligned(ctx context.Context, req AlignRequest) (align.Frame, error)
	Features(ctx context.Context, req FeaturesRequest) ([]window.FeatureWindow, error)
	Run(ctx context.Context, req RunRequest) (Run, error)
	Nightly(ctx context.Context, day time.Time) (Run, error)
	DailySummary(ctx context.Context, participant string, day time.Time) (DailySummary, error)
	Participants(ctx context.Context) ([]streamsdom.Participant, error)
}

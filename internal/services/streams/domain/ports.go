package domain

import (
	"context"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
)

// ReaderPort is the stream reader the fusion engine is handed
// a range with no rows returns an empty stream and no error
type ReaderPort interface {
	Read(ctx context.Context, participant string, kind streams.Kind, start, end time.Time) (streams.Stream, error)
}

// RosterPort lists participants, optionally by study group
type RosterPort interface {
	ListParticipants(ctx context.Context, group string) ([]Participant, error)
}

// Ports is what the module exposes
type Ports interface {
	ReaderPort
	RosterPort
}

// StorageRepo reads raw rows per stream variant
// implementations filter [Start, End) and order by timestamp
type StorageRepo interface {
	Screen(ctx context.Context, q Query) (Batch[streams.Screen], error)
	Motion(ctx context.Context, q Query) (Batch[streams.Motion], error)
	HeartRate(ctx context.Context, q Query) (Batch[streams.HeartRate], error)
	Steps(ctx context.Context, q Query) (Batch[streams.Steps], error)
	Location(ctx context.Context, q Query) (Batch[streams.Location], error)
	Survey(ctx context.Context, q Query) (Batch[streams.Survey], error)
	Participants(ctx context.Context, group string) ([]Participant, error)
}

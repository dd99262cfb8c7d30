package service

import (
	"context"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/segment"
	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/core/summary"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/domain"
)

// topApps is how many apps the usage rollup keeps
const topApps = 10

// DailySummary reads every plan stream for one local day and rolls it up
// the first stream of each kind by name feeds the usage, activity and context sections
func (s *Service) DailySummary(ctx context.Context, participant string, day time.Time) (domain.DailySummary, error) {
	loc := s.Plan.Location()
	y, m, d := day.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	if err := checkSpan(domain.Span{Participant: participant, Start: start, End: end}); err != nil {
		return domain.DailySummary{}, err
	}

	in, err := s.readStreams(ctx, participant, s.Plan.Catalog(), start, end)
	if err != nil {
		return domain.DailySummary{}, err
	}
	labels, err := s.labels(ctx, participant, start, end)
	if err != nil {
		return domain.DailySummary{}, err
	}

	out := domain.DailySummary{Participant: participant, Day: start, Labels: labels.Len()}
	var (
		screen   *streams.ScreenStream
		steps    *streams.StepsStream
		motion   *streams.MotionStream
		location *streams.LocationStream
	)
	for _, name := range s.Plan.Names() {
		st := in[name]
		ss := domain.StreamStats{Name: name, Kind: string(st.Kind()), Samples: st.Len()}
		if first, last, ok := st.Span(); ok {
			ss.First, ss.Last = &first, &last
		}
		out.Streams = append(out.Streams, ss)

		switch v := st.(type) {
		case streams.ScreenStream:
			if screen == nil {
				screen = &v
			}
		case streams.StepsStream:
			if steps == nil {
				steps = &v
			}
		case streams.MotionStream:
			if motion == nil {
				motion = &v
			}
		case streams.LocationStream:
			if location == nil {
				location = &v
			}
		}
	}

	if screen != nil {
		u := summary.AppUsage(*screen, topApps)
		out.Usage = &u
		sessions, err := segment.Segment(*screen, s.Plan.Gap)
		if err != nil {
			return domain.DailySummary{}, perr.WithOp(err, "summary sessions")
		}
		out.AppTime = summary.AppTime(sessions)
	}
	if steps != nil {
		a, err := summary.DailyActivity(*steps)
		if err != nil {
			return domain.DailySummary{}, perr.WithOp(err, "summary activity")
		}
		out.Activity = &a
	}
	if motion != nil {
		var l streams.LocationStream
		if location != nil {
			l = *location
		}
		rows, err := summary.Context(*motion, l, s.Plan.Window)
		if err != nil {
			return domain.DailySummary{}, perr.WithOp(err, "summary context")
		}
		out.Context = rows
	}
	return out, nil
}

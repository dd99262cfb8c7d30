// Package service turns repo rows into ordered core streams with retries and read metrics
package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/repokit"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"
	"github.com/open-sensor-research-platform/osrp/internal/platform/metrics"
	"github.com/open-sensor-research-platform/osrp/internal/services/streams/domain"
)

// Config holds reader tuning
type Config struct {
	// attempts per read; <=0 -> 1
	MaxRetries int
	// base backoff between attempts; <=0 -> 200ms
	RetryBase time.Duration
	// per-attempt budget; zero means the caller's deadline only
	Timeout time.Duration

	// wearable source per kind, e.g. heart_rate -> polar_h10
	Sources map[streams.Kind]string
	// EMA instrument; empty reads every survey
	SurveyID string
}

// Service implements domain.Ports
type Service struct {
	Repo    domain.StorageRepo
	Cfg     Config
	Metrics *metrics.Metrics
}

var _ domain.Ports = (*Service)(nil)

// New binds the repo once; db may be nil when the binder does not need Postgres
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], cfg Config, m *metrics.Metrics) *Service {
	if binder == nil {
		panic("streams.Service requires a non nil Repo binder")
	}
	var q repokit.Queryer
	if db != nil {
		q = db
	}
	return &Service{Repo: binder.Bind(q), Cfg: cfg, Metrics: m}
}

// Read returns the participant's stream over [start, end) sorted by time
// ties keep the order the store returned them in
func (s *Service) Read(ctx context.Context, participant string, kind streams.Kind, start, end time.Time) (streams.Stream, error) {
	if participant == "" {
		return nil, perr.WithField(perr.Validationf("participant is required"), "participant")
	}
	if end.Before(start) {
		return nil, perr.WithField(perr.InvalidArgf("end %s precedes start %s", end.Format(time.RFC3339), start.Format(time.RFC3339)), "range")
	}
	if _, err := streams.ParseKind(string(kind)); err != nil {
		return nil, err
	}
	q := domain.Query{
		Participant: participant,
		Kind:        kind,
		Start:       start,
		End:         end,
		Source:      s.Cfg.Sources[kind],
	}
	if kind == streams.KindEMA {
		q.SurveyID = s.Cfg.SurveyID
	}

	var (
		out       streams.Stream
		malformed int
	)
	err := s.retry(ctx, func(ctx context.Context) error {
		var err error
		out, malformed, err = s.readOnce(ctx, q)
		return err
	})
	if err != nil {
		s.Metrics.ObserveRead(string(kind), "error", 0, 0)
		return nil, perr.WithOp(err, "read "+string(kind))
	}

	out.SortStable()
	s.Metrics.ObserveRead(string(kind), "ok", out.Len(), malformed)
	if malformed > 0 {
		logger.C(ctx).Warn().
			Str("participant", participant).
			Str("stream", string(kind)).
			Int("malformed", malformed).
			Msg("stream rows without a timestamp were dropped")
	}
	return out, nil
}

func (s *Service) readOnce(ctx context.Context, q domain.Query) (streams.Stream, int, error) {
	name := string(q.Kind)
	switch q.Kind {
	case streams.KindScreen:
		b, err := s.Repo.Screen(ctx, q)
		return &streams.ScreenStream{Series: series(name, b)}, b.Malformed, err
	case streams.KindAccelerometer, streams.KindGyroscope:
		b, err := s.Repo.Motion(ctx, q)
		return &streams.MotionStream{Series: series(name, b), Sensor: q.Kind}, b.Malformed, err
	case streams.KindHeartRate:
		b, err := s.Repo.HeartRate(ctx, q)
		return &streams.HeartRateStream{Series: series(name, b)}, b.Malformed, err
	case streams.KindSteps:
		b, err := s.Repo.Steps(ctx, q)
		return &streams.StepsStream{Series: series(name, b)}, b.Malformed, err
	case streams.KindLocation:
		b, err := s.Repo.Location(ctx, q)
		return &streams.LocationStream{Series: series(name, b)}, b.Malformed, err
	case streams.KindEMA:
		b, err := s.Repo.Survey(ctx, q)
		return &streams.SurveyStream{Series: series(name, b)}, b.Malformed, err
	default:
		return nil, 0, perr.Validationf("unknown stream kind %q", q.Kind)
	}
}

func series[T any](name string, b domain.Batch[T]) timeseries.Series[T] {
	return timeseries.Series[T]{Name: name, Points: b.Points}
}

// ListParticipants implements domain.RosterPort
func (s *Service) ListParticipants(ctx context.Context, group string) ([]domain.Participant, error) {
	var out []domain.Participant
	err := s.retry(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.Repo.Participants(ctx, group)
		return err
	})
	if out == nil && err == nil {
		out = []domain.Participant{}
	}
	return out, err
}

// retry runs fn until it succeeds, fails permanently or attempts run out
// backoff is exponential with jitter and capped at 10s
func (s *Service) retry(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(s.Cfg.MaxRetries, 1)
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 200 * time.Millisecond
	}

	var last error
	for i := range attempts {
		actx, cancel := withTimeout(ctx, s.Cfg.Timeout)
		err := fn(actx)
		cancel()
		if err == nil {
			return nil
		}
		last = err
		if !perr.Retryable(err) || i == attempts-1 {
			break
		}
		s.Metrics.Retry()
		d := min(base<<i, 10*time.Second)
		j := d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
		logger.C(ctx).Debug().Err(err).Dur("backoff", j).Int("attempt", i+1).Msg("stream read retry")
		if se := sleepCtx(ctx, j); se != nil {
			return se
		}
	}
	return last
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

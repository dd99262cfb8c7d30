// Package repo reads sensing streams: high-rate tables from ClickHouse,
// EMA responses and the participant roster from Postgres
package repo

import (
	"context"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/repokit"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store"
	"github.com/open-sensor-research-platform/osrp/internal/services/streams/domain"
)

// NewHybrid constructs a binder that reads sensors from ch and surveys from the bound Queryer
func NewHybrid(ch store.Clickhouse) repokit.Binder[domain.StorageRepo] { return &hybridBinder{ch: ch} }

type hybridBinder struct{ ch store.Clickhouse }

// Bind binds a Queryer to produce a StorageRepo; q may be nil when Postgres is off
func (b *hybridBinder) Bind(q repokit.Queryer) domain.StorageRepo {
	return &hybridStore{pg: q, ch: b.ch}
}

type hybridStore struct {
	pg repokit.Queryer
	ch store.Clickhouse
}

// rows whose event timestamp is null are kept in the result by their ingest
// time so the reader can count them, then dropped
const (
	sensorSQL = `
		SELECT ts, x, y, z
		FROM osrp.sensor_readings
		WHERE user_id = ? AND sensor_type = ?
		  AND ((ts >= ? AND ts < ?) OR (ts IS NULL AND ingested_at >= ? AND ingested_at < ?))
		ORDER BY ts ASC, ingested_at ASC`

	locationSQL = `
		SELECT ts, latitude, longitude
		FROM osrp.sensor_readings
		WHERE user_id = ? AND sensor_type = 'location'
		  AND ((ts >= ? AND ts < ?) OR (ts IS NULL AND ingested_at >= ? AND ingested_at < ?))
		ORDER BY ts ASC, ingested_at ASC`

	wearableSQL = `
		SELECT ts, value
		FROM osrp.wearable_samples
		WHERE user_id = ? AND metric = ? AND (? = '' OR source = ?)
		  AND ((ts >= ? AND ts < ?) OR (ts IS NULL AND ingested_at >= ? AND ingested_at < ?))
		ORDER BY ts ASC, ingested_at ASC`

	screenshotSQL = `
		SELECT ts, app_name, app_category
		FROM osrp.screenshots
		WHERE user_id = ?
		  AND ((ts >= ? AND ts < ?) OR (ts IS NULL AND ingested_at >= ? AND ingested_at < ?))
		ORDER BY ts ASC, ingested_at ASC`
)

func (s *hybridStore) chOrErr() error {
	if s.ch == nil {
		return perr.Unavailablef("clickhouse is not configured")
	}
	return nil
}

// Screen reads screenshot metadata as screen events
func (s *hybridStore) Screen(ctx context.Context, q domain.Query) (domain.Batch[streams.Screen], error) {
	if err := s.chOrErr(); err != nil {
		return domain.Batch[streams.Screen]{}, err
	}
	rows, err := s.ch.Query(ctx, screenshotSQL, q.Participant, q.Start, q.End, q.Start, q.End)
	if err != nil {
		return domain.Batch[streams.Screen]{}, perr.FromClickHousef(err, "read screenshots")
	}
	return collect(rows, func(r store.Rows) (*time.Time, streams.Screen, error) {
		var (
			ts *time.Time
			v  streams.Screen
		)
		err := r.Scan(&ts, &v.App, &v.Category)
		return ts, v, err
	})
}

// Motion reads accelerometer or gyroscope samples depending on q.Kind
func (s *hybridStore) Motion(ctx context.Context, q domain.Query) (domain.Batch[streams.Motion], error) {
	if err := s.chOrErr(); err != nil {
		return domain.Batch[streams.Motion]{}, err
	}
	rows, err := s.ch.Query(ctx, sensorSQL, q.Participant, string(q.Kind), q.Start, q.End, q.Start, q.End)
	if err != nil {
		return domain.Batch[streams.Motion]{}, perr.FromClickHousef(err, "read %s", q.Kind)
	}
	return collect(rows, func(r store.Rows) (*time.Time, streams.Motion, error) {
		var (
			ts *time.Time
			v  streams.Motion
		)
		err := r.Scan(&ts, &v.X, &v.Y, &v.Z)
		return ts, v, err
	})
}

// Location reads position fixes
func (s *hybridStore) Location(ctx context.Context, q domain.Query) (domain.Batch[streams.Location], error) {
	if err := s.chOrErr(); err != nil {
		return domain.Batch[streams.Location]{}, err
	}
	rows, err := s.ch.Query(ctx, locationSQL, q.Participant, q.Start, q.End, q.Start, q.End)
	if err != nil {
		return domain.Batch[streams.Location]{}, perr.FromClickHousef(err, "read location")
	}
	return collect(rows, func(r store.Rows) (*time.Time, streams.Location, error) {
		var (
			ts *time.Time
			v  streams.Location
		)
		err := r.Scan(&ts, &v.Lat, &v.Lon)
		return ts, v, err
	})
}

// HeartRate reads wearable heart-rate samples
func (s *hybridStore) HeartRate(ctx context.Context, q domain.Query) (domain.Batch[streams.HeartRate], error) {
	b, err := s.wearable(ctx, q, "heart_rate")
	if err != nil {
		return domain.Batch[streams.HeartRate]{}, err
	}
	return convert(b, func(v float64) streams.HeartRate { return streams.HeartRate{BPM: v} }), nil
}

// Steps reads wearable step counts
func (s *hybridStore) Steps(ctx context.Context, q domain.Query) (domain.Batch[streams.Steps], error) {
	b, err := s.wearable(ctx, q, "steps")
	if err != nil {
		return domain.Batch[streams.Steps]{}, err
	}
	return convert(b, func(v float64) streams.Steps { return streams.Steps{Count: v} }), nil
}

func (s *hybridStore) wearable(ctx context.Context, q domain.Query, metric string) (domain.Batch[float64], error) {
	if err := s.chOrErr(); err != nil {
		return domain.Batch[float64]{}, err
	}
	rows, err := s.ch.Query(ctx, wearableSQL, q.Participant, metric, q.Source, q.Source, q.Start, q.End, q.Start, q.End)
	if err != nil {
		return domain.Batch[float64]{}, perr.FromClickHousef(err, "read %s", metric)
	}
	return collect(rows, func(r store.Rows) (*time.Time, float64, error) {
		var (
			ts *time.Time
			v  float64
		)
		err := r.Scan(&ts, &v)
		return ts, v, err
	})
}

// collect drains rows into a batch, counting rows with no timestamp as malformed
func collect[T any](rows store.Rows, scan func(store.Rows) (*time.Time, T, error)) (domain.Batch[T], error) {
	defer rows.Close()
	var b domain.Batch[T]
	for rows.Next() {
		ts, v, err := scan(rows)
		if err != nil {
			return domain.Batch[T]{}, perr.Wrap(err, perr.ErrorCodeDB, "scan stream row")
		}
		if ts == nil || ts.IsZero() {
			b.Malformed++
			continue
		}
		b.Points = append(b.Points, timeseries.Point[T]{At: *ts, Val: v})
	}
	if err := rows.Err(); err != nil {
		return domain.Batch[T]{}, perr.Wrap(err, perr.ErrorCodeDB, "iterate stream rows")
	}
	return b, nil
}

func convert[A, B any](in domain.Batch[A], f func(A) B) domain.Batch[B] {
	out := domain.Batch[B]{Malformed: in.Malformed, Points: make([]timeseries.Point[B], len(in.Points))}
	for i, p := range in.Points {
		out.Points[i] = timeseries.Point[B]{At: p.At, Val: f(p.Val)}
	}
	return out
}

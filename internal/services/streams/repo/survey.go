package repo

import (
	"context"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store"
	"github.com/open-sensor-research-platform/osrp/internal/services/streams/domain"
)

func (s *hybridStore) pgOrErr() error {
	if s.pg == nil {
		return perr.Unavailablef("postgres is not configured")
	}
	return nil
}

// Survey reads EMA responses; label is the numeric answer the study rule cuts on
func (s *hybridStore) Survey(ctx context.Context, q domain.Query) (domain.Batch[streams.Survey], error) {
	if err := s.pgOrErr(); err != nil {
		return domain.Batch[streams.Survey]{}, err
	}
	const sql = `
select responded_at, label, survey_id
from ema_responses
where user_id = $1
and ($2 = '' or survey_id = $2)
and ((responded_at >= $3 and responded_at < $4)
  or (responded_at is null and submitted_at >= $3 and submitted_at < $4))
order by responded_at asc nulls last, submitted_at asc
`
	rows, err := s.pg.Query(ctx, sql, q.Participant, q.SurveyID, q.Start, q.End)
	if err != nil {
		return domain.Batch[streams.Survey]{}, perr.FromPostgres(err, "read ema responses")
	}
	return collect(rows, func(r store.Rows) (*time.Time, streams.Survey, error) {
		var (
			ts *time.Time
			v  streams.Survey
		)
		err := r.Scan(&ts, &v.Label, &v.SurveyID)
		return ts, v, err
	})
}

// Participants lists the roster ordered by id; group filters by study group code
func (s *hybridStore) Participants(ctx context.Context, group string) ([]domain.Participant, error) {
	if err := s.pgOrErr(); err != nil {
		return nil, err
	}
	const sql = `
select user_id, coalesce(group_code, ''), last_seen
from participants
where ($1 = '' or group_code = $1)
order by user_id asc
`
	out, err := store.Many(ctx, s.pg, func(r store.Row) (domain.Participant, error) {
		var p domain.Participant
		err := r.Scan(&p.ID, &p.Group, &p.LastSeen)
		return p, err
	}, sql, group)
	if err != nil {
		return nil, perr.FromPostgres(err, "list participants")
	}
	return out, nil
}

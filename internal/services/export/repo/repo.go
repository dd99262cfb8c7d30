// Package repo provides postgres writes for exported feature windows
package repo

import (
	"context"
	"encoding/json"

	"github.com/open-sensor-research-platform/osrp/internal/modkit/repokit"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/services/export/domain"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

const insertWindowSQL = `
	INSERT INTO feature_windows (
		batch_id, run_id, participant_id, window_start, window_end,
		hour_of_day, day_of_week, features, raw_label, label, has_label
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11)
	ON CONFLICT (participant_id, window_start, window_end, run_id) DO NOTHING
`

// InsertWindows writes rows and returns how many were new
// a rerun of the same run id is a no-op
func (r *queries) InsertWindows(ctx context.Context, rows []domain.WindowRow) (int64, error) {
	var inserted int64
	for _, w := range rows {
		feats, err := json.Marshal(w.Features)
		if err != nil {
			return inserted, perr.Wrap(err, perr.ErrorCodeJSON, "encode window features")
		}
		tag, err := r.q.Exec(ctx, insertWindowSQL,
			w.BatchID, w.RunID, w.Participant, w.Start, w.End,
			w.HourOfDay, w.DayOfWeek, string(feats), w.RawLabel, w.Label, w.HasLabel,
		)
		if err != nil {
			return inserted, perr.FromPostgresf(err, "insert window %s %s", w.Participant, w.Start)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

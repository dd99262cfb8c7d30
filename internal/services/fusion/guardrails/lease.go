package guardrails

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/modkit/repokit"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store"
)

// ErrLeaseHeld means another runner owns the day or already finished it
var ErrLeaseHeld = errors.New("fusion: day lease already held")

// DefaultLeaseTTL outlives a normal nightly batch
const DefaultLeaseTTL = 2 * time.Hour

// releaseBudget bounds the finish and release writes, which run even after ctx is cancelled
const releaseBudget = 10 * time.Second

// Lease runs do once per (plan, day) across processes
type Lease func(ctx context.Context, plan string, day time.Time, do func(context.Context) error) error

// NoLease always runs do
func NoLease(ctx context.Context, _ string, _ time.Time, do func(context.Context) error) error {
	return do(ctx)
}

const (
	claimSQL = `
		insert into fusion_day_leases (plan, day, claimed_at, lease_owner, lease_expires_at)
		values ($1, $2::date, now(), $3, now() + make_interval(secs => $4))
		on conflict (plan, day) do update
		   set claimed_at = now(), lease_owner = excluded.lease_owner, lease_expires_at = excluded.lease_expires_at
		 where fusion_day_leases.done_at is null
		   and fusion_day_leases.lease_expires_at <= now()
		returning true
	`
	finishSQL = `
		update fusion_day_leases set done_at = now()
		 where plan = $1 and day = $2::date and lease_owner = $3
	`
	releaseSQL = `
		delete from fusion_day_leases
		 where plan = $1 and day = $2::date and lease_owner = $3 and done_at is null
	`
)

// MakeDayLease claims (plan, day) in fusion_day_leases for owner and runs do.
// A day is held while a live claim exists or once a run finished it. A failed
// run releases its claim so the next attempt can take the day; a crashed run
// is reclaimable once ttl passes.
func MakeDayLease(db repokit.TxRunner, owner string, ttl time.Duration) Lease {
	owner = fmt.Sprintf("%s:%d", owner, os.Getpid())
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	secs := ttl.Seconds()

	return func(ctx context.Context, plan string, day time.Time, do func(context.Context) error) error {
		key := day.Format(time.DateOnly)
		var claimed bool
		err := db.Tx(ctx, func(q store.RowQuerier) error {
			rows, err := q.Query(ctx, claimSQL, plan, key, owner, secs)
			if err != nil {
				return err
			}
			defer rows.Close()
			claimed = rows.Next()
			return rows.Err()
		})
		if err != nil {
			return perr.FromPostgres(err, "claim day lease")
		}
		if !claimed {
			return ErrLeaseHeld
		}

		runErr := do(ctx)

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseBudget)
		defer cancel()
		stmt, what := finishSQL, "finish day lease"
		if runErr != nil {
			stmt, what = releaseSQL, "release day lease"
		}
		werr := db.Tx(wctx, func(q store.RowQuerier) error {
			_, err := q.Exec(wctx, stmt, plan, key, owner)
			return err
		})
		switch {
		case werr == nil:
			return runErr
		case runErr != nil:
			return errors.Join(runErr, perr.FromPostgres(werr, what))
		default:
			return perr.FromPostgres(werr, what)
		}
	}
}

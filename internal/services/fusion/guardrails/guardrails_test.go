package guardrails

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store"
)

// leaseDB models fusion_day_leases keyed by (plan, day)
type leaseDB struct {
	mu          sync.Mutex
	rows        map[string]*leaseRow
	now         time.Time
	fail        error
	// writeCtxErr is ctx.Err() as seen by the last finish or release write
	writeCtxErr error
}

type leaseRow struct {
	owner   string
	expires time.Time
	done    bool
}

func newLeaseDB(now time.Time) *leaseDB {
	return &leaseDB{rows: map[string]*leaseRow{}, now: now}
}

type oneRow struct{ left int }

func (r *oneRow) Next() bool             { r.left--; return r.left >= 0 }
func (r *oneRow) Scan(dest ...any) error { return nil }
func (r *oneRow) Err() error             { return nil }
func (r *oneRow) Close()                 {}
func (r *oneRow) Columns() []string      { return []string{"bool"} }

func (d *leaseDB) QueryRow(context.Context, string, ...any) store.Row { return nil }

// Query is the claim: it wins when no row exists or the row expired unfinished
func (d *leaseDB) Query(_ context.Context, _ string, args ...any) (store.Rows, error) {
	if d.fail != nil {
		return nil, d.fail
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	key := args[0].(string) + "|" + args[1].(string)
	if r, ok := d.rows[key]; ok && (r.done || r.expires.After(d.now)) {
		return &oneRow{}, nil
	}
	ttl := time.Duration(args[3].(float64) * float64(time.Second))
	d.rows[key] = &leaseRow{owner: args[2].(string), expires: d.now.Add(ttl)}
	return &oneRow{left: 1}, nil
}

// Exec is the finish (update) or release (delete) of the caller's own claim
func (d *leaseDB) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeCtxErr = ctx.Err()
	key := args[0].(string) + "|" + args[1].(string)
	r, ok := d.rows[key]
	if !ok || r.owner != args[2].(string) {
		return nil, nil
	}
	switch {
	case strings.Contains(sql, "delete"):
		if !r.done {
			delete(d.rows, key)
		}
	case strings.Contains(sql, "update"):
		r.done = true
	}
	return nil, nil
}

func (d *leaseDB) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error { return fn(d) }

var leaseDay = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func TestDayLease_ClaimOnce(t *testing.T) {
	db := newLeaseDB(leaseDay.Add(26 * time.Hour))
	lease := MakeDayLease(db, "test", time.Hour)

	runs := 0
	do := func(context.Context) error { runs++; return nil }

	if err := lease(context.Background(), "pilot", leaseDay, do); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := lease(context.Background(), "pilot", leaseDay, do); !errors.Is(err, ErrLeaseHeld) {
		t.Fatalf("second claim err = %v, want ErrLeaseHeld", err)
	}
	// a finished day stays held after the ttl
	db.now = db.now.Add(2 * time.Hour)
	if err := lease(context.Background(), "pilot", leaseDay, do); !errors.Is(err, ErrLeaseHeld) {
		t.Fatalf("finished day err = %v, want ErrLeaseHeld", err)
	}
	// another plan on the same day is a different key
	if err := lease(context.Background(), "wave2", leaseDay, do); err != nil {
		t.Fatalf("other plan: %v", err)
	}
	if runs != 2 {
		t.Fatalf("runs = %d, want 2", runs)
	}
}

func TestDayLease_FailedRunCanBeReclaimed(t *testing.T) {
	db := newLeaseDB(leaseDay.Add(26 * time.Hour))
	lease := MakeDayLease(db, "test", time.Hour)

	sinkDown := perr.Unavailablef("sink down")
	err := lease(context.Background(), "pilot", leaseDay, func(context.Context) error { return sinkDown })
	if !errors.Is(err, sinkDown) || perr.CodeOf(err) != perr.ErrorCodeUnavailable {
		t.Fatalf("failed run err = %v", err)
	}

	ran := false
	if err := lease(context.Background(), "pilot", leaseDay, func(context.Context) error { ran = true; return nil }); err != nil || !ran {
		t.Fatalf("reclaim = %v, ran %v", err, ran)
	}
}

func TestDayLease_CancelledRunStillReleases(t *testing.T) {
	db := newLeaseDB(leaseDay.Add(26 * time.Hour))
	lease := MakeDayLease(db, "test", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	err := lease(ctx, "pilot", leaseDay, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if db.writeCtxErr != nil {
		t.Fatalf("release ran on a cancelled context: %v", db.writeCtxErr)
	}
	if len(db.rows) != 0 {
		t.Fatalf("claim left behind: %+v", db.rows)
	}
}

func TestDayLease_ExpiredClaimIsReclaimed(t *testing.T) {
	now := leaseDay.Add(26 * time.Hour)
	db := newLeaseDB(now)
	key := "pilot|" + leaseDay.Format(time.DateOnly)
	lease := MakeDayLease(db, "test", time.Hour)
	do := func(context.Context) error { return nil }

	// a crashed runner's claim that is still live
	db.rows[key] = &leaseRow{owner: "crashed:1", expires: now.Add(time.Minute)}
	if err := lease(context.Background(), "pilot", leaseDay, do); !errors.Is(err, ErrLeaseHeld) {
		t.Fatalf("live claim err = %v", err)
	}

	db.now = now.Add(2 * time.Minute)
	if err := lease(context.Background(), "pilot", leaseDay, do); err != nil {
		t.Fatalf("expired claim: %v", err)
	}
	if r := db.rows[key]; !r.done || r.owner == "crashed:1" {
		t.Fatalf("row = %+v", r)
	}
}

func TestDayLease_DBError(t *testing.T) {
	db := newLeaseDB(time.Now())
	db.fail = errors.New("connection reset")
	err := MakeDayLease(db, "test", 0)(context.Background(), "pilot", time.Now(), func(context.Context) error {
		t.Fatal("do must not run without a claim")
		return nil
	})
	if err == nil || errors.Is(err, ErrLeaseHeld) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := perr.As(err); !ok {
		t.Fatalf("db failure should be a project error: %T", err)
	}
}

func TestNoLease(t *testing.T) {
	ran := false
	_ = NoLease(context.Background(), "", time.Time{}, func(context.Context) error { ran = true; return nil })
	if !ran {
		t.Fatal("NoLease did not run do")
	}
}

func TestTimeouts_NeverExtendParent(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ctx, c2 := ForUnit(parent, Timeouts{Unit: time.Hour})
	defer c2()
	if rem := Remaining(ctx); rem <= 0 || rem > 50*time.Millisecond {
		t.Fatalf("remaining = %v, want <= parent budget", rem)
	}

	ctx, c3 := ForRead(context.Background(), Timeouts{Read: 10 * time.Millisecond})
	defer c3()
	if rem := Remaining(ctx); rem <= 0 || rem > 10*time.Millisecond {
		t.Fatalf("read remaining = %v", rem)
	}

	ctx, c4 := ForRead(context.Background(), Timeouts{})
	defer c4()
	if _, ok := ctx.Deadline(); ok {
		t.Fatal("zero budget should not add a deadline")
	}
}

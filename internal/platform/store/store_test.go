package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/platform/config"
)

func TestOpen_NothingEnabled(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), Config{}, WithRole("fusion"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.PG != nil || s.CH != nil {
		t.Fatalf("no backends expected")
	}
	if s.role != "fusion" {
		t.Fatalf("role option not applied")
	}
	if err := s.Guard(context.Background()); err != nil {
		t.Fatalf("Guard with no seams: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpen_OptionError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := Open(context.Background(), Config{}, func(*Store) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("want option error, got %v", err)
	}
}

func TestGuard_NilStore(t *testing.T) {
	t.Parallel()

	var s *Store
	if err := s.Guard(context.Background()); err == nil {
		t.Fatalf("nil store should return error")
	}
}

func TestGuard_JoinsBackendErrors(t *testing.T) {
	t.Parallel()

	s := &Store{
		PG: &fakeQuerier{pingErr: errors.New("pg down")},
		CH: newCHAdapter(&fakeCH{pingErr: errors.New("ch down")}, nil, 0),
	}
	err := s.Guard(context.Background())
	if err == nil {
		t.Fatalf("expected joined error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "pg: pg down") || !strings.Contains(msg, "ch: ch down") {
		t.Fatalf("unexpected guard error: %q", msg)
	}
}

func TestClose_ClosesBoth(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{}
	c := &fakeCH{}
	s := &Store{PG: q, CH: newCHAdapter(c, nil, 0)}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !q.closed || !c.closed {
		t.Fatalf("backends not closed: pg=%v ch=%v", q.closed, c.closed)
	}
}

func TestPingWithBackoff(t *testing.T) {
	t.Parallel()

	calls := 0
	err := pingWithBackoff(context.Background(), 3, time.Second, func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}

	calls = 0
	err = pingWithBackoff(context.Background(), 2, time.Second, func(context.Context) error {
		calls++
		return errors.New("never")
	})
	if err == nil || calls != 2 || !strings.Contains(err.Error(), "after 2 attempts") {
		t.Fatalf("exhaustion: err=%v calls=%d", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = pingWithBackoff(ctx, 5, time.Second, func(context.Context) error { return errors.New("x") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled ctx: %v", err)
	}
}

func TestFromConf(t *testing.T) {
	t.Setenv("CORE_PG_URL", "postgres://u:p@db:5432/osrp")
	t.Setenv("CORE_PG_MAX_CONNS", "3")
	t.Setenv("CORE_CH_URL", "clickhouse://ch:9000/osrp")
	t.Setenv("CORE_CH_ENABLED", "false")

	cfg := FromConf(config.New().Prefix("CORE_"), "osrp-fusion")
	if cfg.AppName != "osrp-fusion" || !cfg.PG.Enabled || cfg.PG.MaxConns != 3 {
		t.Fatalf("pg config mismatch: %+v", cfg.PG)
	}
	if cfg.CH.Enabled || cfg.CH.URL != "clickhouse://ch:9000/osrp" {
		t.Fatalf("ch config mismatch: %+v", cfg.CH)
	}
	if cfg.PG.PingTimeout != 3*time.Second || cfg.CH.DialTimeout != 5*time.Second {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

package store

import (
	"context"
	"fmt"
	"time"

	chx "github.com/open-sensor-research-platform/osrp/internal/platform/store/ch"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store/pg"
)

const (
	backoffStart   = 150 * time.Millisecond
	backoffCeiling = 2 * time.Second
)

// pingWithBackoff pings until ok, attempts run out or ctx ends
func pingWithBackoff(ctx context.Context, attempts int, timeout time.Duration, ping func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 20
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	var lastErr error
	backoff := backoffStart
	for i := 0; i < attempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = ping(toCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, backoffCeiling)
	}
	return fmt.Errorf("ping failed after %d attempts: %w", attempts, lastErr)
}

// openPG opens pg and wraps it with our sql adapter
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log, "pg")
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
		AppName:  cfg.AppName,
	}, pg.WithTracer(tracer))
	if err != nil {
		return nil, err
	}

	// ping the pool directly so boot does not emit a trace line per attempt
	if err := pingWithBackoff(ctx, cfg.PG.ConnectRetries, cfg.PG.PingTimeout, p.Pool.Ping); err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return newPGAdapter(p), nil
}

// openCH opens the clickhouse driver and wraps it with our seam
func openCH(ctx context.Context, cfg Config, s *Store) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{
		URL:         cfg.CH.URL,
		MaxConns:    cfg.CH.MaxConns,
		DialTimeout: cfg.CH.DialTimeout,
		ClientInfo:  chx.BuildClientInfo(cfg.AppName, s.role, cfg.CH.ClientTag),
	})
	if err != nil {
		return nil, err
	}
	if err := pingWithBackoff(ctx, cfg.PG.ConnectRetries, cfg.CH.DialTimeout, c.Ping); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("clickhouse: %w", err)
	}
	var tracer pg.QueryTracer
	if cfg.CH.LogSQL {
		tracer = pg.Tracer(s.Log, "ch")
	}
	return newCHAdapter(c, tracer, cfg.PG.SlowQueryMs), nil
}

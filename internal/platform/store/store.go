// Package store is the fusion engine's view of its backing stores.
// Postgres holds EMA responses, the participant roster, day leases and
// feature windows; ClickHouse holds the high-rate sensor, wearable and
// screenshot tables. Either may be off, in which case its seam is nil.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"
)

// Row is one scannable result row
type Row interface {
	Scan(dest ...any) error
}

// Rows is a forward-only result set
type Rows interface {
	Row
	Next() bool
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports what a write did
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the sql surface repos are written against
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner is a RowQuerier that can also scope fn to one transaction
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse is the columnar seam: ordered range reads and batch inserts
type Clickhouse interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Insert(ctx context.Context, table string, rows [][]any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Ping(ctx context.Context) error
	Close() error
}

// Pinger reports readiness
type Pinger interface{ Ping(context.Context) error }

// Store holds whichever seams Open was asked for
type Store struct {
	Log logger.Logger
	PG  TxRunner
	CH  Clickhouse

	role string
}

// Option adjusts the Store before any backend is dialed
type Option func(*Store) error

// WithLogger sets the logger handed to tracers
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error { s.Log = log; return nil }
}

// WithRole names the process (api, fusion) in ClickHouse client info
func WithRole(role string) Option {
	return func(s *Store) error { s.role = role; return nil }
}

// Open dials the backends cfg enables; a failure closes what was already open
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.Log = s.Log.With().Logger()

	if cfg.PG.Enabled {
		db, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = db
	}
	if cfg.CH.Enabled {
		c, err := openCH(ctx, cfg, s)
		if err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		s.CH = c
	}
	return s, nil
}

type seam struct {
	name string
	v    any
}

// seams lists the configured backends in open order
func (s *Store) seams() []seam {
	var out []seam
	if s.PG != nil {
		out = append(out, seam{"pg", s.PG})
	}
	if s.CH != nil {
		out = append(out, seam{"ch", s.CH})
	}
	return out
}

// Guard pings every configured seam and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("store: nil")
	}
	var errs []error
	for _, sm := range s.seams() {
		p, ok := sm.v.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sm.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases every configured seam, ClickHouse first
func (s *Store) Close(context.Context) error {
	var errs []error
	seams := s.seams()
	for i := len(seams) - 1; i >= 0; i-- {
		if c, ok := seams[i].v.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", seams[i].name, err))
			}
		}
	}
	return errors.Join(errs...)
}

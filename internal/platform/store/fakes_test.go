package store

import (
	"context"
	"errors"

	"github.com/open-sensor-research-platform/osrp/internal/platform/store/ch"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store/pg"
)

// fakeRows iterates over canned values, one []any per row
type fakeRows struct {
	data    [][]any
	i       int
	cols    []string
	scanErr error
	iterErr error
	closed  bool
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.i-1]
	for i := range dest {
		switch d := dest[i].(type) {
		case *int:
			*d = row[i].(int)
		case *string:
			*d = row[i].(string)
		case *float64:
			*d = row[i].(float64)
		default:
			return errors.New("fakeRows: unsupported dest")
		}
	}
	return nil
}

func (r *fakeRows) Err() error        { return r.iterErr }
func (r *fakeRows) Close()            { r.closed = true }
func (r *fakeRows) Columns() []string { return r.cols }

// chFakeRows adapts fakeRows to ch.Rows (Close returns an error)
type chFakeRows struct{ *fakeRows }

func (r chFakeRows) Close() error { r.fakeRows.Close(); return nil }

type fakeTag struct{ n int64 }

func (t fakeTag) String() string      { return "INSERT 0 1" }
func (t fakeTag) RowsAffected() int64 { return t.n }

type fakeRow struct {
	v   any
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *int:
		*d = r.v.(int)
	case *string:
		*d = r.v.(string)
	}
	return nil
}

// fakeQuerier implements TxRunner over canned rows
type fakeQuerier struct {
	rows    *fakeRows
	row     fakeRow
	tag     fakeTag
	err     error
	pingErr error
	closed  bool
}

func (f *fakeQuerier) Exec(context.Context, string, ...any) (CommandTag, error) {
	return f.tag, f.err
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (Rows, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeQuerier) QueryRow(context.Context, string, ...any) Row { return f.row }

func (f *fakeQuerier) Tx(ctx context.Context, fn func(q RowQuerier) error) error { return fn(f) }

func (f *fakeQuerier) Ping(context.Context) error { return f.pingErr }

func (f *fakeQuerier) Close() error { f.closed = true; return nil }

// fakeCH implements chConn
type fakeCH struct {
	rows     *fakeRows
	err      error
	inserted map[string][][]any
	pingErr  error
	closed   bool
}

func (f *fakeCH) Query(context.Context, string, ...any) (ch.Rows, error) {
	if f.err != nil {
		return nil, f.err
	}
	return chFakeRows{f.rows}, nil
}

func (f *fakeCH) Exec(context.Context, string, ...any) error { return f.err }

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	if f.err != nil {
		return f.err
	}
	if f.inserted == nil {
		f.inserted = map[string][][]any{}
	}
	f.inserted[table] = append(f.inserted[table], rows...)
	return nil
}

func (f *fakeCH) Ping(context.Context) error { return f.pingErr }
func (f *fakeCH) Close() error               { f.closed = true; return nil }

// recTracer records query events
type recTracer struct{ events []pg.QueryEvent }

func (r *recTracer) OnQuery(_ context.Context, ev pg.QueryEvent) { r.events = append(r.events, ev) }

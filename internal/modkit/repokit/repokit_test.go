package repokit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/platform/store"
)

type tag struct{}

func (tag) String() string      { return "" }
func (tag) RowsAffected() int64 { return 0 }

// recorder logs statements and runs Tx inline on itself
type recorder struct {
	sql    []string
	failOn string
	txs    int
}

func (r *recorder) Exec(_ context.Context, sql string, _ ...any) (store.CommandTag, error) {
	r.sql = append(r.sql, sql)
	if r.failOn != "" && sql == r.failOn {
		return nil, errors.New("refused")
	}
	return tag{}, nil
}

func (r *recorder) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (r *recorder) QueryRow(context.Context, string, ...any) store.Row        { return nil }

func (r *recorder) Tx(ctx context.Context, fn func(Queryer) error) error {
	r.txs++
	return fn(r)
}

func TestBindFunc(t *testing.T) {
	rec := &recorder{}
	var got Queryer
	b := BindFunc[string](func(q Queryer) string { got = q; return "windows" })
	if b.Bind(rec) != "windows" || got != rec {
		t.Fatal("BindFunc did not forward its queryer")
	}
}

func TestWithTxSetup_RunsSetupFirst(t *testing.T) {
	rec := &recorder{}
	db := WithTxSetup(rec, StatementTimeout(1500*time.Millisecond))

	err := db.Tx(context.Background(), func(q Queryer) error {
		_, err := q.Exec(context.Background(), "INSERT INTO feature_windows")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"SET LOCAL statement_timeout = 1500", "INSERT INTO feature_windows"}
	if len(rec.sql) != 2 || rec.sql[0] != want[0] || rec.sql[1] != want[1] {
		t.Fatalf("statements %q", rec.sql)
	}

	// plain Exec bypasses setup
	_, _ = db.Exec(context.Background(), "SELECT 1")
	if rec.sql[2] != "SELECT 1" || rec.txs != 1 {
		t.Fatalf("statements %q txs %d", rec.sql, rec.txs)
	}
}

func TestWithTxSetup_SetupErrorSkipsFn(t *testing.T) {
	rec := &recorder{failOn: "SET LOCAL statement_timeout = 10"}
	ran := false
	err := WithTxSetup(rec, StatementTimeout(10*time.Millisecond)).Tx(context.Background(), func(Queryer) error {
		ran = true
		return nil
	})
	if err == nil || ran {
		t.Fatalf("err %v ran %v", err, ran)
	}
}

func TestWithTxSetup_Passthrough(t *testing.T) {
	rec := &recorder{}
	if WithTxSetup(rec) != TxRunner(rec) {
		t.Fatal("no setup should return inner")
	}
	if WithTxSetup(nil, StatementTimeout(time.Second)) != nil {
		t.Fatal("nil inner should stay nil")
	}
	_ = WithTxSetup(rec, StatementTimeout(0)).Tx(context.Background(), func(Queryer) error { return nil })
	if len(rec.sql) != 0 {
		t.Fatalf("zero timeout issued %q", rec.sql)
	}
}

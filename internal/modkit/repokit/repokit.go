// Package repokit is the seam repos are written against: a query surface, a
// tx runner, and binders that attach a domain repo to either
package repokit

import (
	"context"
	"fmt"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/platform/store"
)

type (
	// Queryer is the read and write surface a repo binds to
	Queryer = store.RowQuerier

	// TxRunner is a Queryer that can also open a transaction
	TxRunner = store.TxRunner
)

// Binder attaches a domain repo of type T to a Queryer, pool or tx
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a plain function to Binder
type BindFunc[T any] func(Queryer) T

// Bind implements Binder
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// TxSetup runs first inside every transaction opened through WithTxSetup
type TxSetup func(ctx context.Context, q Queryer) error

// WithTxSetup returns a TxRunner whose transactions run setup before fn
// Statements outside a transaction go straight to inner
func WithTxSetup(inner TxRunner, setup ...TxSetup) TxRunner {
	if inner == nil || len(setup) == 0 {
		return inner
	}
	return setupTx{TxRunner: inner, setup: setup}
}

type setupTx struct {
	TxRunner
	setup []TxSetup
}

func (s setupTx) Tx(ctx context.Context, fn func(Queryer) error) error {
	return s.TxRunner.Tx(ctx, func(q Queryer) error {
		for _, f := range s.setup {
			if err := f(ctx, q); err != nil {
				return err
			}
		}
		return fn(q)
	})
}

// StatementTimeout bounds every statement in the transaction to d
// Postgres SET does not take bind parameters, so d is formatted in as milliseconds
func StatementTimeout(d time.Duration) TxSetup {
	return func(ctx context.Context, q Queryer) error {
		if d <= 0 {
			return nil
		}
		_, err := q.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", d.Milliseconds()))
		return err
	}
}

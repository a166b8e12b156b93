package testutil

import (
	"context"
	"database/sql"
	"sync/atomic"

	"aisri/internal/store"
)

// FailOnNthExec returns a transaction wrapper for Store.WithTxWrapper that
// injects err on the Nth ExecContext call of each transaction. Calls are
// counted from 1; reads pass through.
func FailOnNthExec(n int32, err error) func(store.DBTX) store.DBTX {
	return func(tx store.DBTX) store.DBTX {
		return &failOnNthExec{DBTX: tx, failOn: n, err: err}
	}
}

type failOnNthExec struct {
	store.DBTX
	count  atomic.Int32
	failOn int32
	err    error
}

func (f *failOnNthExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.count.Add(1) == f.failOn {
		return nil, f.err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}

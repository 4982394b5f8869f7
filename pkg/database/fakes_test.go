package database

import (
	"context"
	"errors"
	"sync/atomic"
)

// stubPool is a Pool whose QueryRow returns a fixed value or error.
type stubPool struct {
	driver   Driver
	rowErr   error
	closed   atomic.Int32
	lastStmt string
}

func (p *stubPool) Query(context.Context, string, ...any) (Rows, error) {
	return nil, errors.New("not implemented")
}

func (p *stubPool) QueryRow(_ context.Context, query string, _ ...any) Row {
	p.lastStmt = query
	return stubRow{err: p.rowErr}
}

func (p *stubPool) Exec(context.Context, string, ...any) (int64, error) { return 0, nil }
func (p *stubPool) Begin(context.Context) (Tx, error)                   { return &stubTx{}, nil }
func (p *stubPool) Ping(context.Context) error                          { return nil }
func (p *stubPool) Driver() Driver                                      { return p.driver }
func (p *stubPool) Close()                                              { p.closed.Add(1) }

type stubRow struct{ err error }

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 1 {
		if n, ok := dest[0].(*int); ok {
			*n = 1
		}
	}
	return nil
}

// stubTx records how the transaction ended.
type stubTx struct {
	commits     int
	rollbacks   int
	commitErr   error
	rollbackErr error
	rollbackCtx context.Context
}

func (t *stubTx) Query(context.Context, string, ...any) (Rows, error) {
	return nil, errors.New("not implemented")
}
func (t *stubTx) QueryRow(context.Context, string, ...any) Row        { return stubRow{} }
func (t *stubTx) Exec(context.Context, string, ...any) (int64, error) { return 1, nil }

func (t *stubTx) Commit(context.Context) error {
	t.commits++
	return t.commitErr
}

func (t *stubTx) Rollback(ctx context.Context) error {
	t.rollbacks++
	t.rollbackCtx = ctx
	return t.rollbackErr
}

// txPool hands out one stubTx.
type txPool struct {
	stubPool
	tx       *stubTx
	beginErr error
}

func (p *txPool) Begin(context.Context) (Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	return p.tx, nil
}

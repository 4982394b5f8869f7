package database

import (
	"context"
	"fmt"
)

// WithTx runs fn inside a transaction on pool. The transaction commits when fn returns nil
// and rolls back on any error or panic; the panic is re-raised after rollback.
func WithTx(ctx context.Context, pool Pool, fn func(tx Tx) error) (err error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			// The caller's context may already be done; rollback must still reach the store.
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
			return
		}
		err = tx.Commit(ctx)
	}()

	return fn(tx)
}

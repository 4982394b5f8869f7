package database

import (
	"context"
	"errors"
)

// Driver identifies the relational engine behind a Pool.
type Driver string

const (
	DriverPostgres  Driver = "postgres"
	DriverSQLServer Driver = "sqlserver"
)

// ErrNoRows is returned by Row.Scan when the query matched nothing, whatever the driver.
var ErrNoRows = errors.New("no rows in result set")

// Row is a single-row result.
type Row interface {
	Scan(dest ...any) error
}

// Rows iterates a multi-row result. Close must be called when iteration stops early.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier is the statement surface shared by pools and transactions.
// Statements use $1, $2, ... placeholders regardless of driver.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Exec(ctx context.Context, query string, args ...any) (int64, error)
}

// Tx is a read-committed transaction. Exactly one of Commit or Rollback ends it.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Pool is the shared, bounded set of store connections.
// Every error it returns is already classified into the apperrors taxonomy.
type Pool interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Driver() Driver
	Close()
}

// Acquirer hands out the process-wide pool, creating it on first use.
type Acquirer interface {
	Acquire(ctx context.Context) (Pool, error)
}

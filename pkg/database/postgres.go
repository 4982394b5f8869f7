package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds the pool settings shared by both drivers.
type Config struct {
	Driver          Driver
	URL             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 25
	}
	if cfg.MaxConnLifetime == 0 {
		cfg.MaxConnLifetime = time.Hour
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = time.Minute * 30
	}
	return cfg
}

// Connect opens a pool for cfg.Driver and verifies it with a ping.
func Connect(ctx context.Context, cfg *Config) (Pool, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		pool, err := NewPostgresPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return pool, nil
	case DriverSQLServer:
		pool, err := NewSQLServerPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return pool, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// PostgresPool wraps a pgxpool connection pool.
type PostgresPool struct {
	pool *pgxpool.Pool
}

// NewPostgresPool creates a new PostgreSQL connection pool.
func NewPostgresPool(ctx context.Context, cfg *Config) (*PostgresPool, error) {
	c := cfg.withDefaults()

	poolConfig, err := pgxpool.ParseConfig(c.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = c.MaxConnections
	poolConfig.MaxConnLifetime = c.MaxConnLifetime
	poolConfig.MaxConnIdleTime = c.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, Classify("create connection pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, Classify("ping database", err)
	}

	return &PostgresPool{pool: pool}, nil
}

func (p *PostgresPool) Driver() Driver { return DriverPostgres }

func (p *PostgresPool) Ping(ctx context.Context) error {
	return Classify("ping database", p.pool.Ping(ctx))
}

func (p *PostgresPool) Close() { p.pool.Close() }

func (p *PostgresPool) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return pgQuery(ctx, p.pool, query, args)
}

func (p *PostgresPool) QueryRow(ctx context.Context, query string, args ...any) Row {
	return pgRow{row: p.pool.QueryRow(ctx, query, args...)}
}

func (p *PostgresPool) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return pgExec(ctx, p.pool, query, args)
}

// Begin starts a read-committed transaction.
func (p *PostgresPool) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, Classify("begin transaction", err)
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return pgQuery(ctx, t.tx, query, args)
}

func (t *pgTx) QueryRow(ctx context.Context, query string, args ...any) Row {
	return pgRow{row: t.tx.QueryRow(ctx, query, args...)}
}

func (t *pgTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return pgExec(ctx, t.tx, query, args)
}

func (t *pgTx) Commit(ctx context.Context) error {
	return Classify("commit transaction", t.tx.Commit(ctx))
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return Classify("rollback transaction", err)
}

// pgQuerier is the subset of pgxpool.Pool and pgx.Tx used here.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func pgExec(ctx context.Context, e pgExecer, query string, args []any) (int64, error) {
	tag, err := e.Exec(ctx, query, args...)
	if err != nil {
		return 0, Classify("exec", err)
	}
	return tag.RowsAffected(), nil
}

func pgQuery(ctx context.Context, q pgQuerier, query string, args []any) (Rows, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, Classify("query", err)
	}
	return pgRows{rows: rows}, nil
}

type pgRow struct {
	row pgx.Row
}

func (r pgRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	return Classify("scan row", err)
}

type pgRows struct {
	rows pgx.Rows
}

func (r pgRows) Next() bool { return r.rows.Next() }

func (r pgRows) Scan(dest ...any) error { return Classify("scan row", r.rows.Scan(dest...)) }

func (r pgRows) Err() error { return Classify("iterate rows", r.rows.Err()) }

func (r pgRows) Close() { r.rows.Close() }

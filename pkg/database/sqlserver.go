package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
)

// SQLServerPool wraps a database/sql pool opened with the SQL Server driver.
type SQLServerPool struct {
	db *sql.DB
}

// NewSQLServerPool opens a SQL Server pool from a sqlserver:// URL and pings it.
func NewSQLServerPool(ctx context.Context, cfg *Config) (*SQLServerPool, error) {
	c := cfg.withDefaults()

	db, err := sql.Open("sqlserver", c.URL)
	if err != nil {
		return nil, fmt.Errorf("open SQL Server connection: %w", err)
	}
	db.SetMaxOpenConns(int(c.MaxConnections))
	db.SetMaxIdleConns(int(c.MaxConnections))
	db.SetConnMaxLifetime(c.MaxConnLifetime)
	db.SetConnMaxIdleTime(c.MaxConnIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, Classify("ping database", err)
	}

	return &SQLServerPool{db: db}, nil
}

func (p *SQLServerPool) Driver() Driver { return DriverSQLServer }

func (p *SQLServerPool) Ping(ctx context.Context) error {
	return Classify("ping database", p.db.PingContext(ctx))
}

func (p *SQLServerPool) Close() { _ = p.db.Close() }

func (p *SQLServerPool) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return msQuery(ctx, p.db, query, args)
}

func (p *SQLServerPool) QueryRow(ctx context.Context, query string, args ...any) Row {
	return msRow{row: p.db.QueryRowContext(ctx, rebind(query), namedParams(args)...)}
}

func (p *SQLServerPool) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return msExec(ctx, p.db, query, args)
}

// Begin starts a read-committed transaction.
func (p *SQLServerPool) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, Classify("begin transaction", err)
	}
	return &msTx{tx: tx}, nil
}

type msTx struct {
	tx *sql.Tx
}

func (t *msTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return msQuery(ctx, t.tx, query, args)
}

func (t *msTx) QueryRow(ctx context.Context, query string, args ...any) Row {
	return msRow{row: t.tx.QueryRowContext(ctx, rebind(query), namedParams(args)...)}
}

func (t *msTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return msExec(ctx, t.tx, query, args)
}

func (t *msTx) Commit(_ context.Context) error {
	return Classify("commit transaction", t.tx.Commit())
}

func (t *msTx) Rollback(_ context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return Classify("rollback transaction", err)
}

type msQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func msQuery(ctx context.Context, q msQuerier, query string, args []any) (Rows, error) {
	rows, err := q.QueryContext(ctx, rebind(query), namedParams(args)...)
	if err != nil {
		return nil, Classify("query", err)
	}
	return msRows{rows: rows}, nil
}

func msExec(ctx context.Context, q msQuerier, query string, args []any) (int64, error) {
	result, err := q.ExecContext(ctx, rebind(query), namedParams(args)...)
	if err != nil {
		return 0, Classify("exec", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, Classify("rows affected", err)
	}
	return n, nil
}

type msRow struct {
	row *sql.Row
}

func (r msRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	return Classify("scan row", err)
}

type msRows struct {
	rows *sql.Rows
}

func (r msRows) Next() bool { return r.rows.Next() }

func (r msRows) Scan(dest ...any) error { return Classify("scan row", r.rows.Scan(dest...)) }

func (r msRows) Err() error { return Classify("iterate rows", r.rows.Err()) }

func (r msRows) Close() { _ = r.rows.Close() }

var positionalParam = regexp.MustCompile(`\$(\d+)`)

// rebind converts PostgreSQL-style positional parameters ($1, $2, ...)
// to SQL Server named parameters (@p1, @p2, ...).
func rebind(query string) string {
	return positionalParam.ReplaceAllString(query, "@p$1")
}

func namedParams(args []any) []any {
	named := make([]any, len(args))
	for i, arg := range args {
		named[i] = sql.Named(fmt.Sprintf("p%d", i+1), arg)
	}
	return named
}

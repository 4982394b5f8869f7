package repositories

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/sublyime/ingestion/pkg/database"
)

// fakeStore is a scripted database.Pool. Statements run against it, whether on the pool or
// inside a transaction, are recorded in order.
type fakeStore struct {
	driver database.Driver

	queryRow func(query string, args []any) database.Row
	query    func(query string, args []any) (database.Rows, error)
	exec     func(query string, args []any) (int64, error)
	beginErr error

	mu         sync.Mutex
	statements []string
	commits    int
	rollbacks  int
}

var _ database.Pool = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{driver: database.DriverPostgres}
}

func (f *fakeStore) record(query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statements = append(f.statements, strings.Join(strings.Fields(query), " "))
}

func (f *fakeStore) Query(_ context.Context, query string, args ...any) (database.Rows, error) {
	f.record(query)
	if f.query == nil {
		return &fakeRows{}, nil
	}
	return f.query(query, args)
}

func (f *fakeStore) QueryRow(_ context.Context, query string, args ...any) database.Row {
	f.record(query)
	if f.queryRow == nil {
		return fakeRow{err: database.ErrNoRows}
	}
	return f.queryRow(query, args)
}

func (f *fakeStore) Exec(_ context.Context, query string, args ...any) (int64, error) {
	f.record(query)
	if f.exec == nil {
		return 1, nil
	}
	return f.exec(query, args)
}

func (f *fakeStore) Begin(context.Context) (database.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &fakeTx{store: f}, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Driver() database.Driver    { return f.driver }
func (f *fakeStore) Close()                     {}

func (f *fakeStore) Acquire(context.Context) (database.Pool, error) { return f, nil }

type fakeTx struct {
	store *fakeStore
	done  bool
}

func (t *fakeTx) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return t.store.Query(ctx, query, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return t.store.QueryRow(ctx, query, args...)
}

func (t *fakeTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return t.store.Exec(ctx, query, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	t.store.mu.Lock()
	t.store.commits++
	t.store.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	t.store.rollbacks++
	t.store.mu.Unlock()
	return nil
}

// fakeRow scans values into destinations by reflection.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error { return assign(dest, r.rows[r.pos-1]) }
func (r *fakeRows) Err() error             { return r.err }
func (r *fakeRows) Close()                 {}

func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

type failingAcquirer struct {
	err error
}

func (a failingAcquirer) Acquire(context.Context) (database.Pool, error) {
	return nil, a.err
}

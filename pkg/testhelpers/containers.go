package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/sublyime/ingestion/pkg/database"
)

// PostgresImage is the stock image the catalog schema is applied to.
const PostgresImage = "postgres:16-alpine"

// TestDB holds a shared PostgreSQL container with the catalog schema applied.
type TestDB struct {
	Container testcontainers.Container
	Pool      database.Pool
	Config    *database.Config
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

// Acquirer returns an Acquirer that always hands out the shared pool.
func (db *TestDB) Acquirer() database.Acquirer {
	return staticAcquirer{pool: db.Pool}
}

// Reset empties the data source tables. The seeded source types are left in place.
func (db *TestDB) Reset(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	if _, err := db.Pool.Exec(ctx, "DELETE FROM connection_properties"); err != nil {
		t.Fatalf("Failed to clear connection properties: %v", err)
	}
	if _, err := db.Pool.Exec(ctx, "DELETE FROM data_sources"); err != nil {
		t.Fatalf("Failed to clear data sources: %v", err)
	}
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "ingestion_test",
			"POSTGRES_USER":     "ingestion",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	cfg := &database.Config{
		Driver: database.DriverPostgres,
		URL: fmt.Sprintf("postgres://ingestion:test_password@%s:%s/ingestion_test?sslmode=disable",
			host, port.Port()),
		MaxConnections: 10,
	}

	if err := database.ApplySchema(cfg, zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &TestDB{
		Container: container,
		Pool:      pool,
		Config:    cfg,
	}, nil
}

type staticAcquirer struct {
	pool database.Pool
}

func (a staticAcquirer) Acquire(context.Context) (database.Pool, error) {
	return a.pool, nil
}

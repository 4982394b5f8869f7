package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlserver"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"go.uber.org/zap"

	"github.com/sublyime/ingestion/pkg/logging"
	"github.com/sublyime/ingestion/pkg/retry"
)

//go:embed migrations/postgres/*.sql migrations/sqlserver/*.sql
var migrationsFS embed.FS

// ApplySchema brings the catalog tables up to date for cfg.Driver.
// It opens its own short-lived connection and is safe to call repeatedly.
func ApplySchema(cfg *Config, logger *zap.Logger) error {
	driverName, dir := "pgx", "migrations/postgres"
	if cfg.Driver == DriverSQLServer {
		driverName, dir = "sqlserver", "migrations/sqlserver"
	}

	db, err := sql.Open(driverName, cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to open schema connection: %w", err)
	}

	var instance migratedb.Driver
	if cfg.Driver == DriverSQLServer {
		instance, err = sqlserver.WithInstance(db, &sqlserver.Config{})
	} else {
		instance, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		db.Close()
		return Classify("create schema driver", err)
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to load embedded schema: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(cfg.Driver), instance)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema instance: %w", err)
	}

	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close schema source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close schema connection", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("Schema up to date")
		return nil
	}
	if err != nil {
		return Classify("apply schema", err)
	}

	version, _, _ := m.Version()
	logger.Info("Applied schema", zap.Uint("version", version), zap.String("driver", string(cfg.Driver)))
	return nil
}

// ApplySchemaWhenReady runs ApplySchema at startup, backing off while the store is still
// coming up. Only transient connectivity failures are retried; ctx bounds the wait.
func ApplySchemaWhenReady(ctx context.Context, cfg *Config, backoff *retry.Config, logger *zap.Logger) error {
	return applyWithRetry(ctx, backoff, logger, func() error {
		return ApplySchema(cfg, logger)
	})
}

func applyWithRetry(ctx context.Context, backoff *retry.Config, logger *zap.Logger, apply func() error) error {
	return retry.Do(ctx, backoff, func(context.Context) error {
		err := apply()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return retry.Permanent(err)
		}
		logger.Warn("Database not ready for schema bootstrap, retrying",
			zap.String("error", logging.SanitizeError(err)))
		return err
	})
}

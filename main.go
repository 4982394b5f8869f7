package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sublyime/ingestion/pkg/config"
	"github.com/sublyime/ingestion/pkg/database"
	"github.com/sublyime/ingestion/pkg/events"
	"github.com/sublyime/ingestion/pkg/handlers"
	"github.com/sublyime/ingestion/pkg/logging"
	appmiddleware "github.com/sublyime/ingestion/pkg/middleware"
	"github.com/sublyime/ingestion/pkg/repositories"
	"github.com/sublyime/ingestion/pkg/retry"
	"github.com/sublyime/ingestion/pkg/services"
	"github.com/sublyime/ingestion/pkg/telemetry"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	shutdownTimeout = 10 * time.Second
	healthTimeout   = 5 * time.Second
	schemaTimeout   = time.Minute
)

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := setupLogger(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", zap.String("error", logging.SanitizeError(err)))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting ingestion catalog",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("addr", cfg.Addr()),
		zap.String("database", cfg.Database.Describe()),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Bool("events", cfg.Events.NATSURL != ""))

	poolConfig := cfg.Database.PoolConfig()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		err := database.ApplySchemaWhenReady(ctx, poolConfig, retry.DefaultConfig(), logger)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	// The pool is created on first use; the service starts even when the store is down.
	pools := database.NewManagerFromConfig(poolConfig, cfg.Database.ConnectTimeout, logger)
	defer pools.Close()

	publisher, err := setupPublisher(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	tel, err := telemetry.New(cfg.Metrics.Enabled, cfg.Version, logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	httpMetrics, err := telemetry.NewHTTPMetrics(tel.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	// Repositories
	dataSourceRepo := repositories.NewDataSourceRepository(pools)
	sourceTypeRepo := repositories.NewSourceTypeRepository(pools)

	// Services
	dataSourceService := services.NewDataSourceService(dataSourceRepo, publisher, cfg.Database.QueryTimeout, logger)
	sourceTypeService := services.NewSourceTypeService(sourceTypeRepo, cfg.Database.QueryTimeout)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(pools, healthTimeout, logger).RegisterRoutes(mux)
	handlers.NewDataSourcesHandler(dataSourceService, logger).RegisterRoutes(mux)
	handlers.NewSourceTypesHandler(sourceTypeService, logger).RegisterRoutes(mux)

	if tel.Enabled() {
		mux.Handle("GET /metrics", tel.Handler())
	}

	var handler http.Handler = mux
	handler = appmiddleware.CORS(cfg.CORS.AllowedOrigins)(handler)
	handler = middleware.Recoverer(handler)
	handler = appmiddleware.RequestLogger(logger)(handler)
	handler = httpMetrics.Middleware(handler)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func setupPublisher(cfg config.EventsConfig, logger *zap.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		return events.NoopPublisher{}, nil
	}
	publisher, err := events.ConnectNATS(cfg.NATSURL, cfg.SubjectPrefix, logger)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

func setupLogger(level string, jsonFormat bool) (*zap.Logger, error) {
	var zapCfg zap.Config
	if jsonFormat {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zapCfg.Level = atomic

	return zapCfg.Build()
}

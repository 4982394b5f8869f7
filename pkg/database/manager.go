package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sublyime/ingestion/pkg/apperrors"
	"github.com/sublyime/ingestion/pkg/logging"
)

// DefaultConnectTimeout bounds pool creation when the manager is given no timeout.
const DefaultConnectTimeout = 15 * time.Second

// Connector establishes a new pool. It is called at most once per successful initialization.
type Connector func(ctx context.Context) (Pool, error)

// Manager owns the process-wide pool. The pool is created lazily on the first Acquire;
// concurrent first callers share one creation attempt. A failed attempt leaves the manager
// empty so the next Acquire tries again.
type Manager struct {
	connect        Connector
	connectTimeout time.Duration
	logger         *zap.Logger

	group singleflight.Group

	mu   sync.RWMutex
	pool Pool
}

var _ Acquirer = (*Manager)(nil)

// NewManager creates a Manager that builds its pool with connect.
func NewManager(connect Connector, connectTimeout time.Duration, logger *zap.Logger) *Manager {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &Manager{
		connect:        connect,
		connectTimeout: connectTimeout,
		logger:         logger,
	}
}

// NewManagerFromConfig creates a Manager whose connector opens cfg on first use.
func NewManagerFromConfig(cfg *Config, connectTimeout time.Duration, logger *zap.Logger) *Manager {
	return NewManager(func(ctx context.Context) (Pool, error) {
		return Connect(ctx, cfg)
	}, connectTimeout, logger)
}

// Acquire returns the shared pool, creating it if needed. Once the pool exists this never
// blocks. While a creation is in flight, callers wait for it or for their own ctx.
func (m *Manager) Acquire(ctx context.Context) (Pool, error) {
	if pool := m.current(); pool != nil {
		return pool, nil
	}

	ch := m.group.DoChan("pool", func() (any, error) {
		if pool := m.current(); pool != nil {
			return pool, nil
		}

		// The attempt is shared, so it must outlive the caller that happened to start it.
		createCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.connectTimeout)
		defer cancel()

		start := time.Now()
		pool, err := m.connect(createCtx)
		if err != nil {
			m.logger.Error("Failed to create database pool",
				zap.Duration("elapsed", time.Since(start)),
				zap.String("error", logging.SanitizeError(err)))
			return nil, err
		}

		m.mu.Lock()
		m.pool = pool
		m.mu.Unlock()

		m.logger.Info("Database pool ready",
			zap.String("driver", string(pool.Driver())),
			zap.Duration("elapsed", time.Since(start)))
		return pool, nil
	})

	select {
	case <-ctx.Done():
		return nil, apperrors.Connection("acquire pool", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, asConnectionError(res.Err)
		}
		return res.Val.(Pool), nil
	}
}

// Ready reports whether the pool has been created.
func (m *Manager) Ready() bool {
	return m.current() != nil
}

// Ping acquires the pool and runs a trivial query against it.
func (m *Manager) Ping(ctx context.Context) error {
	pool, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return err
	}
	return nil
}

// Close tears the pool down. A later Acquire creates a fresh one.
// Only process shutdown should call this.
func (m *Manager) Close() {
	m.mu.Lock()
	pool := m.pool
	m.pool = nil
	m.mu.Unlock()

	if pool != nil {
		pool.Close()
		m.logger.Info("Database pool closed")
	}
}

func (m *Manager) current() Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pool
}

// asConnectionError keeps connection failures as they are and reclassifies anything else
// raised while establishing the pool (bad URL, failed ping query) as a connection failure.
func asConnectionError(err error) error {
	if errors.Is(err, apperrors.ErrConnection) {
		return err
	}
	return apperrors.Connection("acquire pool", err)
}

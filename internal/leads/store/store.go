// Package store opens the lead store selected by STORE_DRIVER.
package store

import (
	"context"
	"fmt"

	"crm_backend/internal/leads/repository"
	"crm_backend/internal/leads/repository/sqlitestore"
	"crm_backend/platform/config"
	"crm_backend/platform/db"
	"crm_backend/platform/logger"
)

// Handle is an open store plus what the process needs to health-check and close it.
type Handle struct {
	Repo   repository.LeadsRepository
	Driver string
	ping   func(ctx context.Context) error
	close  func()
}

// Ping reports whether the underlying database answers.
func (h *Handle) Ping(ctx context.Context) error {
	return h.ping(ctx)
}

// Close releases the connection pool or file handle.
func (h *Handle) Close() {
	if h.close != nil {
		h.close()
	}
}

// Options controls Open.
type Options struct {
	// Migrate applies the embedded migrations before returning.
	Migrate bool
}

// Open connects to the configured store.
func Open(ctx context.Context, cfg config.DatabaseConfig, opts Options, log *logger.Logger) (*Handle, error) {
	switch cfg.GetStoreDriver() {
	case config.StoreDriverPostgres:
		return openPostgres(ctx, cfg, opts, log)
	case config.StoreDriverSQLite:
		return openSQLite(ctx, cfg, opts, log)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.GetStoreDriver())
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, opts Options, log *logger.Logger) (*Handle, error) {
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if opts.Migrate {
		applied, err := db.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		log.Info("database migrations complete", "driver", config.StoreDriverPostgres, "applied", applied)
	}

	return &Handle{
		Repo:   repository.New(pool),
		Driver: config.StoreDriverPostgres,
		ping:   pool.Ping,
		close:  pool.Close,
	}, nil
}

func openSQLite(ctx context.Context, cfg config.DatabaseConfig, opts Options, log *logger.Logger) (*Handle, error) {
	conn, err := db.OpenSQLite(ctx, cfg.GetSQLitePath())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if opts.Migrate {
		applied, err := db.RunSQLiteMigrations(ctx, conn)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		log.Info("database migrations complete", "driver", config.StoreDriverSQLite, "applied", applied)
	}

	return &Handle{
		Repo:   sqlitestore.New(conn),
		Driver: config.StoreDriverSQLite,
		ping:   conn.PingContext,
		close:  func() { _ = conn.Close() },
	}, nil
}

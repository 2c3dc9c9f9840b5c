package db

import (
	"context"
	"database/sql"
	"io/fs"

	"crm_backend/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunPostgresMigrations applies the embedded postgres migrations through the pool.
func RunPostgresMigrations(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	// The wrapper keeps no idle connections; everything returns to the pool.
	sqlDB := stdlib.OpenDBFromPool(pool)
	return runMigrations(ctx, goose.DialectPostgres, sqlDB, migrations.Postgres, "postgres")
}

// RunSQLiteMigrations applies the embedded sqlite migrations.
func RunSQLiteMigrations(ctx context.Context, conn *sql.DB) (int, error) {
	return runMigrations(ctx, goose.DialectSQLite3, conn, migrations.SQLite, "sqlite")
}

// runMigrations returns how many migrations were applied.
func runMigrations(ctx context.Context, dialect goose.Dialect, conn *sql.DB, fsys fs.FS, dir string) (int, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return 0, err
	}

	provider, err := goose.NewProvider(dialect, conn, sub)
	if err != nil {
		return 0, err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, err
	}
	return len(results), nil
}

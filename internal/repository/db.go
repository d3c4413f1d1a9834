// Package repository persists session snapshots in Postgres or SQLite.
package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/set-night/companion/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// SnapshotStore is the explicit persistence port of a session.
type SnapshotStore interface {
	Save(ctx context.Context, snap domain.Snapshot) error
	Load(ctx context.Context, chatID int64) (domain.Snapshot, error)
	LoadByToken(ctx context.Context, token uuid.UUID) (domain.Snapshot, error)
	Delete(ctx context.Context, chatID int64) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// Migrations returns the migration files of one driver.
func Migrations(driver string) (fs.FS, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
		return fs.Sub(migrationsFS, "migrations/"+driver)
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations applies all pending up migrations. databaseURL carries the migrate scheme
// (postgres:// or sqlite3://).
func RunMigrations(databaseURL string, migrations fs.FS) error {
	d, err := iofs.New(migrations, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	slog.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}

// Open connects the store selected by driver.
func Open(ctx context.Context, driver, databaseURL, sqlitePath string) (SnapshotStore, error) {
	switch driver {
	case DriverPostgres:
		pool, err := NewPool(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pool), nil
	case DriverSQLite:
		return NewSQLiteStore(sqlitePath)
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}

// Package storage opens the site's sqlite database and keeps its schema
// current.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open connects to the sqlite database at path. ":memory:" is accepted for
// tests; the pool is limited to one connection so every caller sees the same
// in-memory database and writes never contend.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	return db, nil
}

// migrator wraps db for golang-migrate. Close only the returned source:
// m.Close would also close db, which the caller owns.
func migrator(db *sql.DB) (*migrate.Migrate, source.Driver, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("migration init: %w", err)
	}
	return m, src, nil
}

// Migrate applies every pending embedded migration.
func Migrate(db *sql.DB, log *slog.Logger) error {
	m, src, err := migrator(db)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}

// Rollback reverts the last steps migrations.
func Rollback(db *sql.DB, steps int, log *slog.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("migration down: steps must be positive, got %d", steps)
	}
	m, src, err := migrator(db)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info("migrations rolled back", "steps", steps, "version", version, "dirty", dirty)
	return nil
}

// Version reports the applied schema version. Version 0 means no migration
// has run.
func Version(db *sql.DB) (version uint, dirty bool, err error) {
	m, src, err := migrator(db)
	if err != nil {
		return 0, false, err
	}
	defer src.Close()

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// OpenAndMigrate is Open followed by Migrate.
func OpenAndMigrate(ctx context.Context, path string, log *slog.Logger) (*sql.DB, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, log); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Package migrations embeds the schema for each supported database driver
// and applies it with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	pkgdb "github.com/JaimeStill/foreman/pkg/database"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Source returns the embedded migration source for driver.
func Source(driver string) (source.Driver, error) {
	dir, err := directory(driver)
	if err != nil {
		return nil, err
	}
	return iofs.New(files, dir)
}

// New creates a migrator bound to an open connection pool.
// Closing the returned migrator also closes db.
func New(db *sql.DB, driver string) (*migrate.Migrate, error) {
	src, err := Source(driver)
	if err != nil {
		return nil, err
	}

	var target database.Driver
	switch driver {
	case pkgdb.DriverPostgres:
		target, err = postgres.WithInstance(db, &postgres.Config{})
	case pkgdb.DriverSQLite:
		target, err = sqlite.WithInstance(db, &sqlite.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// Up applies all pending migrations to db. The connection stays open.
func Up(db *sql.DB, driver string) error {
	m, err := New(db, driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func directory(driver string) (string, error) {
	switch driver {
	case pkgdb.DriverPostgres:
		return "postgres", nil
	case pkgdb.DriverSQLite:
		return "sqlite", nil
	}
	return "", fmt.Errorf("%w: %q", pkgdb.ErrUnsupportedDriver, driver)
}

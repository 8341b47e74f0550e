package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration directions
const (
	MigrateUp   = "up"
	MigrateDown = "down"
)

// Migrate applies the embedded schema migrations in the given direction.
// It returns false when there was nothing to apply.
func (db *DB) Migrate(direction string) (bool, error) {
	m, err := db.newMigrator()
	if err != nil {
		return false, err
	}
	defer m.Close()

	switch direction {
	case MigrateUp:
		err = m.Up()
	case MigrateDown:
		err = m.Down()
	default:
		return false, fmt.Errorf("unknown migration direction %q", direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("migration %s failed: %w", direction, err)
	}
	return true, nil
}

// MigrationVersion reports the current schema version. Version 0 means no
// migration has been applied.
func (db *DB) MigrationVersion() (uint, bool, error) {
	m, err := db.newMigrator()
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// newMigrator opens a dedicated connection for the migration run so that
// closing the migrator never closes the application pool.
func (db *DB) newMigrator() (*migrate.Migrate, error) {
	conn, err := sql.Open(db.driver, db.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration connection: %w", err)
	}

	var driver migratedb.Driver
	switch db.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(conn, &postgres.Config{})
	case DriverSQLite:
		driver, err = sqlite.WithInstance(conn, &sqlite.Config{})
	default:
		err = fmt.Errorf("no migration driver for %q", db.driver)
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, db.driver, driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

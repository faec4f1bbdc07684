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

	"github.com/taskmaster/todolists/internal/infrastructure/config"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// Migrator runs the embedded schema migrations on a dedicated connection
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator opens its own connection for cfg; Close releases it
func NewMigrator(cfg config.DatabaseConfig) (*Migrator, error) {
	if cfg.Driver == config.DriverSQLite {
		// opening through New creates the parent directory if needed
		db, err := New(cfg)
		if err != nil {
			return nil, err
		}
		db.Close()
	}

	conn, err := sql.Open(cfg.Driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open migration connection: %w", err)
	}

	var driver migratedb.Driver
	switch cfg.Driver {
	case config.DriverSQLite:
		driver, err = sqlite.WithInstance(conn, &sqlite.Config{})
	default:
		driver, err = postgres.WithInstance(conn, &postgres.Config{})
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationFiles, "migrations/"+cfg.Driver)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, cfg.Driver, driver)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return &Migrator{m: m}, nil
}

// Up applies all pending migrations; an up-to-date schema is not an error
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Down reverts all migrations
func (mg *Migrator) Down() error {
	if err := mg.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Version reports the applied schema version
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the migration connection
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// MigrateUp is a convenience for running all pending migrations at startup
func MigrateUp(cfg config.DatabaseConfig) error {
	mg, err := NewMigrator(cfg)
	if err != nil {
		return err
	}
	defer mg.Close()

	return mg.Up()
}

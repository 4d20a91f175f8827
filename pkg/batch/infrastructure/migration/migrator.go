// Package migration applies the schema migrations embedded in the binary
// before the engine starts.
package migration

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// MigrationsTable holds the applied-migrations bookkeeping.
const MigrationsTable = "relist_schema_migrations"

// Migrator applies embedded SQL migrations to the configured database.
type Migrator struct {
	db     *gorm.DB
	dbType string
}

// NewMigrator creates a new Migrator for the given connection and database
// type ("sqlite", "mysql", "postgres").
func NewMigrator(db *gorm.DB, dbType string) *Migrator {
	return &Migrator{db: db, dbType: dbType}
}

func (m *Migrator) databaseDriver() (database.Driver, error) {
	sqlDB, err := m.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	switch m.dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: MigrationsTable})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: MigrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}

// Up applies all pending migrations from the given filesystem path. A database
// already at the latest version is not an error.
func (m *Migrator) Up(migrationFS fs.FS, path string) error {
	sourceDriver, err := iofs.New(migrationFS, path)
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}
	dbDriver, err := m.databaseDriver()
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	instance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	logger.Infof("Applying schema migrations (path: %s, table: %s).", path, MigrationsTable)
	if err := instance.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debugf("Schema already up to date.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Infof("Schema migrations applied.")
	return nil
}

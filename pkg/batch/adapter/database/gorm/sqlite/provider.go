// Package sqlite registers the GORM dialector factory for SQLite databases.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/relist/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/relist/pkg/batch/adapter/database/gorm"
)

func init() {
	gormadapter.RegisterDialector("sqlite", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString generates the DSN for SQLite connections.
// The GORM SQLite dialector expects the file path directly.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	return c.Database
}

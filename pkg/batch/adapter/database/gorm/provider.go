package gorm

import (
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/relist/pkg/batch/adapter/database/config"
	config "github.com/tigerroll/relist/pkg/batch/core/config"
	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// DialectorFactory generates a gorm.Dialector from a dbconfig.DatabaseConfig.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given database type.
// Dialect subpackages call this from their init().
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory retrieves the DialectorFactory corresponding to the specified DB type.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return factory, nil
}

// DecodeDatabaseConfig decodes the raw database section of the application
// configuration into a typed DatabaseConfig.
func DecodeDatabaseConfig(cfg *config.Config) (dbconfig.DatabaseConfig, error) {
	var dbConfig dbconfig.DatabaseConfig
	if cfg.Relist.Database == nil {
		return dbConfig, fmt.Errorf("no 'database' section found in configuration")
	}
	if err := mapstructure.Decode(cfg.Relist.Database, &dbConfig); err != nil {
		return dbConfig, fmt.Errorf("failed to decode database config: %w", err)
	}
	if dbConfig.Type == "" {
		return dbConfig, fmt.Errorf("database 'type' must be set")
	}
	return dbConfig, nil
}

// Open establishes the GORM connection described by the application
// configuration, applying pool settings.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dbConfig, err := DecodeDatabaseConfig(cfg)
	if err != nil {
		return nil, err
	}

	dialectorFactory, err := GetDialectorFactory(dbConfig.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to get dialector factory for %s: %w", dbConfig.Type, err)
	}
	dialector, err := dialectorFactory(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", dbConfig.Type, err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(dbConfig.Pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(dbConfig.Pool.MaxIdleConns)
	if dbConfig.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}

	logger.Infof("Established DB connection (%s).", dbConfig.Type)
	return db, nil
}

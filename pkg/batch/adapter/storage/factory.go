package storage

import (
	"context"
	"fmt"
	"sync"

	config "github.com/tigerroll/relist/pkg/batch/core/config"
)

// ConnectionFactory creates a Connection for one backend type.
type ConnectionFactory func(ctx context.Context, cfg config.StorageConfig, name string) (Connection, error)

var (
	factories   = make(map[string]ConnectionFactory)
	factoriesMu sync.RWMutex
)

// RegisterFactory registers a backend factory. Backend subpackages call this
// from their init(); the export component resolves by configured type.
func RegisterFactory(storageType string, factory ConnectionFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[storageType] = factory
}

// NewConnection creates a Connection of the configured type.
func NewConnection(ctx context.Context, cfg config.StorageConfig, name string) (Connection, error) {
	factoriesMu.RLock()
	factory, ok := factories[cfg.Type]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no storage adapter registered for type: %s", cfg.Type)
	}
	return factory(ctx, cfg, name)
}

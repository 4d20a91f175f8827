// Package local provides a local file system implementation of the storage
// adapter interface. The bucket is treated as a directory under BaseDir.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	storageAdapter "github.com/tigerroll/relist/pkg/batch/adapter/storage"
	config "github.com/tigerroll/relist/pkg/batch/core/config"
	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// ProviderType defines the type identifier for this local storage adapter.
const ProviderType = "local"

func init() {
	storageAdapter.RegisterFactory(ProviderType, func(ctx context.Context, cfg config.StorageConfig, name string) (storageAdapter.Connection, error) {
		return NewLocalAdapter(cfg, name)
	})
}

type localAdapter struct {
	cfg  config.StorageConfig
	name string
}

var _ storageAdapter.Connection = (*localAdapter)(nil)

// NewLocalAdapter creates a new local storage adapter. It validates BaseDir
// and creates it if missing.
func NewLocalAdapter(cfg config.StorageConfig, name string) (storageAdapter.Connection, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("local storage adapter '%s': BaseDir must be specified in configuration", name)
	}
	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
				return nil, fmt.Errorf("local storage adapter '%s': failed to create BaseDir '%s': %w", name, cfg.BaseDir, err)
			}
		} else {
			return nil, fmt.Errorf("local storage adapter '%s': failed to stat BaseDir '%s': %w", name, cfg.BaseDir, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("local storage adapter '%s': BaseDir '%s' is not a directory", name, cfg.BaseDir)
	}

	return &localAdapter{cfg: cfg, name: name}, nil
}

func (a *localAdapter) Close() error {
	logger.Debugf("Local storage adapter '%s' closed.", a.name)
	return nil
}

func (a *localAdapter) Type() string {
	return ProviderType
}

func (a *localAdapter) Name() string {
	return a.name
}

func (a *localAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return fmt.Errorf("failed to resolve path for upload: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", filepath.Dir(fullPath), err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file '%s': %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		return fmt.Errorf("failed to write data to file '%s': %w", fullPath, err)
	}
	logger.Debugf("Uploaded data to '%s' (local adapter '%s').", fullPath, a.name)
	return nil
}

// resolvePath joins BaseDir, bucket and objectName while refusing path
// traversal outside BaseDir.
func (a *localAdapter) resolvePath(bucket, objectName string) (string, error) {
	fullPath := filepath.Join(a.cfg.BaseDir, bucket, objectName)
	cleanBase := filepath.Clean(a.cfg.BaseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(os.PathSeparator)) {
		return "", fmt.Errorf("object path '%s' escapes base directory '%s'", objectName, cleanBase)
	}
	return fullPath, nil
}

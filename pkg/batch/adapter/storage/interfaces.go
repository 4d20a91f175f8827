// Package storage defines the common interface for result-file storage
// backends, so the exporter can write to a local directory or an object store
// through the same API.
package storage

import (
	"context"
	"io"
)

// Connection represents a storage backend connection.
type Connection interface {
	// Upload writes data to the given bucket and object name.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Close releases the underlying resources.
	Close() error
	// Type returns the backend type identifier ("local", "gcs").
	Type() string
	// Name returns the name of this connection.
	Name() string
}

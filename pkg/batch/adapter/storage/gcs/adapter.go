// Package gcs provides a Google Cloud Storage implementation of the storage
// adapter interface.
package gcs

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/relist/pkg/batch/adapter/storage"
	config "github.com/tigerroll/relist/pkg/batch/core/config"
	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// ProviderType defines the type identifier for this GCS storage adapter.
const ProviderType = "gcs"

func init() {
	storageAdapter.RegisterFactory(ProviderType, NewGCSAdapter)
}

type gcsAdapter struct {
	client *storage.Client
	name   string
}

var _ storageAdapter.Connection = (*gcsAdapter)(nil)

// NewGCSAdapter creates a new GCS storage adapter. Without an explicit
// credentials file it falls back to Application Default Credentials.
func NewGCSAdapter(ctx context.Context, cfg config.StorageConfig, name string) (storageAdapter.Connection, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': failed to create client: %w", name, err)
	}
	return &gcsAdapter{client: client, name: name}, nil
}

func (a *gcsAdapter) Close() error {
	return a.client.Close()
}

func (a *gcsAdapter) Type() string {
	return ProviderType
}

func (a *gcsAdapter) Name() string {
	return a.name
}

func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	w := a.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write object 'gs://%s/%s': %w", bucket, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object 'gs://%s/%s': %w", bucket, objectName, err)
	}
	logger.Debugf("Uploaded data to 'gs://%s/%s' (gcs adapter '%s').", bucket, objectName, a.name)
	return nil
}

package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/tigerroll/relist/pkg/batch/adapter/storage/local"
	config "github.com/tigerroll/relist/pkg/batch/core/config"
	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
)

func TestNewParquetExporter_PropertyDefaults(t *testing.T) {
	e, err := NewParquetExporter(config.ExportConfig{Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, "relist/results", e.props.OutputBaseDir)
	assert.Equal(t, "SNAPPY", e.props.CompressionType)
}

func TestNewParquetExporter_RejectsUnknownCompression(t *testing.T) {
	_, err := NewParquetExporter(config.ExportConfig{
		Enabled:    true,
		Properties: map[string]interface{}{"compressionType": "LZO"},
	})
	assert.Error(t, err)
}

func TestExport_WritesParquetFileToLocalStorage(t *testing.T) {
	baseDir := t.TempDir()
	e, err := NewParquetExporter(config.ExportConfig{
		Enabled: true,
		Storage: config.StorageConfig{
			Type:       "local",
			BucketName: "relist",
			BaseDir:    baseDir,
		},
		Properties: map[string]interface{}{"outputBaseDir": "results"},
	})
	require.NoError(t, err)

	batch := model.NewBatch("export-me", nil)
	item := model.NewBatchItem(batch.ID, "offer-1", true)
	item.ListingTitle = "2LDK Shinjuku"
	require.NoError(t, item.StartModify())
	item.CompleteModify()
	require.NoError(t, item.StartReAdvertise())
	item.CompleteReAdvertise()

	require.NoError(t, e.Export(context.Background(), batch, []*model.BatchItem{item}))

	var exported []string
	err = filepath.WalkDir(baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".parquet") {
			exported = append(exported, path)
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, exported, 1)

	// Bucket and dt= partition make up the object path.
	rel, err := filepath.Rel(baseDir, exported[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, filepath.Join("relist", "results", "dt=")), "unexpected path %s", rel)

	info, err := os.Stat(exported[0])
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExport_EmptyItemsStillProducesFile(t *testing.T) {
	baseDir := t.TempDir()
	e, err := NewParquetExporter(config.ExportConfig{
		Enabled: true,
		Storage: config.StorageConfig{Type: "local", BucketName: "relist", BaseDir: baseDir},
	})
	require.NoError(t, err)

	batch := model.NewBatch("empty", nil)
	assert.NoError(t, e.Export(context.Background(), batch, nil))
}

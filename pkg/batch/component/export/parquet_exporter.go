// Package export writes the final state of finished batches as Parquet files
// to the configured storage backend.
package export

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	storageAdapter "github.com/tigerroll/relist/pkg/batch/adapter/storage"
	config "github.com/tigerroll/relist/pkg/batch/core/config"
	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// exporterProperties are the export-specific settings decoded from the
// free-form properties map of the export configuration.
type exporterProperties struct {
	OutputBaseDir   string `mapstructure:"outputBaseDir"`
	CompressionType string `mapstructure:"compressionType"`
}

// resultRecord is one row of the exported file: one batch item with its batch
// context denormalized in.
type resultRecord struct {
	BatchID           string `parquet:"name=batch_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	BatchName         string `parquet:"name=batch_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	BatchStatus       string `parquet:"name=batch_status, type=BYTE_ARRAY, convertedtype=UTF8"`
	ItemID            string `parquet:"name=item_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	OfferID           string `parquet:"name=offer_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ListingTitle      string `parquet:"name=listing_title, type=BYTE_ARRAY, convertedtype=UTF8"`
	ListingAddress    string `parquet:"name=listing_address, type=BYTE_ARRAY, convertedtype=UTF8"`
	ItemStatus        string `parquet:"name=item_status, type=BYTE_ARRAY, convertedtype=UTF8"`
	ModifyStatus      string `parquet:"name=modify_status, type=BYTE_ARRAY, convertedtype=UTF8"`
	ReAdvertiseStatus string `parquet:"name=re_advertise_status, type=BYTE_ARRAY, convertedtype=UTF8"`
	RetryCount        int32  `parquet:"name=retry_count, type=INT32"`
	ErrorMessage      string `parquet:"name=error_message, type=BYTE_ARRAY, convertedtype=UTF8"`
	ExportedAtMillis  int64  `parquet:"name=exported_at_millis, type=INT64"`
}

// ParquetExporter implements the executor's ResultExporter on top of the
// storage adapter.
type ParquetExporter struct {
	cfg   config.ExportConfig
	props exporterProperties
}

// NewParquetExporter creates a new ParquetExporter from the export
// configuration.
func NewParquetExporter(cfg config.ExportConfig) (*ParquetExporter, error) {
	const op = "ParquetExporter.New"

	var props exporterProperties
	if err := mapstructure.Decode(cfg.Properties, &props); err != nil {
		return nil, exception.NewBatchError("export", fmt.Sprintf("%s: failed to decode exporter properties", op), err, false)
	}
	if props.OutputBaseDir == "" {
		props.OutputBaseDir = "relist/results"
	}
	if props.CompressionType == "" {
		props.CompressionType = "SNAPPY"
	}
	if _, err := compressionCodec(props.CompressionType); err != nil {
		return nil, exception.NewBatchError("export", fmt.Sprintf("%s: %v", op, err), err, false)
	}
	return &ParquetExporter{cfg: cfg, props: props}, nil
}

// Export writes one Parquet file with all items of the batch and uploads it
// under a Hive-style dt= partition path.
func (e *ParquetExporter) Export(ctx context.Context, batch *model.Batch, items []*model.BatchItem) error {
	const op = "ParquetExporter.Export"

	var multiErr error

	conn, err := storageAdapter.NewConnection(ctx, e.cfg.Storage, "export")
	if err != nil {
		return exception.NewBatchError("export", fmt.Sprintf("%s: failed to open storage connection", op), err, false)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warnf("Failed to close storage connection after export: %v", err)
		}
	}()

	now := time.Now()
	records := make([]resultRecord, 0, len(items))
	for _, item := range items {
		records = append(records, resultRecord{
			BatchID:           batch.ID,
			BatchName:         batch.Name,
			BatchStatus:       batch.Status.String(),
			ItemID:            item.ID,
			OfferID:           item.OfferID,
			ListingTitle:      item.ListingTitle,
			ListingAddress:    item.ListingAddress,
			ItemStatus:        item.Status.String(),
			ModifyStatus:      item.ModifyStatus.String(),
			ReAdvertiseStatus: item.ReAdvertiseStatus.String(),
			RetryCount:        int32(item.RetryCount),
			ErrorMessage:      item.ErrorMessage,
			ExportedAtMillis:  now.UnixMilli(),
		})
	}

	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(resultRecord), int64(len(records))+1)
	if err != nil {
		return exception.NewBatchError("export", fmt.Sprintf("%s: failed to create Parquet writer", op), err, false)
	}
	codec, _ := compressionCodec(e.props.CompressionType)
	pw.CompressionType = codec

	for _, record := range records {
		if err := pw.Write(record); err != nil {
			multiErr = multierror.Append(multiErr, exception.NewBatchError("export",
				fmt.Sprintf("%s: failed to write record for item %s", op, record.ItemID), err, false))
		}
	}

	// WriteStop can panic inside the library; convert that to an error.
	func() {
		defer func() {
			if r := recover(); r != nil {
				multiErr = multierror.Append(multiErr, exception.NewBatchError("export",
					fmt.Sprintf("%s: Parquet writer panicked during WriteStop: %v", op, r), nil, false))
			}
		}()
		if err := pw.WriteStop(); err != nil {
			multiErr = multierror.Append(multiErr, exception.NewBatchError("export",
				fmt.Sprintf("%s: failed to finalize Parquet file", op), err, false))
		}
	}()
	if multiErr != nil {
		return multiErr
	}

	fileName := fmt.Sprintf("batch_%s_%s.parquet", batch.ID, now.Format("20060102150405"))
	objectName := filepath.Join(e.props.OutputBaseDir, "dt="+now.Format("2006-01-02"), fileName)

	if err := conn.Upload(ctx, e.cfg.Storage.BucketName, objectName, buf, "application/octet-stream"); err != nil {
		return exception.NewBatchError("export",
			fmt.Sprintf("%s: failed to upload result file '%s'", op, objectName), err, false)
	}
	logger.Infof("Exported results of batch (ID: %s) to '%s' (%d records).", batch.ID, objectName, len(records))
	return nil
}

func compressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

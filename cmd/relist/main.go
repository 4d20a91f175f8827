package main

import (
	"context"
	"embed"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/fx"
	"gorm.io/gorm"

	gormadapter "github.com/tigerroll/relist/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/relist/pkg/batch/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/relist/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/relist/pkg/batch/adapter/database/gorm/sqlite"
	_ "github.com/tigerroll/relist/pkg/batch/adapter/storage/gcs"
	_ "github.com/tigerroll/relist/pkg/batch/adapter/storage/local"
	automation "github.com/tigerroll/relist/pkg/batch/automation"
	export "github.com/tigerroll/relist/pkg/batch/component/export"
	usecase "github.com/tigerroll/relist/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/relist/pkg/batch/core/config"
	coremetrics "github.com/tigerroll/relist/pkg/batch/core/metrics"
	executor "github.com/tigerroll/relist/pkg/batch/engine/executor"
	retry "github.com/tigerroll/relist/pkg/batch/engine/retry"
	scheduler "github.com/tigerroll/relist/pkg/batch/engine/scheduler"
	inframetrics "github.com/tigerroll/relist/pkg/batch/infrastructure/metrics"
	migration "github.com/tigerroll/relist/pkg/batch/infrastructure/migration"
	sqlrepo "github.com/tigerroll/relist/pkg/batch/infrastructure/repository/sql"
	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// embeddedConfig embeds the content of the application's YAML configuration file.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// migrationsFS bundles the schema migration scripts into the binary.
//
//go:embed all:resources/migrations
var migrationsFS embed.FS

// runMigrations applies the embedded migrations for the configured dialect
// before anything touches the schema.
func runMigrations(db *gorm.DB, cfg *config.Config) error {
	dbConfig, err := gormadapter.DecodeDatabaseConfig(cfg)
	if err != nil {
		return err
	}
	sub, err := fs.Sub(migrationsFS, "resources/migrations")
	if err != nil {
		return err
	}
	return migration.NewMigrator(db, dbConfig.Type).Up(sub, dbConfig.Type)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Shutting down.", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	app := fx.New(
		logger.Module,
		fx.Supply(config.EmbeddedConfig(embeddedConfig)),
		fx.Provide(fx.Annotated{
			Name:   "envFilePath",
			Target: func() string { return envFilePath },
		}),
		config.Module,
		gormadapter.Module,
		sqlrepo.Module,
		coremetrics.Module,
		inframetrics.Module,
		retry.Module,
		automation.Module,
		export.Module,
		executor.Module,
		usecase.Module,
		scheduler.Module,
		fx.Invoke(runMigrations),
	)

	if err := app.Start(ctx); err != nil {
		logger.Fatalf("Failed to start application: %v", err)
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Shutdown did not complete cleanly: %v", err)
		os.Exit(1)
	}
}

package metrics

import (
	"context"
	"net/http"

	"go.uber.org/fx"

	config "github.com/tigerroll/relist/pkg/batch/core/config"
	coremetrics "github.com/tigerroll/relist/pkg/batch/core/metrics"
	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// Module provides the MetricRecorder to Fx. When metrics are enabled it also
// runs the scrape endpoint for the recorder's registry; when disabled the
// engine gets the no-op recorder and no listener is started.
var Module = fx.Options(
	fx.Provide(func(cfg *config.Config, lc fx.Lifecycle) coremetrics.MetricRecorder {
		if !cfg.Relist.Metrics.Enabled {
			return coremetrics.NewNoOpMetricRecorder()
		}

		recorder := NewPrometheusRecorder()
		mux := http.NewServeMux()
		mux.Handle("/metrics", recorder.Handler())
		server := &http.Server{Addr: cfg.Relist.Metrics.ListenAddr, Handler: mux}

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					logger.Infof("Metrics endpoint listening on %s/metrics.", server.Addr)
					if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Errorf("Metrics endpoint failed: %v", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return server.Shutdown(ctx)
			},
		})
		return recorder
	}),
)

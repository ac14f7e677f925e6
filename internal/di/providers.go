package di

import (
	"fmt"

	drepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/handler/api"
	"MacroPull/internal/registry"
	"MacroPull/internal/repository/csvstore"
	"MacroPull/internal/service/ifind"
	"MacroPull/internal/usecase"
	"MacroPull/pkg/config"
	xhttp "MacroPull/pkg/http"
	applogger "MacroPull/pkg/logger"
	"MacroPull/pkg/metrics"
	"MacroPull/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideHTTPClient creates the vendor-facing HTTP client with the
// per-call timeout from config.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.Vendor.RequestTimeout))
}

// ProvideAuthenticator creates the token manager.
func ProvideAuthenticator(cfg *config.Config, client *xhttp.Client, log *applogger.Logger) drepo.Authenticator {
	return ifind.NewTokenManager(cfg.Vendor.BaseURL, cfg.Vendor.RefreshToken, client, log)
}

// ProvideVendorClient creates the typed vendor API client.
func ProvideVendorClient(cfg *config.Config, auth drepo.Authenticator, client *xhttp.Client, log *applogger.Logger) drepo.VendorAPI {
	return ifind.NewClient(cfg.Vendor.BaseURL, cfg.Vendor.MarketCode, auth, client, log)
}

// ProvideSeriesStore creates the on-disk CSV series store.
func ProvideSeriesStore(cfg *config.Config, log *applogger.Logger) (drepo.SeriesStore, error) {
	store, err := csvstore.New(cfg.Data.Dir, log)
	if err != nil {
		return nil, fmt.Errorf("series store: %w", err)
	}
	return store, nil
}

// ProvideRegistry returns the static indicator catalog.
func ProvideRegistry() *registry.Registry {
	return registry.Default()
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideAlertEngine creates the alert engine with configured thresholds.
func ProvideAlertEngine(cfg *config.Config) *usecase.AlertEngine {
	return usecase.NewAlertEngine(usecase.AlertThresholds{
		PricePct:        cfg.Alerts.PriceMovePct,
		OpenInterestPct: cfg.Alerts.OpenInterestMovePct,
	})
}

// ProvidePipeline creates the acquisition pipeline.
func ProvidePipeline(
	cfg *config.Config,
	auth drepo.Authenticator,
	vendor drepo.VendorAPI,
	store drepo.SeriesStore,
	catalog *registry.Registry,
	alerts *usecase.AlertEngine,
	m drepo.Metrics,
	log *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(auth, vendor, store, catalog, alerts, m, log,
		cfg.Watch.Instruments, cfg.Watch.LookbackDays)
}

// ProvideHub creates the WebSocket broadcast hub.
func ProvideHub(log *applogger.Logger) *api.Hub {
	return api.NewHub(log)
}

// ProvideMonitor creates the intraday realtime monitor.
func ProvideMonitor(
	cfg *config.Config,
	vendor drepo.VendorAPI,
	alerts *usecase.AlertEngine,
	m drepo.Metrics,
	log *applogger.Logger,
	hub *api.Hub,
) *usecase.Monitor {
	sessions := make([]usecase.Session, 0, len(cfg.Monitor.Sessions))
	for _, s := range cfg.Monitor.Sessions {
		sessions = append(sessions, usecase.Session{Start: s.Start, End: s.End})
	}
	return usecase.NewMonitor(vendor, alerts, m, log, hub,
		cfg.Watch.Instruments, sessions,
		cfg.Monitor.Interval, cfg.Alerts.Cooldown, cfg.Data.LogDir)
}

// ProvideReportHandler creates the report API handler.
func ProvideReportHandler(log *applogger.Logger, pipeline *usecase.Pipeline, hub *api.Hub) xhttp.Handler {
	return api.NewReportHandler(log, pipeline, hub)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	pipeline *usecase.Pipeline,
	monitor *usecase.Monitor,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, pipeline, monitor, handler)
}

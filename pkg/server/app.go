package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MacroPull/internal/usecase"
	"MacroPull/pkg/config"
	xhttp "MacroPull/pkg/http"
	applogger "MacroPull/pkg/logger"
)

// App encapsulates the application lifecycle: one pipeline pass at startup,
// the intraday monitor, and the report HTTP server.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	pipeline *usecase.Pipeline
	monitor  *usecase.Monitor
	handler  xhttp.Handler

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	pipeline *usecase.Pipeline,
	monitor *usecase.Monitor,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		pipeline: pipeline,
		monitor:  monitor,
		handler:  handler,
	}
}

// RunOnce executes a single pipeline pass and returns, for cron-style use.
func (a *App) RunOnce(ctx context.Context) error {
	_, err := a.pipeline.Run(ctx)
	return err
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// initial pass so the report API has data without waiting for cron
	go func() {
		if _, err := a.pipeline.Run(ctx); err != nil {
			a.log.Error("initial pipeline run failed", applogger.Error(err))
		}
	}()

	if a.monitor != nil && a.cfg.Monitor.Enabled {
		go func() {
			if err := a.monitor.Start(ctx); err != nil && err != context.Canceled {
				a.log.Error("monitor stopped", applogger.Error(err))
			}
		}()
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(cancel)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(cancel context.CancelFunc) error {
	cancel() // stops the monitor loop and any in-flight pipeline pass

	shutdownCtx, done := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer done()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		return err
	}

	a.log.Info("shutdown complete")
	return nil
}

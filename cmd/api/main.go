package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/catman-audit/internal/adapters/http"
	"github.com/kirillkom/catman-audit/internal/bootstrap"
	"github.com/kirillkom/catman-audit/internal/config"
	"github.com/kirillkom/catman-audit/internal/observability/logging"
	"github.com/kirillkom/catman-audit/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Recorder:      httpMetrics,
		CacheObserver: httpMetrics,
		Dependencies:  httpMetrics,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, httpadapter.Services{
		Audits:   app.Audits,
		Wizard:   app.Wizard,
		Editor:   app.Editor,
		Reports:  app.Delivery,
		Exporter: app.Export,
		Catalog:  app.Catalog,
	},
		httpadapter.WithMetrics(httpMetrics),
		httpadapter.WithPhotos(app.Photos),
		httpadapter.WithReadiness(app.Ready),
	).Handler()

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/catman-audit/internal/adapters/cli"
	"github.com/kirillkom/catman-audit/internal/bootstrap"
	"github.com/kirillkom/catman-audit/internal/config"
	"github.com/kirillkom/catman-audit/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/catman-audit/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// Operator output goes to stdout; diagnostics stay on stderr.
	logger := logging.NewJSONLoggerTo(os.Stderr, "auditctl", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sends are synchronous from the command line.
	cfg.NATSEnabled = false

	root := cli.NewRootCommand(cli.Runtime{
		Open: func(ctx context.Context) (cli.Services, func(), error) {
			app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, SkipMigrations: true})
			if err != nil {
				return cli.Services{}, nil, err
			}
			return cli.Services{
				Audits:   app.Audits,
				Reports:  app.Delivery,
				Exporter: app.Export,
			}, app.Close, nil
		},
		Migrate: func(context.Context) error {
			return postgres.Migrate(cfg.PostgresDSN)
		},
	})

	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/catman-audit/internal/config"
	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/ports"
	"github.com/kirillkom/catman-audit/internal/core/usecase"
	"github.com/kirillkom/catman-audit/internal/infrastructure/cache/lru"
	"github.com/kirillkom/catman-audit/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/catman-audit/internal/infrastructure/mail/smtp"
	"github.com/kirillkom/catman-audit/internal/infrastructure/queue/nats"
	"github.com/kirillkom/catman-audit/internal/infrastructure/render/pdf"
	"github.com/kirillkom/catman-audit/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/catman-audit/internal/infrastructure/resilience"
	"github.com/kirillkom/catman-audit/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/catman-audit/internal/infrastructure/upload/cloudinary"
)

const (
	photosDir  = "photos"
	reportsDir = "reports"

	uploadBackendLocal      = "local"
	uploadBackendCloudinary = "cloudinary"
)

// Options carries process-specific observers; zero values disable them.
type Options struct {
	Recorder      ports.EditRecorder
	CacheObserver lru.Observer
	Dependencies  resilience.Observer
	Logger        *slog.Logger
	// SkipMigrations is set by tools that manage the schema themselves.
	SkipMigrations bool
}

type App struct {
	Config  config.Config
	Catalog *catalog.Catalog

	DB       *sql.DB
	Queue    *nats.Queue
	Photos   *localfs.Storage
	Comments *usecase.CommentBuffer

	Audits   *usecase.AuditUseCase
	Wizard   *usecase.WizardUseCase
	Editor   *usecase.EditorUseCase
	Delivery *usecase.DeliveryUseCase
	Export   *usecase.ExportUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, options Options) (*App, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	gating, err := usecase.ParseGatingPolicy(cfg.WizardGating)
	if err != nil {
		return nil, err
	}

	if !options.SkipMigrations {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	closers := []func(){func() { _ = db.Close() }}
	fail := func(err error) (*App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		return nil, err
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg), resilience.WithObserver(options.Dependencies))
	repo := postgres.NewAuditRepositoryWithOptions(db, postgres.Options{ResilienceExecutor: executor})

	photos, err := localfs.New(filepath.Join(cfg.StoragePath, photosDir))
	if err != nil {
		return fail(fmt.Errorf("init photo storage: %w", err))
	}
	reports, err := localfs.New(filepath.Join(cfg.StoragePath, reportsDir))
	if err != nil {
		return fail(fmt.Errorf("init report archive: %w", err))
	}

	uploader, err := newUploader(cfg, photos, executor)
	if err != nil {
		return fail(err)
	}

	mailer, err := smtp.NewMailerWithOptions(smtp.Config{
		Host:          cfg.SMTPHost,
		Port:          cfg.SMTPPort,
		Username:      cfg.SMTPUser,
		Password:      cfg.SMTPPassword,
		From:          cfg.MailFrom,
		TLSSkipVerify: cfg.SMTPTLSSkipVerify,
	}, smtp.Options{ResilienceExecutor: executor})
	if err != nil {
		return fail(fmt.Errorf("init mailer: %w", err))
	}

	var queue *nats.Queue
	var reportQueue ports.ReportQueue
	if cfg.NATSEnabled {
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			return fail(fmt.Errorf("init message queue: %w", err))
		}
		closers = append(closers, queue.Close)
		reportQueue = queue
	}

	renderer := pdf.NewRenderer(pdf.Options{
		Fetcher:      pdf.NewHTTPPhotoFetcher(&http.Client{Timeout: cfg.PhotoFetchTimeout}),
		PhotoTimeout: cfg.PhotoFetchTimeout,
		Logger:       logger,
	})

	var reportCache ports.ReportCache
	if cfg.ReportCacheSize > 0 {
		reportCache = lru.NewReportCache(cfg.ReportCacheSize, cfg.ReportCacheTTL, options.CacheObserver)
	}

	comments := usecase.NewCommentBuffer(repo, cfg.CommentDebounce, cfg.CommentBufferMax)

	delivery := usecase.NewDeliveryUseCase(repo, c, comments, renderer, mailer, usecase.DeliveryOptions{
		Recipient: cfg.MailTo,
		Cache:     reportCache,
		Archive:   reports,
		Queue:     reportQueue,
	})

	wizardOptions := usecase.WizardOptions{Gating: gating, Recorder: options.Recorder}
	if cfg.ReportAutoSend {
		wizardOptions.AutoSend = delivery
	}

	logger.Info("bootstrap_ready",
		"upload_backend", cfg.UploadBackend,
		"nats_enabled", cfg.NATSEnabled,
		"wizard_gating", string(gating),
		"report_auto_send", cfg.ReportAutoSend,
	)

	return &App{
		Config:   cfg,
		Catalog:  c,
		DB:       db,
		Queue:    queue,
		Photos:   photos,
		Comments: comments,

		Audits: usecase.NewAuditUseCase(repo, c, comments),
		Wizard: usecase.NewWizardUseCase(repo, c, comments, wizardOptions),
		Editor: usecase.NewEditorUseCase(repo, c, comments, uploader, usecase.EditorOptions{
			MaxUploadBytes: cfg.UploadMaxBytes,
			Recorder:       options.Recorder,
		}),
		Delivery: delivery,
		Export:   usecase.NewExportUseCase(repo, c, xlsx.NewExporter()),

		closeFn: func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := comments.Close(flushCtx); err != nil {
				logger.Error("comment_flush_failed", "error", err)
			}
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

// Ready reports whether the database answers.
func (a *App) Ready(ctx context.Context) error {
	return postgres.Ready(ctx, a.DB)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newUploader(cfg config.Config, photos *localfs.Storage, executor *resilience.Executor) (ports.Uploader, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.UploadBackend)) {
	case "", uploadBackendLocal:
		return localfs.NewPhotoUploader(photos, cfg.PublicBaseURL), nil
	case uploadBackendCloudinary:
		uploader, err := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset, cloudinary.Options{
			BaseURL:            cfg.CloudinaryBaseURL,
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init cloudinary uploader: %w", err)
		}
		return uploader, nil
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.UploadBackend)
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	out.RetryInitialBackoff = cfg.ResilienceRetryInitialBackoff
	out.RetryMaxBackoff = cfg.ResilienceRetryMaxBackoff
	out.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	out.BreakerFailureRatio = cfg.ResilienceBreakerFailureRatio
	out.BreakerOpenTimeout = cfg.ResilienceBreakerOpenTimeout
	out.Dependencies = map[string]resilience.RetryPolicy{
		"smtp": {
			MaxAttempts:    cfg.SMTPRetryMaxAttempts,
			InitialBackoff: cfg.SMTPRetryInitialBackoff,
			MaxBackoff:     4 * cfg.SMTPRetryInitialBackoff,
		},
		"cloudinary": {MaxAttempts: cfg.CloudinaryRetryMaxAttempts},
	}
	return out
}

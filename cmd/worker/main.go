package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	pgRepo "newsaggregator/internal/infra/adapter/persistence/postgres"
	"newsaggregator/internal/infra/db"
	"newsaggregator/internal/infra/feed"
	workerPkg "newsaggregator/internal/infra/worker"
	"newsaggregator/internal/observability/logging"
	obsMetrics "newsaggregator/internal/observability/metrics"
	pkgConfig "newsaggregator/internal/pkg/config"
	storePkg "newsaggregator/internal/store"
	"newsaggregator/internal/usecase/ingest"
	"newsaggregator/internal/usecase/translate"
	"newsaggregator/pkg/config"
)

var defaultProviders = []string{"claude", "deepseek", "baidu", "ollama", "openai"}

// main wires the ingestion worker: a ticker-driven scheduler dispatching
// due feeds through the per-feed pipeline, plus a cron-driven maintenance
// job for orphan cleanup and legacy settings normalization.
func main() {
	logger := newProcessLogger()
	slog.SetDefault(logger)

	metrics := workerPkg.NewWorkerMetrics()
	metrics.MustRegister()

	cfg, err := workerPkg.LoadConfigFromEnv(logger, metrics)
	if err != nil {
		logger.Error("failed to load scheduler configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid scheduler configuration", slog.Any("error", err))
		os.Exit(1)
	}

	sqlDB := db.Open()
	defer sqlDB.Close()

	if err := db.MigrateUp(sqlDB); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := pgRepo.NewStore(sqlDB)
	fetcher := feed.NewGofeedFetcher(feed.NewHTTPClient(15 * time.Second))

	if seedPath := pkgConfig.LoadEnvString("SETTINGS_SEED_FILE", ""); seedPath != "" {
		seed, err := ingest.LoadSettingsSeed(seedPath)
		if err != nil {
			logger.Error("failed to load settings seed file", slog.Any("error", err))
			os.Exit(1)
		}
		if err := ingest.ApplySettingsSeed(ctx, store, seed); err != nil {
			logger.Error("failed to apply settings seed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	knownProviders := config.GetEnvStringList("TRANSLATION_PROVIDERS", defaultProviders)

	translateCfg, err := ingest.BuildTranslationConfig(ctx, store, knownProviders)
	if err != nil {
		logger.Error("failed to load translation configuration", slog.Any("error", err))
		os.Exit(1)
	}
	engine := translate.New(translateCfg)
	engine.StartVerification(ctx, knownProviders...)

	processor := ingest.NewProcessor(store, fetcher, engine, engine, ingest.ProcessorConfig{
		RequestTimeout:     time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		QuickRetryDelay:    cfg.QuickRetryDelay,
		QuickRetryAttempts: cfg.QuickRetryAttempts,
	})

	scheduler := ingest.NewScheduler(store, processor, ingest.SchedulerConfig{
		Interval:           time.Duration(cfg.IntervalSeconds) * time.Second,
		BatchSize:          cfg.BatchSize,
		Concurrency:        cfg.Concurrency,
		RequestTimeout:     time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		QuickRetryDelay:    cfg.QuickRetryDelay,
		QuickRetryAttempts: cfg.QuickRetryAttempts,
		OnPassComplete:     metrics.RecordFeedsProcessed,
	})

	if err := ingest.RunStartupMaintenance(ctx, store, knownProviders); err != nil {
		logger.Warn("startup maintenance failed", slog.Any("error", err))
	}

	c := cron.New(cron.WithLocation(mustLocation(cfg.Timezone, logger)))
	if _, err := c.AddFunc(cfg.CronSchedule, func() {
		runMaintenance(ctx, store, sqlDB, logger, metrics, knownProviders)
	}); err != nil {
		logger.Error("failed to schedule maintenance cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	healthServer := workerPkg.NewHealthServer(portAddr(cfg.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	healthServer.SetReady(true)

	metricsServer := startMetricsServer(ctx, logger)
	defer metricsServer.Close()

	logger.Info("worker starting",
		slog.Int("interval_seconds", cfg.IntervalSeconds),
		slog.Int("batch_size", cfg.BatchSize),
		slog.Int("concurrency", cfg.Concurrency),
		slog.String("cron_schedule", cfg.CronSchedule))

	scheduler.Run(ctx)

	healthServer.SetReady(false)
	logger.Info("worker stopped")
}

func runMaintenance(ctx context.Context, store *pgRepo.Store, sqlDB *sql.DB, logger *slog.Logger, metrics *workerPkg.WorkerMetrics, priority []string) {
	start := time.Now()
	if err := ingest.RunStartupMaintenance(ctx, store, priority); err != nil {
		metrics.RecordJobRun("failure")
		logger.Error("maintenance job failed", slog.Any("error", err))
		return
	}

	refreshTotals(ctx, store, logger)
	stats := sqlDB.Stats()
	obsMetrics.UpdateDBConnectionStats(stats.InUse, stats.Idle)

	metrics.RecordJobRun("success")
	metrics.RecordJobDuration(time.Since(start).Seconds())
	metrics.RecordLastSuccess()
}

// refreshTotals republishes the articles/feeds gauges; both reads are cheap
// enough for a once-daily job and failures only cost gauge freshness.
func refreshTotals(ctx context.Context, store *pgRepo.Store, logger *slog.Logger) {
	feeds, err := store.List(ctx)
	if err != nil {
		logger.Warn("feeds total refresh failed", slog.Any("error", err))
	} else {
		obsMetrics.UpdateFeedsTotal(len(feeds))
	}

	_, total, err := store.ListArticles(ctx, storePkg.ArticleListFilter{Page: 1, PageSize: 1})
	if err != nil {
		logger.Warn("articles total refresh failed", slog.Any("error", err))
	} else {
		obsMetrics.UpdateArticlesTotal(int(total))
	}
}

// newProcessLogger picks the JSON handler for production and the text
// handler for local runs (LOG_FORMAT_TEXT=true).
func newProcessLogger() *slog.Logger {
	if config.GetEnvBool("LOG_FORMAT_TEXT", false) {
		return logging.NewTextLogger()
	}
	return logging.NewLogger()
}

func mustLocation(tz string, logger *slog.Logger) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.Warn("invalid worker timezone, falling back to UTC", slog.String("timezone", tz), slog.Any("error", err))
		return time.UTC
	}
	return loc
}

func portAddr(port int) string {
	return ":" + strconv.Itoa(port)
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apihttp "newsaggregator/internal/handler/http"
	"newsaggregator/internal/handler/http/pathutil"
	"newsaggregator/internal/handler/http/requestid"
	"newsaggregator/internal/handler/http/responsewriter"
	pgRepo "newsaggregator/internal/infra/adapter/persistence/postgres"
	"newsaggregator/internal/infra/db"
	"newsaggregator/internal/infra/feed"
	"newsaggregator/internal/observability/logging"
	"newsaggregator/internal/observability/metrics"
	"newsaggregator/internal/usecase/admin"
	"newsaggregator/internal/usecase/ingest"
	"newsaggregator/internal/usecase/translate"
	"newsaggregator/pkg/config"
)

var defaultProviders = []string{"claude", "deepseek", "baidu", "ollama", "openai"}

// main wires the admin HTTP surface: feed management, translation settings,
// and AI dedup settings over the same store and translation engine the
// worker binary runs its ingestion pipeline against.
func main() {
	logger := newProcessLogger()
	slog.SetDefault(logger)

	sqlDB := db.Open()
	defer sqlDB.Close()

	if err := db.MigrateUp(sqlDB); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := pgRepo.NewStore(sqlDB)

	fetchTimeout := config.GetEnvDuration("FETCH_TIMEOUT", 15*time.Second)
	if err := config.ValidateDurationRange(fetchTimeout, time.Second, 5*time.Minute); err != nil {
		logger.Warn("invalid FETCH_TIMEOUT, using default", slog.Any("error", err))
		fetchTimeout = 15 * time.Second
	}
	fetcher := feed.NewGofeedFetcher(feed.NewHTTPClient(fetchTimeout))

	knownProviders := config.GetEnvStringList("TRANSLATION_PROVIDERS", defaultProviders)

	translateCfg, err := ingest.BuildTranslationConfig(ctx, store, knownProviders)
	if err != nil {
		logger.Error("failed to load translation configuration", slog.Any("error", err))
		os.Exit(1)
	}
	engine := translate.New(translateCfg)
	engine.StartVerification(ctx, knownProviders...)

	processor := ingest.NewProcessor(store, fetcher, engine, engine, ingest.ProcessorConfig{
		RequestTimeout:     30 * time.Second,
		QuickRetryDelay:    2 * time.Second,
		QuickRetryAttempts: 1,
	})

	adminSvc := admin.New(store, fetcher, engine, processor, knownProviders)
	adminHandler := &apihttp.AdminHandler{Service: adminSvc}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /health", &apihttp.HealthHandler{DB: sqlDB, Version: version()})
	mux.Handle("GET /health/ready", &apihttp.ReadyHandler{DB: sqlDB})
	mux.Handle("GET /health/live", &apihttp.LiveHandler{})

	mux.HandleFunc("GET /feeds", adminHandler.ListFeeds)
	mux.HandleFunc("POST /feeds", adminHandler.UpsertFeed)
	mux.HandleFunc("DELETE /feeds/{id}", adminHandler.DeleteFeed)
	mux.HandleFunc("POST /feeds/test", adminHandler.TestFeed)
	mux.HandleFunc("POST /feeds/{id}/fetch", adminHandler.FetchFeedOnce)

	mux.HandleFunc("GET /articles", adminHandler.ListArticles)
	mux.HandleFunc("GET /articles/featured", adminHandler.ListFeatured)
	mux.HandleFunc("POST /articles/{id}/click", adminHandler.RecordClick)

	mux.HandleFunc("GET /settings/translation", adminHandler.GetTranslationSettings)
	mux.HandleFunc("PUT /settings/translation", adminHandler.UpdateTranslationSettings)
	mux.HandleFunc("POST /settings/translation/test", adminHandler.TestModelConnectivity)
	mux.HandleFunc("GET /settings/ai-dedup", adminHandler.GetAIDedupSettings)
	mux.HandleFunc("PUT /settings/ai-dedup", adminHandler.UpdateAIDedupSettings)

	handler := requestid.Middleware(withAccessLog(logger, mux))

	addr := config.GetEnvString("API_ADDR", ":8081")
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin server shutdown error", slog.Any("error", err))
		}
	}()

	logger.Info("admin API starting", slog.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("admin API failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("admin API stopped")
}

// withAccessLog logs and measures each request: method, normalized path (to
// keep log and metrics-label cardinality bounded), status, and duration,
// tagged with the request ID set by requestid.Middleware.
func withAccessLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.ActiveConnections.Inc()
		defer metrics.ActiveConnections.Dec()

		ww := responsewriter.Wrap(w)
		next.ServeHTTP(ww, r)

		path := pathutil.NormalizePath(r.URL.Path)
		duration := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(ww.StatusCode()),
			duration, int(r.ContentLength), ww.BytesWritten())
		logger.Info("request",
			slog.String("request_id", requestid.FromContext(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", path),
			slog.Int("status", ww.StatusCode()),
			slog.Duration("duration", duration))
	})
}

// newProcessLogger picks the JSON handler for production and the text
// handler for local runs (LOG_FORMAT_TEXT=true).
func newProcessLogger() *slog.Logger {
	if config.GetEnvBool("LOG_FORMAT_TEXT", false) {
		return logging.NewTextLogger()
	}
	return logging.NewLogger()
}

func version() string {
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}
	return "dev"
}

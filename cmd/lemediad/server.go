package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	v1 "github.com/leleasley/lemedia/internal/api/v1"
	"github.com/leleasley/lemedia/internal/automation"
	"github.com/leleasley/lemedia/internal/availability"
	"github.com/leleasley/lemedia/internal/calendar"
	"github.com/leleasley/lemedia/internal/catalog"
	"github.com/leleasley/lemedia/internal/config"
	"github.com/leleasley/lemedia/internal/mediaserver"
	"github.com/leleasley/lemedia/internal/migrations"
	"github.com/leleasley/lemedia/internal/notify"
	"github.com/leleasley/lemedia/internal/request"
	"github.com/leleasley/lemedia/internal/server"
	"github.com/leleasley/lemedia/internal/sweep"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 200 { // Only capture first WriteHeader call
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func runServer(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Create logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", cfg.Database.Path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	// Run migrations
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// === Store (always created) ===
	store := request.NewStore(db)

	// === Clients (optional - nil if not configured) ===
	var mediaClient *mediaserver.Client
	if cfg.MediaServer != nil {
		mediaClient = mediaserver.NewClient(cfg.MediaServer.URL, cfg.MediaServer.APIKey, logger,
			mediaserver.WithRateLimit(cfg.MediaServer.RateLimit, cfg.MediaServer.RateBurst))
	}

	var catalogClient *catalog.Client
	if cfg.Catalog != nil {
		var opts []catalog.Option
		if cfg.Catalog.URL != "" {
			opts = append(opts, catalog.WithBaseURL(cfg.Catalog.URL))
		}
		catalogClient = catalog.NewClient(cfg.Catalog.APIKey, opts...)
	}

	var seriesClient *automation.SeriesClient
	if cfg.SeriesAutomation != nil {
		seriesClient = automation.NewSeriesClient(
			cfg.SeriesAutomation.URL,
			cfg.SeriesAutomation.APIKey,
			cfg.SeriesAutomation.QualityProfileID,
			cfg.SeriesAutomation.RootFolder,
			logger,
		)
	}

	var movieClient *automation.MovieClient
	if cfg.MovieAutomation != nil {
		movieClient = automation.NewMovieClient(
			cfg.MovieAutomation.URL,
			cfg.MovieAutomation.APIKey,
			cfg.MovieAutomation.QualityProfileID,
			cfg.MovieAutomation.RootFolder,
			logger,
		)
	}

	// === Services ===
	var checker *availability.Checker
	if mediaClient != nil {
		checker = availability.New(mediaClient, logger)
	}

	// Typed nils must not reach interface fields, so assign only what
	// actually exists. The aggregator skips nil sources.
	var (
		catalogSource calendar.CatalogSource
		seriesSource  calendar.SeriesCalendar
		movieSource   calendar.MovieCalendar
		checkerSource calendar.Availability
	)
	if catalogClient != nil {
		catalogSource = catalogClient
	}
	if seriesClient != nil {
		seriesSource = seriesClient
	}
	if movieClient != nil {
		movieSource = movieClient
	}
	if checker != nil {
		checkerSource = checker
	}
	aggregator := calendar.NewAggregator(catalogSource, seriesSource, movieSource, store, checkerSource, logger,
		calendar.WithSourceTimeout(time.Duration(cfg.Calendar.SourceTimeoutSeconds)*time.Second))

	notifier := notify.New(logger)
	defer notifier.Close()
	history := notify.NewHistory(0)

	quota := request.QuotaPolicy{
		MovieLimit: cfg.Quota.MovieLimit,
		MovieDays:  cfg.Quota.MovieDays,
		TVLimit:    cfg.Quota.TVLimit,
		TVDays:     cfg.Quota.TVDays,
	}

	var (
		episodeChecker request.EpisodeChecker
		seriesAuto     request.SeriesAutomation
		movieAuto      request.MovieAutomation
	)
	if checker != nil {
		episodeChecker = checker
	}
	if seriesClient != nil {
		seriesAuto = seriesClient
	}
	if movieClient != nil {
		movieAuto = movieClient
	}
	controller := request.NewController(store, episodeChecker, seriesAuto, movieAuto, notifier, quota, logger)

	// === Background Workers ===
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workers := server.NewRunner(logger,
		server.WorkerFunc("event-log", func(ctx context.Context) error {
			notify.RunLogSubscriber(ctx, notifier, logger)
			return nil
		}),
		server.WorkerFunc("event-history", func(ctx context.Context) error {
			notify.RunRecorder(ctx, notifier, history)
			return nil
		}),
	)
	sweepEnabled := cfg.Sweep.Enabled && checker != nil
	if sweepEnabled {
		sweeper := sweep.New(store, checker, notifier,
			time.Duration(cfg.Sweep.IntervalMinutes)*time.Minute, logger)
		workers.Add(server.WorkerFunc("sweep", func(ctx context.Context) error {
			sweeper.Run(ctx)
			return nil
		}))
	}
	go func() {
		if err := workers.Run(ctx); err != nil {
			logger.Error("background workers stopped", "error", err)
		}
	}()

	// === HTTP Setup ===
	mux := http.NewServeMux()

	deps := v1.ServerDeps{
		Requests:  store,
		Admission: controller,
		Calendar:  aggregator,
		EventLog:  history,
	}
	if checker != nil {
		deps.Checker = checker
	}
	if catalogClient != nil {
		deps.Catalog = catalogClient
	}
	if mediaClient != nil {
		deps.MediaServer = mediaClient
	}
	if seriesClient != nil {
		deps.Series = seriesClient
	}
	if movieClient != nil {
		deps.Movies = movieClient
	}

	apiV1, err := v1.New(deps, v1.Config{Version: version, Quota: quota}, logger)
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}
	apiV1.RegisterRoutes(mux)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting",
		"addr", addr,
		"database", cfg.Database.Path,
		"media_server", mediaClient != nil,
		"catalog", catalogClient != nil,
		"series_automation", seriesClient != nil,
		"movie_automation", movieClient != nil,
		"sweep", sweepEnabled,
		"log_level", cfg.Server.LogLevel,
	)

	// === HTTP Server ===
	srv := &http.Server{Addr: addr, Handler: logRequests(mux, logger)}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())

	// Stop background workers
	cancel()

	// Graceful HTTP shutdown with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"news_ingest/internal/api"
	"news_ingest/internal/config"
	"news_ingest/internal/domain"
	"news_ingest/internal/fingerprint"
	"news_ingest/internal/jobs"
	"news_ingest/internal/scheduler"
	"news_ingest/internal/service"
	"news_ingest/internal/storage/postgres"
)

const (
	// Fingerprints kept in memory; older ones are still caught by the store.
	indexCapacity  = 50_000
	shutdownPeriod = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("ingestd stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to database")

	if cfg.Database.MigrateOnStart {
		version, err := postgres.Migrate(db)
		if err != nil {
			return err
		}
		logger.Info("database schema up to date", "version", version)
	}

	articleStore := postgres.NewArticleStore(db)
	jobStore := postgres.NewJobStore(db)
	telemetryStore := postgres.NewTelemetryStore(db)
	txManager := postgres.NewTransactionManager(db)

	index := fingerprint.NewIndex(indexCapacity)
	known, err := articleStore.KnownFingerprints(ctx, indexCapacity)
	if err != nil {
		return err
	}
	index.Seed(known)
	logger.Info("fingerprint index seeded", "fingerprints", index.Len())

	events, err := newEventPublisher(cfg.Events, logger)
	if err != nil {
		return err
	}
	if events != nil {
		defer events.Close()
	}

	searchClient, err := newSearchClient(ctx, cfg.Search, logger)
	if err != nil {
		return err
	}

	deps := service.Deps{
		Sources:   buildSources(cfg.Ingest, logger),
		Articles:  articleStore,
		Telemetry: telemetryStore,
		TxManager: txManager,
		Extractor: buildExtractor(cfg.Ingest, logger),
		Model:     buildModel(cfg.Classifier, cfg.Ingest.Categories),
		Index:     index,
		Canon:     fingerprint.NewCanonicalizer(cfg.Ingest.SourceAliases),
		Scorer:    buildScorer(cfg.Ingest.Quality),
	}
	var jobEvents jobs.Publisher
	if events != nil {
		deps.Publisher = events
		jobEvents = events
	}
	if searchClient != nil {
		deps.Indexer = searchClient
	}

	pipeline := service.NewPipeline(deps, pipelineConfig(cfg), logger)

	tracker := jobs.NewTracker(jobStore)
	runner := jobs.NewRunner(tracker, pipeline, jobEvents, jobs.RunnerConfig{
		Workers:    cfg.Jobs.Workers,
		QueueSize:  cfg.Jobs.QueueSize,
		RunTimeout: cfg.Ingest.RunTimeout,
	}, logger)
	reaper := jobs.NewReaper(tracker, jobStore, cfg.Jobs.StuckAfter, cfg.Jobs.ReapInterval, logger)

	apiDeps := api.Deps{
		Jobs:     runner,
		Articles: service.NewArticleService(articleStore, domain.Categories(cfg.Ingest.Categories)),
		DB:       db,
	}
	if searchClient != nil {
		apiDeps.Search = searchClient
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(apiDeps, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	logger.Info("starting news ingest",
		"sources", len(deps.Sources),
		"classifier_mode", cfg.Classifier.Mode,
		"events", cfg.Events.Driver,
		"search", cfg.Search.Enabled,
		"workers", cfg.Jobs.Workers,
	)

	runner.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return ignoreCanceled(reaper.Run(gctx))
	})

	if cfg.Jobs.ScheduleInterval > 0 {
		sched := scheduler.NewScheduler(runner, cfg.Jobs.ScheduleInterval, logger)
		g.Go(func() error {
			return ignoreCanceled(sched.Start(gctx))
		})
	}

	err = g.Wait()
	stop()
	runner.Wait()
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

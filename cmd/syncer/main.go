package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"content_syncer/internal/config"
	"content_syncer/internal/events"
	"content_syncer/internal/provider/youtube"
	"content_syncer/internal/scheduler"
	"content_syncer/internal/service"
	"content_syncer/internal/storage/postgres"
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

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	bus, err := events.NewRabbitMQ(events.Config{
		URL:      cfg.RabbitMQ.URL,
		Exchange: cfg.RabbitMQ.Exchange,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	dispatcher := events.NewDispatcher(bus, cfg.Events.BufferSize, logger)
	defer dispatcher.Close()

	contentStore := postgres.NewContentStore(db)
	watermarkStore := postgres.NewWatermarkStore(db)
	txManager := postgres.NewTransactionManager(db)

	provider := youtube.New(youtube.Config{
		APIKey:     cfg.YouTube.APIKey,
		BaseURL:    cfg.YouTube.BaseURL,
		Timeout:    cfg.YouTube.Timeout,
		QuotaLimit: cfg.YouTube.QuotaLimit,
	}, logger)

	writer := service.NewContentWriter(
		contentStore,
		txManager,
		service.NewContentRules(),
		dispatcher,
		logger,
	)

	reconciler := service.NewReconciler(
		contentStore,
		writer,
		dispatcher,
		cfg.Sync.AutoPublish,
		logger,
	)

	engine := service.NewIngestionEngine(
		provider,
		reconciler,
		watermarkStore,
		dispatcher,
		cfg.Sync,
		cfg.YouTube.ChannelHandle,
		cfg.YouTube.APIKey != "",
		logger,
	)

	sched := scheduler.NewScheduler(engine, cfg.Sync.Interval, cfg.Sync.PassTimeout, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting content syncer",
		"channel", cfg.YouTube.ChannelHandle,
		"interval", cfg.Sync.Interval,
		"max_items", cfg.Sync.MaxItemsPerPass,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
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

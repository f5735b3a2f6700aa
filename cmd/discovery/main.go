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
	goredis "github.com/redis/go-redis/v9"

	"content_syncer/internal/cache"
	"content_syncer/internal/config"
	"content_syncer/internal/events"
	"content_syncer/internal/service"
	"content_syncer/internal/storage/postgres"
)

// The discovery process owns the read side: it serves cached published
// content and keeps its cache coherent by consuming invalidation events from
// the write side.
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

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The cache fails open; a dead Redis only costs uncached reads.
		logger.Warn("redis unavailable, serving uncached", "error", err)
	}

	cacheStore := cache.NewRedis(redisClient, cfg.Redis.KeyPrefix, logger)
	discoveryStore := postgres.NewDiscoveryStore(db)
	discovery := service.NewDiscoveryService(discoveryStore, cacheStore, cfg.Discovery, logger)

	subscriber, err := events.NewSubscriber(events.SubscriberConfig{
		URL:       cfg.RabbitMQ.URL,
		Exchange:  cfg.RabbitMQ.Exchange,
		QueueName: cfg.RabbitMQ.QueueName,
	}, discovery, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer subscriber.Close()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting discovery service",
		"exchange", cfg.RabbitMQ.Exchange,
		"queue", cfg.RabbitMQ.QueueName,
	)

	if err := subscriber.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("subscriber error", "error", err)
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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/leadbridge-au/leadbridge/internal/config"
	"github.com/leadbridge-au/leadbridge/internal/watcher"
	"github.com/leadbridge-au/leadbridge/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.LoadWatcher()
	logger := logging.New(cfg.LogLevel).WithComponent("watcher")
	logger.Info("starting leadbridge watcher",
		"env", cfg.Env,
		"source_url", cfg.SourceURL,
		"poll_interval", cfg.PollInterval.String(),
	)

	if !cfg.Enabled {
		logger.Info("watcher disabled by configuration")
		return
	}
	if cfg.SourceURL == "" {
		logger.Error("WATCHER_SOURCE_URL is required")
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Error("failed to reach redis", "error", err, "addr", cfg.RedisAddr)
		os.Exit(1)
	}

	w := watcher.New(watcher.Config{
		Source:       watcher.NewHTTPSource(cfg.SourceURL, cfg.HTTPTimeout),
		Forwarder:    watcher.NewHTTPForwarder(cfg.BackendURL, cfg.HTTPTimeout),
		Tracker:      watcher.NewDedupTracker(redisClient, logger),
		Defaults: watcher.LeadDefaults{
			TradiePhone:  cfg.TradiePhone,
			DNDStartHour: cfg.DNDStartHour,
			DNDEndHour:   cfg.DNDEndHour,
		},
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w.Run(ctx)

	if err := redisClient.Close(); err != nil {
		logger.Error("failed to close redis client", "error", err)
	}
	logger.Info("watcher stopped")
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/contentflow/internal/app"
	"github.com/ignite/contentflow/internal/config"
	"github.com/ignite/contentflow/internal/eventbus"
	"github.com/ignite/contentflow/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}
	app.SetupLogging(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := app.OpenPostgres(ctx, cfg.Database)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}
	rdb, err := app.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	d := eventbus.NewDispatcher()
	if err := app.Subscribers(ctx, cfg, d, db, app.NewRepositories(db)); err != nil {
		logger.Error("event subscribers", "error", err)
		os.Exit(1)
	}

	consumer := eventbus.NewConsumer(rdb, d, eventbus.ConsumerConfig{
		Stream:  cfg.EventBus.Stream,
		Group:   cfg.EventBus.Group,
		Name:    cfg.EventBus.Consumer,
		Batch:   cfg.EventBus.BatchSize,
		Block:   cfg.EventBus.Block(),
		MinIdle: cfg.EventBus.MinIdle(),
	})
	if err := consumer.Start(ctx); err != nil {
		logger.Error("start consumer", "error", err)
		os.Exit(1)
	}
	logger.Info("worker started", "stream", cfg.EventBus.Stream, "group", cfg.EventBus.Group,
		"consumer", cfg.EventBus.Consumer)

	stats := time.NewTicker(time.Minute)
	defer stats.Stop()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-stats.C:
			s := consumer.Stats()
			logger.Info("worker stats", "handled", s["handled"], "failed", s["failed"])
		case <-done:
			logger.Info("shutting down worker")
			consumer.Stop()
			cancel()
			logger.Info("worker stopped")
			return
		}
	}
}

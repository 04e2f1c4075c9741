package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/contentflow/internal/api"
	"github.com/ignite/contentflow/internal/app"
	"github.com/ignite/contentflow/internal/config"
	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/eventbus"
	"github.com/ignite/contentflow/internal/feedimport"
	"github.com/ignite/contentflow/internal/pkg/logger"
	"github.com/ignite/contentflow/internal/repository/postgres"
	"github.com/ignite/contentflow/internal/service/ports"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	migrate := flag.Bool("migrate", false, "apply database migrations before serving")
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
		if *migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				logger.Error("migrate", "error", err)
				os.Exit(1)
			}
		}
	}

	var rdb *redis.Client
	if cfg.EventBus.Driver == "redis" {
		if rdb, err = app.OpenRedis(ctx, cfg.Redis); err != nil {
			logger.Error("redis unavailable", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
	}

	repos := app.NewRepositories(db)

	// With the redis bus, downstream subscribers run in cmd/worker.
	var publisher ports.EventPublisher
	var localBus *eventbus.AsyncBus
	if rdb != nil {
		publisher = eventbus.NewRedisBus(rdb, cfg.EventBus.Stream, cfg.EventBus.MaxLen)
	} else {
		d := eventbus.NewDispatcher()
		if err := app.Subscribers(ctx, cfg, d, db, repos); err != nil {
			logger.Error("event subscribers", "error", err)
			os.Exit(1)
		}
		localBus = eventbus.NewAsyncBus(d, eventbus.AsyncConfig{Buffer: cfg.EventBus.Buffer})
		localBus.Start()
		publisher = localBus
	}

	var services = api.Services{
		Users:       repos.Users,
		Contents:    repos.Contents,
		Workflows:   repos.Workflows,
		Publisher:   publisher,
		Clock:       ports.SystemClock{},
		IDs:         ports.UUIDGenerator{},
		Locker:      app.NewLocker(cfg.Lock, rdb, db),
		EmailPolicy: domain.EmailPolicy{FoldDomainCase: cfg.Email.FoldDomainCase},
		FeedImport:  cfg.Feeds.Enabled,
		Feeds: feedimport.Options{
			DefaultLimit: cfg.Feeds.DefaultLimit,
			Timeout:      cfg.Feeds.Timeout(),
			AllowedHosts: cfg.Feeds.AllowedHosts,
			AllowPrivate: cfg.Feeds.AllowPrivate,
		},
		Health:      healthChecks(db, rdb),
	}
	if cfg.AI.Enabled {
		awsCfg, err := app.LoadAWS(ctx, cfg.Storage)
		if err != nil {
			logger.Error("aws config", "error", err)
			os.Exit(1)
		}
		if services.Generator, err = app.NewGenerator(cfg.AI, awsCfg); err != nil {
			logger.Error("content generator", "error", err)
			os.Exit(1)
		}
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(api.NewHandlers(services), api.RouterConfig{CORSOrigins: cfg.Server.CORSOrigins}),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", server.Addr,
			"database", cfg.Database.Driver, "event_bus", cfg.EventBus.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if localBus != nil {
		if err := localBus.Close(shutdownCtx); err != nil {
			logger.Error("event bus drain", "error", err)
		}
	}
	logger.Info("server stopped")
}

func healthChecks(db *sql.DB, rdb *redis.Client) map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{}
	if db != nil {
		checks["database"] = db.PingContext
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

// Package app wires configuration into the adapters shared by the server
// and worker binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/contentflow/internal/archive"
	"github.com/ignite/contentflow/internal/automation"
	"github.com/ignite/contentflow/internal/awsutil"
	"github.com/ignite/contentflow/internal/config"
	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/eventbus"
	"github.com/ignite/contentflow/internal/generation"
	"github.com/ignite/contentflow/internal/notify"
	"github.com/ignite/contentflow/internal/pkg/distlock"
	"github.com/ignite/contentflow/internal/pkg/httpretry"
	"github.com/ignite/contentflow/internal/pkg/logger"
	"github.com/ignite/contentflow/internal/repository/memory"
	"github.com/ignite/contentflow/internal/repository/postgres"
	"github.com/ignite/contentflow/internal/service/content"
	"github.com/ignite/contentflow/internal/service/ports"
	"github.com/ignite/contentflow/internal/service/user"
	"github.com/ignite/contentflow/internal/service/workflow"
)

// SetupLogging applies the log section to the default logger.
func SetupLogging(cfg config.LogConfig) {
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	logger.SetRedactPII(cfg.Redact())
}

// OpenPostgres connects and pings. It returns (nil, nil) for the memory
// driver.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.Driver != "postgres" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// OpenRedis connects and pings.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Repositories bundles the three entity stores.
type Repositories struct {
	Users     user.Repository
	Contents  content.Repository
	Workflows workflow.Repository
}

// NewRepositories returns postgres repositories over db, or in-memory ones
// when db is nil.
func NewRepositories(db *sql.DB) Repositories {
	if db == nil {
		return Repositories{Users: memory.NewUsers(), Contents: memory.NewContents(), Workflows: memory.NewWorkflows()}
	}
	return Repositories{
		Users:     postgres.NewUserRepo(db),
		Contents:  postgres.NewContentRepo(db),
		Workflows: postgres.NewWorkflowRepo(db),
	}
}

// NewLocker prefers Redis, then Postgres advisory locks, then a process
// local mutex.
func NewLocker(cfg config.LockConfig, rdb *redis.Client, db *sql.DB) ports.Locker {
	if rdb == nil && db == nil {
		return ports.NewMemoryLocker()
	}
	return distlock.NewLocker(rdb, db, cfg.TTL(), cfg.RetryInterval())
}

// NeedsAWS reports whether any configured feature talks to AWS.
func NeedsAWS(cfg *config.Config) bool {
	return cfg.AI.Enabled || cfg.Notify.Enabled || cfg.Storage.ArchiveBucket != "" ||
		((cfg.Automation.Enabled || cfg.Notify.Enabled) && cfg.Automation.Ledger == "dynamodb")
}

// LoadAWS loads the shared AWS config from the storage section.
func LoadAWS(ctx context.Context, cfg config.StorageConfig) (aws.Config, error) {
	return awsutil.Load(ctx, awsutil.Settings{
		Region:    cfg.Region,
		Profile:   cfg.GetAWSProfile(),
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
}

// NewGenerator returns the Bedrock generator, or nil when AI is disabled.
func NewGenerator(cfg config.AIConfig, awsCfg aws.Config) (content.Generator, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	overrides := make(map[domain.ContentType]string, len(cfg.Prompts))
	for name, src := range cfg.Prompts {
		t, err := domain.ParseContentType(name)
		if err != nil {
			return nil, fmt.Errorf("ai.prompts: %w", err)
		}
		overrides[t] = src
	}
	prompts := generation.NewPromptRenderer(overrides)
	if err := prompts.Validate(); err != nil {
		return nil, err
	}
	return generation.NewBedrockGenerator(bedrockruntime.NewFromConfig(awsCfg), prompts, generation.BedrockConfig{
		ModelID:     cfg.ModelID,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}), nil
}

// NewLedger builds the delivery ledger named by cfg.Ledger.
func NewLedger(cfg config.AutomationConfig, db *sql.DB, awsCfg aws.Config) (automation.Ledger, error) {
	switch cfg.Ledger {
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres ledger requires a database")
		}
		return automation.NewPostgresLedger(db, cfg.Lease()), nil
	case "dynamodb":
		return automation.NewDynamoLedger(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable, cfg.Lease(), 0), nil
	default:
		return automation.NewMemoryLedger(cfg.Lease()), nil
	}
}

// Subscribers registers the downstream event handlers on d: the n8n
// relay, the S3 archive and the publication notice, each when enabled.
func Subscribers(ctx context.Context, cfg *config.Config, d *eventbus.Dispatcher, db *sql.DB, repos Repositories) error {
	var awsCfg aws.Config
	if NeedsAWS(cfg) {
		var err error
		if awsCfg, err = LoadAWS(ctx, cfg.Storage); err != nil {
			return err
		}
	}

	// The relay and the notifier share one ledger; their targets differ.
	var ledger automation.Ledger
	if cfg.Automation.Enabled || cfg.Notify.Enabled {
		var err error
		if ledger, err = NewLedger(cfg.Automation, db, awsCfg); err != nil {
			return err
		}
	}

	if cfg.Automation.Enabled {
		client := httpretry.NewRetryClient(&http.Client{Timeout: cfg.Automation.Timeout()}, cfg.Automation.MaxRetries)
		relay := automation.NewRelay(client, ledger, automation.RelayConfig{
			BaseURL: cfg.Automation.BaseURL,
			APIKey:  cfg.Automation.APIKey,
			Routes:  cfg.Automation.Routes,
		})
		d.SubscribeAll("automation.relay", relay.Handle)
		logger.Info("automation relay enabled", "base_url", cfg.Automation.BaseURL, "ledger", cfg.Automation.Ledger)
	}

	if cfg.Storage.ArchiveBucket != "" {
		sink := archive.NewSink(s3.NewFromConfig(awsCfg), cfg.Storage.ArchiveBucket, cfg.Storage.ArchivePrefix)
		d.SubscribeAll("archive.s3", sink.Handle)
		logger.Info("event archive enabled", "bucket", cfg.Storage.ArchiveBucket)
	}

	if cfg.Notify.Enabled {
		n, err := notify.New(sesv2.NewFromConfig(awsCfg), ledger, repos.Users, repos.Contents, notify.Config{
			FromEmail: cfg.Notify.FromEmail,
			FromName:  cfg.Notify.FromName,
			Subject:   cfg.Notify.Subject,
			Body:      cfg.Notify.Body,
		})
		if err != nil {
			return err
		}
		d.Subscribe(domain.EventContentPublished, "notify.owner", n.Handle)
		logger.Info("publication notices enabled", "from", cfg.Notify.FromEmail)
	}
	return nil
}

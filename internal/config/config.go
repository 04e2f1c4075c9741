package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Lock       LockConfig       `yaml:"lock"`
	EventBus   EventBusConfig   `yaml:"event_bus"`
	Automation AutomationConfig `yaml:"automation"`
	AI         AIConfig         `yaml:"ai"`
	Storage    StorageConfig    `yaml:"storage"`
	Notify     NotifyConfig     `yaml:"notify"`
	Email      EmailConfig      `yaml:"email"`
	Log        LogConfig        `yaml:"log"`
	Feeds      FeedsConfig      `yaml:"feeds"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port                int      `yaml:"port"`
	Host                string   `yaml:"host"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
	CORSOrigins         []string `yaml:"cors_origins"`
}

// GetHost returns the host to bind to, honoring the HOST env var.
func (c ServerConfig) GetHost() string {
	if h := os.Getenv("HOST"); h != "" {
		return h
	}
	return c.Host
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// DatabaseConfig selects the repository backend. Driver is "memory" or
// "postgres".
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection used by the event bus and locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LockConfig tunes per-entity locks.
type LockConfig struct {
	TTLSeconds  int `yaml:"ttl_seconds"`
	RetryMillis int `yaml:"retry_millis"`
}

func (c LockConfig) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }
func (c LockConfig) RetryInterval() time.Duration {
	return time.Duration(c.RetryMillis) * time.Millisecond
}

// EventBusConfig selects the bus. Driver is "memory" or "redis".
type EventBusConfig struct {
	Driver         string `yaml:"driver"`
	Stream         string `yaml:"stream"`
	Group          string `yaml:"group"`
	Consumer       string `yaml:"consumer"`
	MaxLen         int64  `yaml:"max_len"`
	BatchSize      int64  `yaml:"batch_size"`
	BlockMillis    int    `yaml:"block_millis"`
	MinIdleSeconds int    `yaml:"min_idle_seconds"`
	// Buffer bounds the in-process queue of the memory driver.
	Buffer int `yaml:"buffer"`
}

func (c EventBusConfig) Block() time.Duration { return time.Duration(c.BlockMillis) * time.Millisecond }
func (c EventBusConfig) MinIdle() time.Duration {
	return time.Duration(c.MinIdleSeconds) * time.Second
}

// AutomationConfig holds the n8n relay settings. Ledger is "memory",
// "postgres" or "dynamodb".
type AutomationConfig struct {
	Enabled        bool              `yaml:"enabled"`
	BaseURL        string            `yaml:"base_url"`
	APIKey         string            `yaml:"api_key"`
	Routes         map[string]string `yaml:"routes"`
	Ledger         string            `yaml:"ledger"`
	DynamoTable    string            `yaml:"dynamo_table"`
	LeaseSeconds   int               `yaml:"lease_seconds"`
	MaxRetries     int               `yaml:"max_retries"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
}

func (c AutomationConfig) Lease() time.Duration { return time.Duration(c.LeaseSeconds) * time.Second }
func (c AutomationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AIConfig holds Bedrock generation settings. Prompts overrides the
// built-in prompt template per content type.
type AIConfig struct {
	Enabled     bool              `yaml:"enabled"`
	ModelID     string            `yaml:"model_id"`
	MaxTokens   int               `yaml:"max_tokens"`
	Temperature float64           `yaml:"temperature"`
	Prompts     map[string]string `yaml:"prompts"`
}

// StorageConfig holds AWS account settings and the event archive bucket.
type StorageConfig struct {
	Region        string `yaml:"region"`
	AWSProfile    string `yaml:"aws_profile"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	ArchiveBucket string `yaml:"archive_bucket"`
	ArchivePrefix string `yaml:"archive_prefix"`
}

// GetAWSProfile returns the AWS profile, honoring AWS_PROFILE.
func (c StorageConfig) GetAWSProfile() string {
	if p := os.Getenv("AWS_PROFILE"); p != "" {
		return p
	}
	return c.AWSProfile
}

// NotifyConfig holds the publication notice sent through SES.
type NotifyConfig struct {
	Enabled   bool   `yaml:"enabled"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
	Subject   string `yaml:"subject"`
	Body      string `yaml:"body"`
}

// EmailConfig controls address normalization.
type EmailConfig struct {
	FoldDomainCase bool `yaml:"fold_domain_case"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether PII redaction is on. It defaults to true.
func (c LogConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// FeedsConfig controls feed import.
type FeedsConfig struct {
	Enabled        bool     `yaml:"enabled"`
	DefaultLimit   int      `yaml:"default_limit"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	AllowedHosts   []string `yaml:"allowed_hosts"`
	// AllowPrivate lets feeds live on loopback or private networks.
	AllowPrivate bool `yaml:"allow_private"`
}

func (c FeedsConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSeconds) * time.Second }

// Load reads the YAML file at path and applies defaults. An empty path
// yields the defaults alone.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 60
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "memory"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Lock.TTLSeconds == 0 {
		cfg.Lock.TTLSeconds = 30
	}
	if cfg.Lock.RetryMillis == 0 {
		cfg.Lock.RetryMillis = 50
	}
	if cfg.EventBus.Driver == "" {
		cfg.EventBus.Driver = "memory"
	}
	if cfg.EventBus.Stream == "" {
		cfg.EventBus.Stream = "contentflow:events"
	}
	if cfg.EventBus.Group == "" {
		cfg.EventBus.Group = "contentflow-workers"
	}
	if cfg.EventBus.Consumer == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.EventBus.Consumer = host
		} else {
			cfg.EventBus.Consumer = "worker-1"
		}
	}
	if cfg.EventBus.MaxLen == 0 {
		cfg.EventBus.MaxLen = 100000
	}
	if cfg.EventBus.BatchSize == 0 {
		cfg.EventBus.BatchSize = 50
	}
	if cfg.EventBus.BlockMillis == 0 {
		cfg.EventBus.BlockMillis = 5000
	}
	if cfg.EventBus.MinIdleSeconds == 0 {
		cfg.EventBus.MinIdleSeconds = 60
	}
	if cfg.EventBus.Buffer == 0 {
		cfg.EventBus.Buffer = 1024
	}
	if cfg.Automation.BaseURL == "" {
		cfg.Automation.BaseURL = "http://localhost:5678"
	}
	if cfg.Automation.Ledger == "" {
		cfg.Automation.Ledger = "memory"
	}
	if cfg.Automation.DynamoTable == "" {
		cfg.Automation.DynamoTable = "contentflow-deliveries"
	}
	if cfg.Automation.LeaseSeconds == 0 {
		cfg.Automation.LeaseSeconds = 300
	}
	if cfg.Automation.MaxRetries == 0 {
		cfg.Automation.MaxRetries = 3
	}
	if cfg.Automation.TimeoutSeconds == 0 {
		cfg.Automation.TimeoutSeconds = 30
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 2000
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.7
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.ArchivePrefix == "" {
		cfg.Storage.ArchivePrefix = "events"
	}
	if cfg.Notify.FromName == "" {
		cfg.Notify.FromName = "contentflow"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Feeds.DefaultLimit == 0 {
		cfg.Feeds.DefaultLimit = 10
	}
	if cfg.Feeds.TimeoutSeconds == 0 {
		cfg.Feeds.TimeoutSeconds = 15
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	// Database override (a URL implies the postgres driver)
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
		cfg.Database.Driver = "postgres"
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("EVENT_BUS_DRIVER"); v != "" {
		cfg.EventBus.Driver = v
	}
	if v := os.Getenv("N8N_BASE_URL"); v != "" {
		cfg.Automation.BaseURL = v
	}
	if v := os.Getenv("N8N_API_KEY"); v != "" {
		cfg.Automation.APIKey = v
	}
	if v := os.Getenv("BEDROCK_MODEL_ID"); v != "" {
		cfg.AI.ModelID = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.Storage.SecretKey = v
	}
	if v := os.Getenv("ARCHIVE_BUCKET"); v != "" {
		cfg.Storage.ArchiveBucket = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, nil
}

// Validate reports every inconsistent setting at once.
func (cfg *Config) Validate() error {
	var errs []error
	switch cfg.Database.Driver {
	case "memory":
	case "postgres":
		if cfg.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of memory, postgres", cfg.Database.Driver))
	}
	switch cfg.EventBus.Driver {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("event_bus.driver %q is not one of memory, redis", cfg.EventBus.Driver))
	}
	switch cfg.Automation.Ledger {
	case "memory", "dynamodb":
	case "postgres":
		if cfg.Database.Driver != "postgres" {
			errs = append(errs, errors.New("automation.ledger postgres requires database.driver postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("automation.ledger %q is not one of memory, postgres, dynamodb", cfg.Automation.Ledger))
	}
	if cfg.Notify.Enabled && cfg.Notify.FromEmail == "" {
		errs = append(errs, errors.New("notify.from_email is required when notify is enabled"))
	}
	if cfg.Notify.Enabled && cfg.EventBus.Driver == "redis" && cfg.Database.Driver == "memory" {
		// The worker would look owners up in its own empty memory store.
		errs = append(errs, errors.New("notify with event_bus.driver redis requires database.driver postgres"))
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", cfg.Server.Port))
	}
	return errors.Join(errs...)
}

package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	domainErrors "github.com/polkiloo/salesrollup/internal/domain/errors"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress     string
	StorageBackend string
	DatabaseURI    string
	MongoURI       string
	MongoDatabase  string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	LedgerEnabled bool
	LedgerTTL     time.Duration

	DateFallbackPolicy string
	BusinessTimezone   string
	Location           *time.Location

	IngestAPIKeyHash string
	TokenSecret      string

	WorkerPoolSize      int
	QueueSize           int
	MaxDeliveryAttempts int
	RetryDelay          time.Duration
	ShutdownTimeout     time.Duration

	ChangeStreamEnabled bool
	OrdersCollection    string

	LogLevel string
}

const (
	defaultRunAddress          = ":8080"
	defaultStorageBackend      = BackendMemory
	defaultMongoDatabase       = "salesrollup"
	defaultLedgerTTL           = 7 * 24 * time.Hour
	defaultBusinessTimezone    = "UTC"
	defaultTokenSecret         = "change-me-in-production"
	defaultWorkerPoolSize      = 4
	defaultQueueSize           = 256
	defaultMaxDeliveryAttempts = 3
	defaultRetryDelay          = 500 * time.Millisecond
	defaultShutdownTimeout     = 10 * time.Second
	defaultOrdersCollection    = "orders"
	defaultLogLevel            = "info"
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:          getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		StorageBackend:      getString(lookup, "STORAGE_BACKEND", defaultStorageBackend),
		DatabaseURI:         getString(lookup, "DATABASE_URI", ""),
		MongoURI:            getString(lookup, "MONGO_URI", ""),
		MongoDatabase:       getString(lookup, "MONGO_DATABASE", defaultMongoDatabase),
		RedisAddr:           getString(lookup, "REDIS_ADDR", ""),
		RedisPassword:       getString(lookup, "REDIS_PASSWORD", ""),
		RedisDB:             getInt(lookup, "REDIS_DB", 0),
		LedgerEnabled:       getBool(lookup, "LEDGER_ENABLED", false),
		LedgerTTL:           getDuration(lookup, "LEDGER_TTL", defaultLedgerTTL),
		DateFallbackPolicy:  getString(lookup, "DATE_FALLBACK_POLICY", ""),
		BusinessTimezone:    getString(lookup, "BUSINESS_TIMEZONE", defaultBusinessTimezone),
		IngestAPIKeyHash:    getString(lookup, "INGEST_API_KEY_HASH", ""),
		TokenSecret:         getString(lookup, "TOKEN_SECRET", defaultTokenSecret),
		WorkerPoolSize:      getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		QueueSize:           getInt(lookup, "QUEUE_SIZE", defaultQueueSize),
		MaxDeliveryAttempts: getInt(lookup, "MAX_DELIVERY_ATTEMPTS", defaultMaxDeliveryAttempts),
		RetryDelay:          getDuration(lookup, "RETRY_DELAY", defaultRetryDelay),
		ShutdownTimeout:     getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		ChangeStreamEnabled: getBool(lookup, "CHANGE_STREAM_ENABLED", false),
		OrdersCollection:    getString(lookup, "ORDERS_COLLECTION", defaultOrdersCollection),
		LogLevel:            getString(lookup, "LOG_LEVEL", defaultLogLevel),
	}

	fs := flag.NewFlagSet("salesrollup", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		ledgerTTLStr       = cfg.LedgerTTL.String()
		retryDelayStr      = cfg.RetryDelay.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.StorageBackend, "storage", cfg.StorageBackend, "Rollup storage backend: memory, postgres or mongo")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.MongoURI, "mongo-uri", cfg.MongoURI, "MongoDB connection string")
	fs.StringVar(&cfg.MongoDatabase, "mongo-db", cfg.MongoDatabase, "MongoDB database name")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for the applied-event ledger")
	fs.BoolVar(&cfg.LedgerEnabled, "ledger", cfg.LedgerEnabled, "Deduplicate redelivered events")
	fs.StringVar(&ledgerTTLStr, "ledger-ttl", ledgerTTLStr, "Retention of applied-event keys")
	fs.StringVar(&cfg.DateFallbackPolicy, "date-policy", cfg.DateFallbackPolicy, "Date used for orders without one: processing or event")
	fs.StringVar(&cfg.BusinessTimezone, "tz", cfg.BusinessTimezone, "Time zone of daily buckets")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "Secret for signing stats read tokens")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent event workers")
	fs.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "Capacity of the ingest queue")
	fs.IntVar(&cfg.MaxDeliveryAttempts, "max-attempts", cfg.MaxDeliveryAttempts, "Delivery attempts per event")
	fs.StringVar(&retryDelayStr, "retry-delay", retryDelayStr, "Delay between delivery attempts")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.BoolVar(&cfg.ChangeStreamEnabled, "change-stream", cfg.ChangeStreamEnabled, "Consume order changes from a MongoDB change stream")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.LedgerTTL, err = time.ParseDuration(ledgerTTLStr); err != nil {
		return nil, fmt.Errorf("invalid ledger ttl: %w", err)
	}

	if cfg.RetryDelay, err = time.ParseDuration(retryDelayStr); err != nil {
		return nil, fmt.Errorf("invalid retry delay: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.TokenSecret, err = readSecretFile(lookup, "TOKEN_SECRET_FILE", cfg.TokenSecret); err != nil {
		return nil, fmt.Errorf("read token secret file: %w", err)
	}

	if cfg.IngestAPIKeyHash, err = readSecretFile(lookup, "INGEST_API_KEY_HASH_FILE", cfg.IngestAPIKeyHash); err != nil {
		return nil, fmt.Errorf("read ingest api key hash file: %w", err)
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	if cfg.MaxDeliveryAttempts <= 0 {
		cfg.MaxDeliveryAttempts = defaultMaxDeliveryAttempts
	}

	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	if cfg.LedgerTTL <= 0 {
		cfg.LedgerTTL = defaultLedgerTTL
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	switch cfg.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURI == "" {
			return nil, fmt.Errorf("database URI must be provided for the postgres backend")
		}
	case BackendMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("mongo URI must be provided for the mongo backend")
		}
	default:
		return nil, fmt.Errorf("storage backend %q: %w", cfg.StorageBackend, domainErrors.ErrUnknownBackend)
	}

	if cfg.ChangeStreamEnabled && cfg.MongoURI == "" {
		return nil, fmt.Errorf("mongo URI must be provided to consume the change stream")
	}

	cfg.DateFallbackPolicy = strings.TrimSpace(cfg.DateFallbackPolicy)

	if cfg.Location, err = time.LoadLocation(cfg.BusinessTimezone); err != nil {
		return nil, fmt.Errorf("invalid business timezone: %w", err)
	}

	return cfg, nil
}

func readSecretFile(lookup envLookup, key, current string) (string, error) {
	path, ok := lookup(key)
	if !ok || path == "" {
		return current, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(content)), nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

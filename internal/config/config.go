// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jason-s-yu/cardduel/internal/catalog"
	"github.com/jason-s-yu/cardduel/internal/database"
	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/jason-s-yu/cardduel/internal/store"
)

// Storage backends accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
)

// Config is the full set of knobs shared by the binaries.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	CatalogPath     string `env:"CATALOG_PATH" envDefault:"data/CoreMasterReference.json"`
	CatalogDegraded bool   `env:"CATALOG_DEGRADED" envDefault:"false"`
	DecksPath       string `env:"DECKS_PATH" envDefault:"data/decks.yaml"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"data/cardduel.db"`

	PostgresUser     string `env:"POSTGRES_USER"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PGHost           string `env:"PG_HOST" envDefault:"localhost"`
	PGPort           string `env:"PG_PORT" envDefault:"5432"`
	PGDatabase       string `env:"PG_DATABASE"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	QueueName     string `env:"HISTORIAN_QUEUE_NAME" envDefault:"cardduel_events"`
	PublishEvents bool   `env:"PUBLISH_EVENTS" envDefault:"false"`

	StorageRetries   int           `env:"STORAGE_RETRIES" envDefault:"2"`
	StorageRetryBase time.Duration `env:"STORAGE_RETRY_BASE" envDefault:"400ms"`
	StorageTimeout   time.Duration `env:"STORAGE_TIMEOUT" envDefault:"12s"`

	AdminKeyHash       string `env:"ADMIN_KEY_HASH"`
	AuthPrivateKeyPath string `env:"AUTH_PRIVATE_KEY_PATH"`
	AuthPublicKeyPath  string `env:"AUTH_PUBLIC_KEY_PATH"`
	TokenExpireTime    string `env:"TOKEN_EXPIRE_TIME" envDefault:"never"`

	WeightCommon    int `env:"WEIGHT_COMMON" envDefault:"5"`
	WeightUncommon  int `env:"WEIGHT_UNCOMMON" envDefault:"3"`
	WeightRare      int `env:"WEIGHT_RARE" envDefault:"2"`
	WeightLegendary int `env:"WEIGHT_LEGENDARY" envDefault:"1"`

	PracticeDeckSize     int `env:"PRACTICE_DECK_SIZE" envDefault:"20"`
	SpectatorArchiveSize int `env:"SPECTATOR_ARCHIVE_SIZE" envDefault:"100"`

	HistorianBatchSize int           `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	HistorianFlush     time.Duration `env:"HISTORIAN_FLUSH" envDefault:"500ms"`
	InactivityTimeout  time.Duration `env:"SESSION_INACTIVITY_TIMEOUT" envDefault:"10m"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates a Config.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the service cannot run with.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendPostgres, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.StorageRetries < 0 {
		return fmt.Errorf("STORAGE_RETRIES must be non-negative, got %d", c.StorageRetries)
	}
	for name, w := range map[string]int{
		"WEIGHT_COMMON":    c.WeightCommon,
		"WEIGHT_UNCOMMON":  c.WeightUncommon,
		"WEIGHT_RARE":      c.WeightRare,
		"WEIGHT_LEGENDARY": c.WeightLegendary,
	} {
		if w < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, w)
		}
	}
	if c.PracticeDeckSize <= 0 {
		return fmt.Errorf("PRACTICE_DECK_SIZE must be positive, got %d", c.PracticeDeckSize)
	}
	return nil
}

// Weights returns the rarity weights for practice deck sampling.
func (c Config) Weights() catalog.Weights {
	return catalog.Weights{
		models.RarityCommon:    c.WeightCommon,
		models.RarityUncommon:  c.WeightUncommon,
		models.RarityRare:      c.WeightRare,
		models.RarityLegendary: c.WeightLegendary,
	}
}

// RetryOptions returns the storage retry policy.
func (c Config) RetryOptions() store.RetryOptions {
	opts := store.DefaultRetryOptions
	opts.Retries = c.StorageRetries
	opts.BaseDelay = c.StorageRetryBase
	opts.Timeout = c.StorageTimeout
	return opts
}

// Postgres returns the pgx connection options.
func (c Config) Postgres() database.Options {
	return database.Options{
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		Host:     c.PGHost,
		Port:     c.PGPort,
		Database: c.PGDatabase,
	}
}

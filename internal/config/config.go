package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/cloo-solutions/placesearch/internal/geocell"
)

// Candidate sources.
const (
	SourcePostgres = "postgres"
	SourceMongo    = "mongo"
	SourceMemory   = "memory"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`

	// CandidateSource selects where places come from: postgres, mongo or memory.
	CandidateSource string `envconfig:"CANDIDATE_SOURCE" default:"postgres"`
	MongoURI        string `envconfig:"MONGO_URI"`
	MongoDatabase   string `envconfig:"MONGO_DATABASE" default:"placesearch"`
	SeedFile        string `envconfig:"SEED_FILE"`

	CacheBackend    string        `envconfig:"CACHE_BACKEND" default:"memory"`
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	CacheMaxEntries int           `envconfig:"CACHE_MAX_ENTRIES" default:"1000"`
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	JanitorInterval time.Duration `envconfig:"JANITOR_INTERVAL" default:"1m"`

	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"3s"`
	CellPrecision int           `envconfig:"CELL_PRECISION" default:"6"`

	SearchLogEnabled   bool          `envconfig:"SEARCH_LOG_ENABLED" default:"true"`
	SearchLogRetention time.Duration `envconfig:"SEARCH_LOG_RETENTION" default:"720h"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"placesearch-seeds"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PLACESEARCH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.CandidateSource = strings.ToLower(cfg.CandidateSource)
	cfg.CacheBackend = strings.ToLower(cfg.CacheBackend)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.CandidateSource {
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("PLACESEARCH_DATABASE_URL is required for candidate source %q", c.CandidateSource)
		}
	case SourceMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("PLACESEARCH_MONGO_URI is required for candidate source %q", c.CandidateSource)
		}
	case SourceMemory:
		if c.SeedFile == "" {
			return fmt.Errorf("PLACESEARCH_SEED_FILE is required for candidate source %q", c.CandidateSource)
		}
	default:
		return fmt.Errorf("unknown candidate source %q", c.CandidateSource)
	}

	switch c.CacheBackend {
	case CacheMemory:
		if c.CacheMaxEntries <= 0 {
			return fmt.Errorf("PLACESEARCH_CACHE_MAX_ENTRIES must be positive")
		}
	case CacheRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("PLACESEARCH_REDIS_ADDR is required for cache backend %q", c.CacheBackend)
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("PLACESEARCH_CACHE_TTL must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("PLACESEARCH_FETCH_TIMEOUT must be positive")
	}
	if c.CellPrecision < geocell.MinPrecision || c.CellPrecision > geocell.MaxPrecision {
		return fmt.Errorf("PLACESEARCH_CELL_PRECISION must be between %d and %d", geocell.MinPrecision, geocell.MaxPrecision)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// HasDatabase reports whether a Postgres database is configured.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// HasSearchLog reports whether searches should be written to the search log.
func (c *Config) HasSearchLog() bool {
	return c.SearchLogEnabled && c.HasDatabase()
}

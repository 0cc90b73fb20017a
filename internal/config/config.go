package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends accepted by LEDGER_STORE.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds every setting the binaries read from the environment.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	Store  string `env:"LEDGER_STORE" envDefault:"sqlite"`
	DBPath string `env:"LEDGER_DB_PATH" envDefault:"lifeledger.db"`
	Locale string `env:"LEDGER_LOCALE" envDefault:"pt-BR"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"60s"`

	GCPProject string `env:"GCP_PROJECT"`
	BQDataset  string `env:"BQ_DATASET" envDefault:"lifeledger"`
	GCSBucket  string `env:"GCS_BUCKET"`

	GeminiModel string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	NotionToken string `env:"NOTION_TOKEN"`
	NotionDBID  string `env:"NOTION_DB_ID"`

	BackupInterval time.Duration `env:"BACKUP_INTERVAL" envDefault:"24h"`
	JobRetention   int           `env:"JOB_RETENTION" envDefault:"1000"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store) {
	case StoreSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("config: LEDGER_DB_PATH is required for the sqlite store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown LEDGER_STORE %q", c.Store)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be positive")
	}
	return nil
}

// WarehouseEnabled reports whether BigQuery export is configured.
func (c *Config) WarehouseEnabled() bool {
	return c.GCPProject != "" && c.BQDataset != ""
}

// BackupEnabled reports whether snapshot backups have a bucket to write to.
func (c *Config) BackupEnabled() bool {
	return c.GCSBucket != ""
}

// NotionEnabled reports whether Notion sync has credentials.
func (c *Config) NotionEnabled() bool {
	return c.NotionToken != "" && c.NotionDBID != ""
}

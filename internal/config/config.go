package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string `env:"DRAFT_ADDR" envDefault:":8080"`
	BackendID   string `env:"DRAFT_BACKEND_ID"`
	InboxDriver string `env:"DRAFT_INBOX_DRIVER" envDefault:"sqlite"` // postgres | sqlite | memory
	PostgresDSN string `env:"DRAFT_POSTGRES_DSN"`
	SQLitePath  string `env:"DRAFT_SQLITE_PATH" envDefault:"inbox.db"`
	ArchiveDSN  string `env:"DRAFT_ARCHIVE_DSN"` // empty disables archiving
	Debug       bool   `env:"DRAFT_DEBUG" envDefault:"false"`
}

// Load reads .env (if present) and then the process environment. BackendID
// falls back to the hostname so fleet instances are distinguishable in the
// inbox ledger without any configuration.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BackendID == "" {
		host, err := os.Hostname()
		if err != nil {
			return Config{}, fmt.Errorf("derive backend id: %w", err)
		}
		cfg.BackendID = host
	}
	if cfg.InboxDriver == "postgres" && cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("DRAFT_POSTGRES_DSN is required with the postgres inbox driver")
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Core
	BotToken      string `env:"BOT_TOKEN,required"`
	BackendURL    string `env:"BACKEND_URL,required"`
	BackendAPIKey string `env:"BACKEND_API_KEY,required"`

	// Balance push stream; polling is used when disabled
	BalanceStreamEnabled bool `env:"BALANCE_STREAM_ENABLED" envDefault:"false"`

	// Storage: "postgres" or "sqlite"
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"data/companion.db"`

	// Return server
	PublicURL   string   `env:"PUBLIC_URL,required"`
	Port        int      `env:"PORT" envDefault:"3000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"https://web.telegram.org"`

	// Admin
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Telegram event log
	LogTelegramChatID   int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError       int   `env:"LOG_TOPIC_ERROR"`
	LogTopicPayment     int   `env:"LOG_TOPIC_PAYMENT"`
	LogTopicSessionExit int   `env:"LOG_TOPIC_SESSION_EXIT"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite storage")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}

// MigrationURL returns the golang-migrate database URL for the configured driver.
func (c *Config) MigrationURL() string {
	if c.StorageDriver == "postgres" {
		return c.DatabaseURL
	}
	return "sqlite3://" + c.SQLitePath
}

// ReturnURL is the landing location the payment page redirects back to for a session.
func (c *Config) ReturnURL(token string) string {
	return strings.TrimRight(c.PublicURL, "/") + "/return/" + token
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

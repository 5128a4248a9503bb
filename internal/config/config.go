package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string
	OwnerID       int64

	StoreBackend string
	DatabaseURL  string
	PlistPath    string
	RedisURL     string
	CacheTTL     time.Duration

	BackupPath     string
	BackupInterval time.Duration
	SummaryTime    string

	LogLevel string
	AppEnv   string
	Language string
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", "sqlite")),
		DatabaseURL:    getEnv("DATABASE_URL", "todoey.db"),
		PlistPath:      getEnv("PLIST_PATH", "Items.plist"),
		RedisURL:       getEnv("REDIS_URL", ""),
		CacheTTL:       parseDuration(getEnv("CACHE_TTL", ""), 10*time.Minute),
		BackupPath:     getEnv("BACKUP_PATH", ""),
		BackupInterval: parseInterval(getEnv("BACKUP_INTERVAL_HOURS", "")),
		SummaryTime:    getEnv("SUMMARY_TIME", ""),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AppEnv:         strings.ToLower(getEnv("APP_ENV", "production")),
		Language:       strings.ToLower(getEnv("LANGUAGE", "en")),
	}

	if cfg.BackupInterval == 0 {
		cfg.BackupInterval = 24 * time.Hour
	}

	if raw := getEnv("TELEGRAM_OWNER_ID", ""); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("TELEGRAM_OWNER_ID must be a numeric chat id: %w", err)
		}
		cfg.OwnerID = id
	}

	switch cfg.StoreBackend {
	case "sqlite", "plist", "memory":
	default:
		return cfg, fmt.Errorf("STORE_BACKEND must be sqlite, plist or memory, got %q", cfg.StoreBackend)
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

// Development reports whether human-readable logs were asked for.
func (c Config) Development() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev" || c.LogLevel == "debug"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

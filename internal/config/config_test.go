package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"TELEGRAM_TOKEN", "TELEGRAM_OWNER_ID", "STORE_BACKEND", "DATABASE_URL",
	"PLIST_PATH", "REDIS_URL", "CACHE_TTL", "BACKUP_PATH",
	"BACKUP_INTERVAL_HOURS", "SUMMARY_TIME", "LOG_LEVEL", "APP_ENV", "LANGUAGE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	// Run inside an empty directory so no .env file leaks in.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// Setenv restores the old value afterwards; unset so .env can fill it.
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "todoey.db", cfg.DatabaseURL)
	assert.Equal(t, "Items.plist", cfg.PlistPath)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.BackupInterval)
	assert.Equal(t, "en", cfg.Language)
	assert.Zero(t, cfg.OwnerID)
	assert.False(t, cfg.Development())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("TELEGRAM_OWNER_ID", "42")
	t.Setenv("STORE_BACKEND", "PLIST")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("BACKUP_INTERVAL_HOURS", "6")
	t.Setenv("APP_ENV", "development")
	t.Setenv("LANGUAGE", "ru")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.OwnerID)
	assert.Equal(t, "plist", cfg.StoreBackend)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 6*time.Hour, cfg.BackupInterval)
	assert.Equal(t, "ru", cfg.Language)
	assert.True(t, cfg.Development())
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.ErrorContains(t, err, "TELEGRAM_TOKEN")

	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("TELEGRAM_OWNER_ID", "me")
	_, err = Load()
	assert.ErrorContains(t, err, "TELEGRAM_OWNER_ID")

	t.Setenv("TELEGRAM_OWNER_ID", "")
	t.Setenv("STORE_BACKEND", "realm")
	_, err = Load()
	assert.ErrorContains(t, err, "STORE_BACKEND")
}

func TestLoadReadsDotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("TELEGRAM_TOKEN=from-file\nSUMMARY_TIME=08:15\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.TelegramToken)
	assert.Equal(t, "08:15", cfg.SummaryTime)
}

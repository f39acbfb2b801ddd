package config_test

import (
	"testing"
	"time"

	"github.com/Houeta/seat-watch/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestMustLoad(t *testing.T) {
	t.Run("error - empty required env variable", func(t *testing.T) {
		t.Setenv("SW_TELEGRAM_TOKEN", "")

		assert.PanicsWithError(t, config.ErrEmptyToken.Error(), func() {
			config.MustLoad()
		})
	})

	t.Run("success", func(t *testing.T) {
		t.Setenv("SW_ENV", "local")
		t.Setenv("SW_TELEGRAM_TOKEN", "telegramToken")
		t.Setenv("SW_SOURCE_URL", "https://example.com/api")
		t.Setenv("SW_STORAGE_PATH", "some/path/to/db")
		t.Setenv("SW_POLL_BATCH_SIZE", "3")

		cfg := config.MustLoad()

		assert.Equal(t, "local", cfg.Env)
		assert.Equal(t, 15*time.Second, cfg.Tg.Timeout)
		assert.Equal(t, 10*time.Second, cfg.Tg.SendTimeout)
		assert.Equal(t, "telegramToken", cfg.Tg.Token)
		assert.Equal(t, "https://example.com/api", cfg.Source.URL)
		assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
		assert.Equal(t, "some/path/to/db", cfg.StoragePath)
		assert.Equal(t, 3, cfg.Poll.BatchSize)
		assert.Equal(t, 500, cfg.Poll.ListLimit)
		assert.Equal(t, 3, cfg.Retry.MaxAttempts)
		assert.Empty(t, cfg.Redis.Addr)
	})
}

func TestLoad_WithoutToken(t *testing.T) {
	t.Setenv("SW_TELEGRAM_TOKEN", "")
	t.Setenv("SW_REDIS_ADDR", "localhost:6379")

	cfg := config.Load()

	assert.Empty(t, cfg.Tg.Token)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 720*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, 4, cfg.Poll.BatchSize)
}

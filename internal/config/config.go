package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrEmptyToken = errors.New("error getting SW_TELEGRAM_TOKEN: variable not specified or contains an empty string")

type Config struct {
	Env         string // Env is the current environment: local, development, production.
	StoragePath string
	Source      Source
	Poll        Poll
	Retry       Retry
	Tg          Telegram
	Redis       Redis
}

// Source configures the upstream course section API.
type Source struct {
	URL      string
	Term     string
	PageSize int
	Timeout  time.Duration // Timeout bounds a single upstream call.
}

// Poll configures the sweep scheduler.
type Poll struct {
	Interval   time.Duration
	BatchSize  int
	BatchDelay time.Duration // BatchDelay is an optional pause between batches.
	ListLimit  int           // ListLimit caps how many watches one sweep reads.
}

// Retry configures the retry policy applied at repository and source call sites.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

type Telegram struct {
	Token       string        // Token is an unique telgram bot token.
	Timeout     time.Duration // Timeout is a poller timeout duration.
	SendTimeout time.Duration // SendTimeout bounds one notification.
}

// Redis is optional. An empty Addr keeps the alert ledger in SQLite.
type Redis struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// MustLoad loads the configuration from environment variables and returns a Config struct.
// It panics when no Telegram token is configured.
func MustLoad() *Config {
	cfg := Load()

	if cfg.Tg.Token == "" {
		panic(ErrEmptyToken)
	}

	return cfg
}

// Load reads the configuration without requiring a Telegram token. Operator
// commands that never talk to Telegram use it.
func Load() *Config {
	// A missing .env file is fine, the environment may already be populated.
	_ = godotenv.Load()

	// Automatically binds environment variables to config keys
	viper.SetEnvPrefix("SW")
	viper.AutomaticEnv()

	// optional args
	viper.SetDefault("ENV", "production")
	viper.SetDefault("STORAGE_PATH", "seatwatch.db")
	viper.SetDefault("SOURCE_URL", "https://howdy.tamu.edu/api/course-sections")
	viper.SetDefault("SOURCE_TERM", "202511")
	viper.SetDefault("SOURCE_PAGE_SIZE", 50)
	viper.SetDefault("SOURCE_TIMEOUT", "5s")
	viper.SetDefault("POLL_INTERVAL", "5m")
	viper.SetDefault("POLL_BATCH_SIZE", 4)
	viper.SetDefault("POLL_BATCH_DELAY", "1s")
	viper.SetDefault("POLL_LIST_LIMIT", 500)
	viper.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	viper.SetDefault("RETRY_BASE_DELAY", "500ms")
	viper.SetDefault("RETRY_MAX_DELAY", "5s")
	viper.SetDefault("TELEGRAM_TIMEOUT", "15s")
	viper.SetDefault("TELEGRAM_SEND_TIMEOUT", "10s")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_TTL", "720h")

	return &Config{
		Env:         viper.GetString("ENV"),
		StoragePath: viper.GetString("STORAGE_PATH"),
		Source: Source{
			URL:      viper.GetString("SOURCE_URL"),
			Term:     viper.GetString("SOURCE_TERM"),
			PageSize: viper.GetInt("SOURCE_PAGE_SIZE"),
			Timeout:  viper.GetDuration("SOURCE_TIMEOUT"),
		},
		Poll: Poll{
			Interval:   viper.GetDuration("POLL_INTERVAL"),
			BatchSize:  viper.GetInt("POLL_BATCH_SIZE"),
			BatchDelay: viper.GetDuration("POLL_BATCH_DELAY"),
			ListLimit:  viper.GetInt("POLL_LIST_LIMIT"),
		},
		Retry: Retry{
			MaxAttempts: viper.GetInt("RETRY_MAX_ATTEMPTS"),
			BaseDelay:   viper.GetDuration("RETRY_BASE_DELAY"),
			MaxDelay:    viper.GetDuration("RETRY_MAX_DELAY"),
		},
		Tg: Telegram{
			Token:       viper.GetString("TELEGRAM_TOKEN"),
			Timeout:     viper.GetDuration("TELEGRAM_TIMEOUT"),
			SendTimeout: viper.GetDuration("TELEGRAM_SEND_TIMEOUT"),
		},
		Redis: Redis{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			TTL:      viper.GetDuration("REDIS_TTL"),
		},
	}
}

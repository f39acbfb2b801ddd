package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Houeta/seat-watch/internal/bot"
	"github.com/Houeta/seat-watch/internal/config"
	"github.com/Houeta/seat-watch/internal/notify"
	redisrepo "github.com/Houeta/seat-watch/internal/repository/redis"
	"github.com/Houeta/seat-watch/internal/repository/sqlite"
	"github.com/Houeta/seat-watch/internal/retry"
	"github.com/Houeta/seat-watch/internal/services/checker"
	"github.com/Houeta/seat-watch/internal/services/initializer"
	"github.com/Houeta/seat-watch/internal/services/scheduler"
	"github.com/Houeta/seat-watch/internal/services/watcher"
	"github.com/Houeta/seat-watch/internal/source"
)

// app holds the long-lived dependencies shared by every command.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	repo   *sqlite.Repository
	ledger checker.AlertLedger
	redis  *redisrepo.AlertLedger
}

// openApp opens storage and the alert ledger. Redis is used for the ledger
// when an address is configured, SQLite otherwise.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := setupLogger(cfg.Env)

	repo, err := sqlite.NewRepository(ctx, logger, cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	// One connection per concurrent watch plus one for the scheduler's listing.
	repo.SetPoolSize(cfg.Poll.BatchSize + 1)

	a := &app{cfg: cfg, log: logger, repo: repo, ledger: repo}

	if cfg.Redis.Addr != "" {
		ledger, redisErr := redisrepo.NewAlertLedger(ctx, logger, cfg.Redis.Addr, cfg.Redis.Password,
			cfg.Redis.DB, cfg.Redis.TTL)
		if redisErr != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", redisErr)
		}
		a.redis = ledger
		a.ledger = ledger
	}

	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("Failed to close redis", "error", err)
		}
	}

	if err := a.repo.Close(); err != nil {
		a.log.Error("Failed to close storage", "error", err)
	}
}

func (a *app) policies() checker.Policies {
	base := retry.Policy{
		MaxAttempts: a.cfg.Retry.MaxAttempts,
		BaseDelay:   a.cfg.Retry.BaseDelay,
		MaxDelay:    a.cfg.Retry.MaxDelay,
	}

	return checker.Policies{
		Fetch:         base.WithRetryable(source.IsTransient).WithTimeout(a.cfg.Source.Timeout),
		Store:         base.WithRetryable(sqlite.IsTransient),
		NotifyTimeout: a.cfg.Tg.SendTimeout,
	}
}

func (a *app) source() *source.Client {
	return source.NewClient(a.log, a.cfg.Source.URL, a.cfg.Source.Term, a.cfg.Source.PageSize, a.cfg.Source.Timeout)
}

func (a *app) scheduler(notifier checker.Notifier) *scheduler.Scheduler {
	processor := checker.NewProcessor(a.log, a.source(), a.repo, a.ledger, notifier, a.policies())

	return scheduler.New(a.log, a.repo, processor, scheduler.Options{
		BatchSize:  a.cfg.Poll.BatchSize,
		BatchDelay: a.cfg.Poll.BatchDelay,
		ListLimit:  a.cfg.Poll.ListLimit,
		ListPolicy: a.policies().Store,
	})
}

func (a *app) watches(notifier checker.Notifier) *watcher.Service {
	baseline := initializer.New(a.log, a.repo, a.source(), notifier, a.policies())

	return watcher.New(a.log, a.repo, baseline)
}

// notifier returns the log notifier for dry runs and the Telegram bot otherwise.
// The bot is nil for dry runs.
func (a *app) notifier(dryRun bool) (checker.Notifier, *bot.Bot, error) {
	if dryRun {
		return notify.NewLogNotifier(a.log), nil, nil
	}

	if a.cfg.Tg.Token == "" {
		return nil, nil, config.ErrEmptyToken
	}

	tgBot, err := bot.NewBot(a.log, a.cfg.Tg.Token, a.cfg.Tg.Timeout, a.cfg.Tg.SendTimeout)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // already describes the failure
	}

	return tgBot, tgBot, nil
}

// Package redis keeps the alert ledger in Redis so several engine processes
// can share one deduplication view.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/seat-watch/internal/models"
	goredis "github.com/redis/go-redis/v9"
)

const (
	alertPrefix = "seatwatch:alert:"
	pingTimeout = 5 * time.Second
)

// AlertLedger records delivered status-change alerts with a TTL.
type AlertLedger struct {
	rdb *goredis.Client
	ttl time.Duration
	log *slog.Logger
}

// NewAlertLedger connects to Redis and checks the connection with a ping.
func NewAlertLedger(ctx context.Context, log *slog.Logger, addr, password string, db int, ttl time.Duration) (*AlertLedger, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("unable to connect to redis at %s: %w", addr, err)
	}

	log.Info("Connected to redis", "addr", addr)

	return New(log, rdb, ttl), nil
}

// New wraps an existing client.
func New(log *slog.Logger, rdb *goredis.Client, ttl time.Duration) *AlertLedger {
	return &AlertLedger{rdb: rdb, ttl: ttl, log: log}
}

// AlertSent reports whether an alert with this key was already delivered.
func (l *AlertLedger) AlertSent(ctx context.Context, key models.AlertKey) (bool, error) {
	const opn = "repository.redis.AlertSent"

	n, err := l.rdb.Exists(ctx, alertPrefix+key.String()).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", opn, err)
	}

	return n > 0, nil
}

// RecordAlert marks an alert as delivered until the TTL expires.
func (l *AlertLedger) RecordAlert(ctx context.Context, key models.AlertKey) error {
	const opn = "repository.redis.RecordAlert"

	if err := l.rdb.Set(ctx, alertPrefix+key.String(), "1", l.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	return nil
}

// Close closes the redis connection.
func (l *AlertLedger) Close() error {
	if err := l.rdb.Close(); err != nil {
		l.log.Error("failed to close redis", "op", "repository.redis.Close", "error", err)
		return fmt.Errorf("failed to close redis: %w", err)
	}

	return nil
}

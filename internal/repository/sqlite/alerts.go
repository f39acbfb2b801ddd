package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Houeta/seat-watch/internal/models"
)

// AlertSent reports whether an alert with this key was already delivered.
func (r *Repository) AlertSent(ctx context.Context, key models.AlertKey) (bool, error) {
	const opn = "repository.sqlite.AlertSent"

	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM sent_alerts WHERE alert_key = ?", key.String()).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", opn, err)
	}

	return true, nil
}

// RecordAlert marks an alert as delivered. Recording the same key twice is a no-op.
func (r *Repository) RecordAlert(ctx context.Context, key models.AlertKey) error {
	const opn = "repository.sqlite.RecordAlert"

	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sent_alerts (alert_key, watch_id, sent_at) VALUES (?, ?, ?)",
		key.String(), key.WatchID, time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	return nil
}

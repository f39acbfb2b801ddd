package sqlite

import (
	"database/sql"
	"log/slog"
)

// NewForTest wraps an existing connection, used with sqlmock.
func NewForTest(db *sql.DB) *Repository {
	return &Repository{db: db, log: slog.New(slog.DiscardHandler)}
}

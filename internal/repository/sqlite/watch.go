package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/Houeta/seat-watch/internal/repository"
	"github.com/google/uuid"
)

const watchColumns = "id, subject, course_number, crns, recipient, status, created_at, updated_at"

const sectionColumns = "watch_id, crn, subject, course, section_number, title, instructor, location, status"

// CreateMinimal stores a new watch in the initializing state and returns its ID.
func (r *Repository) CreateMinimal(ctx context.Context, spec models.SearchSpec, recipient string) (string, error) {
	const opn = "repository.sqlite.CreateMinimal"

	if err := spec.Validate(); err != nil {
		return "", fmt.Errorf("%s: %w", opn, err)
	}

	id := uuid.NewString()
	now := time.Now().UTC().UnixNano()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO watches ("+watchColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		id, spec.Subject, spec.CourseNumber, strings.Join(spec.CRNs, ","), recipient,
		string(models.WatchInitializing), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", opn, err)
	}

	return id, nil
}

// GetByID returns the watch with its latest snapshot.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Watch, error) {
	const opn = "repository.sqlite.GetByID"

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // read only, nothing to undo

	row := tx.QueryRowContext(ctx, "SELECT "+watchColumns+" FROM watches WHERE id = ?", id)

	watch, err := scanWatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrWatchNotFound
		}
		return nil, fmt.Errorf("%s: failed to get watch: %w", opn, err)
	}

	sections, err := loadSections(ctx, tx, "watch_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}
	watch.Sections = sections[id]

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return watch, nil
}

// ListAll returns every watch, oldest first.
func (r *Repository) ListAll(ctx context.Context) ([]models.Watch, error) {
	const opn = "repository.sqlite.ListAll"

	watches, err := r.listWatches(ctx, "FROM watches ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	return watches, nil
}

// ListActive returns up to limit active watches positioned after the cursor
// in creation order. A non-positive limit reads all of them.
func (r *Repository) ListActive(ctx context.Context, after models.Cursor, limit int) ([]models.Watch, error) {
	const opn = "repository.sqlite.ListActive"

	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as no limit.
	}

	// Stored timestamps are never negative, so -1 sorts before all of them.
	createdAt := int64(-1)
	if !after.CreatedAt.IsZero() {
		createdAt = after.CreatedAt.UnixNano()
	}

	watches, err := r.listWatches(ctx,
		"FROM watches WHERE status = ? AND (created_at > ? OR (created_at = ? AND id > ?)) "+
			"ORDER BY created_at, id LIMIT ?",
		string(models.WatchActive), createdAt, createdAt, after.ID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	return watches, nil
}

// ListByRecipient returns every watch owned by recipient.
func (r *Repository) ListByRecipient(ctx context.Context, recipient string) ([]models.Watch, error) {
	const opn = "repository.sqlite.ListByRecipient"

	watches, err := r.listWatches(ctx, "FROM watches WHERE recipient = ? ORDER BY created_at, id", recipient)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	return watches, nil
}

// UpdateStatus moves a watch to a new lifecycle state.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status models.WatchStatus) error {
	const opn = "repository.sqlite.UpdateStatus"

	res, err := r.db.ExecContext(ctx,
		"UPDATE watches SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now().UTC().UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", opn, err)
	}
	if affected == 0 {
		return repository.ErrWatchNotFound
	}

	return nil
}

// UpdateSections atomically replaces the stored snapshot. It reports false
// when the watch no longer exists.
func (r *Repository) UpdateSections(ctx context.Context, id string, sections []models.Section) (bool, error) {
	const opn = "repository.sqlite.UpdateSections"

	// 1. begin transaction
	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return false, fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit only returns sql.ErrTxDone

	// 2. Advance the snapshot version, this also tells us whether the watch exists.
	res, err := tx.ExecContext(ctx, "UPDATE watches SET updated_at = ? WHERE id = ?", time.Now().UTC().UnixNano(), id)
	if err != nil {
		return false, fmt.Errorf("%s: failed to touch watch: %w", opn, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: failed to get affected rows: %w", opn, err)
	}
	if affected == 0 {
		return false, nil
	}

	// 3. Completely clear the previous snapshot.
	if _, err = tx.ExecContext(ctx, "DELETE FROM sections WHERE watch_id = ?", id); err != nil {
		return false, fmt.Errorf("%s: failed to delete old sections: %w", opn, err)
	}

	// 4. Insert the new snapshot keeping its order.
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO sections (position, "+sectionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return false, fmt.Errorf("%s: failed to prepare insert statement: %w", opn, err)
	}
	defer stmt.Close()

	for pos, s := range sections {
		if _, err = stmt.ExecContext(ctx, pos, id, s.CRN, s.Subject, s.Course, s.SectionNumber,
			s.Title, s.Instructor, s.Location, string(s.Status)); err != nil {
			return false, fmt.Errorf("%s: failed to insert section with crn %s: %w", opn, s.CRN, err)
		}
	}

	// 5. Confirm the transaction.
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return true, nil
}

// Delete removes a watch with its snapshot and alert history. It reports
// false when nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	const opn = "repository.sqlite.Delete"

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return false, fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit only returns sql.ErrTxDone

	if _, err = tx.ExecContext(ctx, "DELETE FROM sections WHERE watch_id = ?", id); err != nil {
		return false, fmt.Errorf("%s: failed to delete sections: %w", opn, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM sent_alerts WHERE watch_id = ?", id); err != nil {
		return false, fmt.Errorf("%s: failed to delete alerts: %w", opn, err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM watches WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("%s: failed to delete watch: %w", opn, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: failed to get affected rows: %w", opn, err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return affected > 0, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// listWatches reads the watches picked by selection, a FROM clause with its
// filter and ordering, and attaches their sections. Both reads share one
// transaction so a watch is never paired with a snapshot newer than its
// version.
func (r *Repository) listWatches(ctx context.Context, selection string, args ...any) ([]models.Watch, error) {
	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // read only, nothing to undo

	rows, err := tx.QueryContext(ctx, "SELECT "+watchColumns+" "+selection, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list watches: %w", err)
	}
	defer rows.Close()

	var watches []models.Watch
	for rows.Next() {
		watch, scanErr := scanWatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", scanErr)
		}
		watches = append(watches, *watch)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	_ = rows.Close()

	if len(watches) > 0 {
		sections, loadErr := loadSections(ctx, tx, "watch_id IN (SELECT id "+selection+")", args...)
		if loadErr != nil {
			return nil, loadErr
		}

		for i := range watches {
			watches[i].Sections = sections[watches[i].ID]
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return watches, nil
}

// loadSections returns snapshots grouped by watch ID, each in stored order.
func loadSections(ctx context.Context, q querier, filter string, args ...any) (map[string][]models.Section, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+sectionColumns+" FROM sections WHERE "+filter+" ORDER BY watch_id, position", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get sections: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]models.Section)
	for rows.Next() {
		var (
			watchID string
			s       models.Section
			status  string
		)
		if err = rows.Scan(&watchID, &s.CRN, &s.Subject, &s.Course, &s.SectionNumber,
			&s.Title, &s.Instructor, &s.Location, &status); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		s.Status = models.SectionStatus(status)
		result[watchID] = append(result[watchID], s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWatch(row scanner) (*models.Watch, error) {
	var (
		watch     models.Watch
		crns      string
		status    string
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(&watch.ID, &watch.Spec.Subject, &watch.Spec.CourseNumber, &crns,
		&watch.Recipient, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with their op name
	}

	if crns != "" {
		watch.Spec.CRNs = strings.Split(crns, ",")
	}
	watch.Status = models.WatchStatus(status)
	watch.CreatedAt = time.Unix(0, createdAt).UTC()
	watch.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return &watch, nil
}

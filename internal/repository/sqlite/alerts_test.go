package sqlite_test

import (
	"testing"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Integration_AlertLedger(t *testing.T) {
	repo := newTestDB(t)
	ctx := t.Context()

	key := models.AlertKey{WatchID: "w1", CRN: "100", Status: models.StatusClosed, Version: 42}

	sent, err := repo.AlertSent(ctx, key)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, repo.RecordAlert(ctx, key))
	require.NoError(t, repo.RecordAlert(ctx, key), "recording twice must be a no-op")

	sent, err = repo.AlertSent(ctx, key)
	require.NoError(t, err)
	assert.True(t, sent)

	next := key
	next.Version = 43
	sent, err = repo.AlertSent(ctx, next)
	require.NoError(t, err)
	assert.False(t, sent, "a newer snapshot version is a new alert")
}

func TestRepository_AlertSent_Failure(t *testing.T) {
	repo, mock := newMockedRepo(t)
	mock.ExpectQuery("SELECT 1 FROM sent_alerts").WillReturnError(assert.AnError)

	_, err := repo.AlertSent(t.Context(), models.AlertKey{WatchID: "w1"})

	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "repository.sqlite.AlertSent")
	assert.NoError(t, mock.ExpectationsWereMet())
}

package mocks

import (
	"context"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/stretchr/testify/mock"
)

// WatchRepository is a mock of the watch store.
type WatchRepository struct {
	mock.Mock
}

func (m *WatchRepository) ListAll(ctx context.Context) ([]models.Watch, error) {
	ret := m.Called(ctx)

	var watches []models.Watch
	if ret.Get(0) != nil {
		watches = ret.Get(0).([]models.Watch)
	}

	return watches, ret.Error(1)
}

func (m *WatchRepository) ListActive(ctx context.Context, after models.Cursor, limit int) ([]models.Watch, error) {
	ret := m.Called(ctx, after, limit)

	var watches []models.Watch
	if ret.Get(0) != nil {
		watches = ret.Get(0).([]models.Watch)
	}

	return watches, ret.Error(1)
}

func (m *WatchRepository) ListByRecipient(ctx context.Context, recipient string) ([]models.Watch, error) {
	ret := m.Called(ctx, recipient)

	var watches []models.Watch
	if ret.Get(0) != nil {
		watches = ret.Get(0).([]models.Watch)
	}

	return watches, ret.Error(1)
}

func (m *WatchRepository) GetByID(ctx context.Context, id string) (*models.Watch, error) {
	ret := m.Called(ctx, id)

	var watch *models.Watch
	if ret.Get(0) != nil {
		watch = ret.Get(0).(*models.Watch)
	}

	return watch, ret.Error(1)
}

func (m *WatchRepository) CreateMinimal(ctx context.Context, spec models.SearchSpec, recipient string) (string, error) {
	ret := m.Called(ctx, spec, recipient)
	return ret.String(0), ret.Error(1)
}

func (m *WatchRepository) UpdateStatus(ctx context.Context, id string, status models.WatchStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *WatchRepository) UpdateSections(ctx context.Context, id string, sections []models.Section) (bool, error) {
	ret := m.Called(ctx, id, sections)
	return ret.Bool(0), ret.Error(1)
}

func (m *WatchRepository) Delete(ctx context.Context, id string) (bool, error) {
	ret := m.Called(ctx, id)
	return ret.Bool(0), ret.Error(1)
}

// NewWatchRepository creates a mock and asserts its expectations on cleanup.
func NewWatchRepository(t testingT) *WatchRepository {
	m := &WatchRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

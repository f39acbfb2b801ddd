// Package mocks holds testify mocks for the collaborators of the services.
package mocks

import (
	"context"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(fn func())
}

// SectionSource is a mock of the upstream section source.
type SectionSource struct {
	mock.Mock
}

func (m *SectionSource) Fetch(ctx context.Context, spec models.SearchSpec) ([]models.Section, error) {
	ret := m.Called(ctx, spec)

	var sections []models.Section
	if fn, ok := ret.Get(0).(func(context.Context, models.SearchSpec) []models.Section); ok {
		sections = fn(ctx, spec)
	} else if ret.Get(0) != nil {
		sections = ret.Get(0).([]models.Section)
	}

	return sections, ret.Error(1)
}

// NewSectionSource creates a mock and asserts its expectations on cleanup.
func NewSectionSource(t testingT) *SectionSource {
	m := &SectionSource{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Notifier is a mock of a notification transport.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

// NewNotifier creates a mock and asserts its expectations on cleanup.
func NewNotifier(t testingT) *Notifier {
	m := &Notifier{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// AlertLedger is a mock of the alert deduplication ledger.
type AlertLedger struct {
	mock.Mock
}

func (m *AlertLedger) AlertSent(ctx context.Context, key models.AlertKey) (bool, error) {
	ret := m.Called(ctx, key)
	return ret.Bool(0), ret.Error(1)
}

func (m *AlertLedger) RecordAlert(ctx context.Context, key models.AlertKey) error {
	return m.Called(ctx, key).Error(0)
}

// NewAlertLedger creates a mock and asserts its expectations on cleanup.
func NewAlertLedger(t testingT) *AlertLedger {
	m := &AlertLedger{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

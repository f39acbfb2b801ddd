package mocks

import (
	"context"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/stretchr/testify/mock"
	"gopkg.in/telebot.v4"
)

// Initializer is a mock of the watch initializer.
type Initializer struct {
	mock.Mock
}

func (m *Initializer) Initialize(ctx context.Context, id string) models.Outcome {
	return m.Called(ctx, id).Get(0).(models.Outcome)
}

// NewInitializer creates a mock and asserts its expectations on cleanup.
func NewInitializer(t testingT) *Initializer {
	m := &Initializer{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// WatchService is a mock of the watch service used by the bot.
type WatchService struct {
	mock.Mock
}

func (m *WatchService) Create(ctx context.Context, spec models.SearchSpec, recipient string) (string, error) {
	ret := m.Called(ctx, spec, recipient)
	return ret.String(0), ret.Error(1)
}

func (m *WatchService) List(ctx context.Context, recipient string) ([]models.Watch, error) {
	ret := m.Called(ctx, recipient)

	var watches []models.Watch
	if ret.Get(0) != nil {
		watches = ret.Get(0).([]models.Watch)
	}

	return watches, ret.Error(1)
}

func (m *WatchService) Delete(ctx context.Context, id, recipient string) error {
	return m.Called(ctx, id, recipient).Error(0)
}

// NewWatchService creates a mock and asserts its expectations on cleanup.
func NewWatchService(t testingT) *WatchService {
	m := &WatchService{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// API is a mock of the Telegram bot API.
type API struct {
	mock.Mock
}

func (m *API) Handle(endpoint interface{}, h telebot.HandlerFunc, mw ...telebot.MiddlewareFunc) {
	args := []interface{}{endpoint, h}
	for _, w := range mw {
		args = append(args, w)
	}
	m.Called(args...)
}

func (m *API) Start() {
	m.Called()
}

func (m *API) Stop() {
	m.Called()
}

func (m *API) Leave(chat telebot.Recipient) error {
	return m.Called(chat).Error(0)
}

func (m *API) NewContext(u telebot.Update) telebot.Context {
	ret := m.Called(u)

	var c telebot.Context
	if ret.Get(0) != nil {
		c = ret.Get(0).(telebot.Context)
	}

	return c
}

func (m *API) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	args := append([]interface{}{to, what}, opts...)
	ret := m.Called(args...)

	var msg *telebot.Message
	if ret.Get(0) != nil {
		msg = ret.Get(0).(*telebot.Message)
	}

	return msg, ret.Error(1)
}

// NewAPI creates a mock and asserts its expectations on cleanup.
func NewAPI(t testingT) *API {
	m := &API{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

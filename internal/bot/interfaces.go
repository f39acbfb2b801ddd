package bot

import (
	"context"

	"github.com/Houeta/seat-watch/internal/models"
	"gopkg.in/telebot.v4"
)

type API interface {
	// Handle lets you set the handler for some command name or one of the supported endpoints. It also applies middleware if such passed to the function.
	Handle(endpoint interface{}, h telebot.HandlerFunc, m ...telebot.MiddlewareFunc)
	// Start brings bot into motion by consuming incoming updates (see Bot.Updates channel).
	Start()
	// Stop gracefully shuts the poller down.
	Stop()

	Leave(chat telebot.Recipient) error

	NewContext(u telebot.Update) telebot.Context

	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// WatchService manages the watches of a chat.
type WatchService interface {
	Create(ctx context.Context, spec models.SearchSpec, recipient string) (string, error)
	List(ctx context.Context, recipient string) ([]models.Watch, error)
	Delete(ctx context.Context, id, recipient string) error
}

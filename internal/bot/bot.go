package bot

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gopkg.in/telebot.v4"
)

// Bot contains the bot API instance and other information.
type Bot struct {
	bot     API
	sender  API // sender delivers notifications with its own request timeout.
	log     *slog.Logger
	watches WatchService
}

// NewBot connects to Telegram. Call SetWatchService before Start so the
// watch commands have something to work with. Notifications sent through the
// bot give up after sendTimeout.
func NewBot(log *slog.Logger, token string, poller, sendTimeout time.Duration) (*Bot, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: poller},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", bot.Me.Username)

	sender, err := newSender(telebot.DefaultApiURL, token, sendTimeout)
	if err != nil {
		return nil, err
	}

	botInstance := &Bot{bot: bot, sender: sender, log: log}

	botInstance.registerRoutes()

	return botInstance, nil
}

// newSender builds a second client for outgoing notifications. The polling
// client keeps long requests open, so it cannot carry a short timeout.
func newSender(apiURL, token string, timeout time.Duration) (*telebot.Bot, error) {
	sender, err := telebot.NewBot(telebot.Settings{
		URL:     apiURL,
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram sender: %w", err)
	}

	return sender, nil
}

// SetWatchService attaches the service behind the watch commands.
func (b *Bot) SetWatchService(watches WatchService) {
	b.watches = watches
}

// Start launches the bot to listen for updates.
func (b *Bot) Start() {
	b.log.Info("Telegram bot is starting...")
	b.bot.Start()
}

// Stop gracefully stops the Telegram bot and logs the action.
func (b *Bot) Stop() {
	b.log.Info("Telegram bot is stopped...")
	b.bot.Stop()
}

// registerRoutes configures all routes (commands).
func (b *Bot) registerRoutes() {
	// Public routes.
	b.bot.Handle("/start", b.startHandler)
	b.bot.Handle("/watch", b.watchHandler)
	b.bot.Handle("/crns", b.crnsHandler)
	b.bot.Handle("/list", b.listHandler)
	b.bot.Handle("/unwatch", b.unwatchHandler)
}

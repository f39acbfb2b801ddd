package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/Houeta/seat-watch/internal/repository"
	"gopkg.in/telebot.v4"
)

const requestTimeout = 15 * time.Second

const helpText = `Hello! I watch course sections and tell you when their seat status changes.

/watch SUBJECT NUMBER - watch every section of a course, e.g. /watch CSCE 411
/crns CRN[,CRN...] - watch specific sections, e.g. /crns 12345,12346
/list - show your watches
/unwatch ID - stop a watch`

// startHandler process command /start.
func (b *Bot) startHandler(ctx telebot.Context) error {
	b.log.Info("User started the bot", "username", ctx.Sender().Username)

	if err := ctx.Send(helpText); err != nil {
		return fmt.Errorf("failed to send greeting message: %w", err)
	}

	return nil
}

// watchHandler process command /watch SUBJECT NUMBER.
func (b *Bot) watchHandler(ctx telebot.Context) error {
	reqCtx, cancel := b.requestContext()
	defer cancel()

	return reply(ctx, b.watchCourse(reqCtx, chatRecipient(ctx), ctx.Args()))
}

// crnsHandler process command /crns CRN[,CRN...].
func (b *Bot) crnsHandler(ctx telebot.Context) error {
	reqCtx, cancel := b.requestContext()
	defer cancel()

	return reply(ctx, b.watchCRNs(reqCtx, chatRecipient(ctx), ctx.Args()))
}

// listHandler process command /list.
func (b *Bot) listHandler(ctx telebot.Context) error {
	reqCtx, cancel := b.requestContext()
	defer cancel()

	return reply(ctx, b.listWatches(reqCtx, chatRecipient(ctx)))
}

// unwatchHandler process command /unwatch ID.
func (b *Bot) unwatchHandler(ctx telebot.Context) error {
	reqCtx, cancel := b.requestContext()
	defer cancel()

	return reply(ctx, b.unwatch(reqCtx, chatRecipient(ctx), ctx.Args()))
}

func (b *Bot) watchCourse(ctx context.Context, recipient string, args []string) string {
	if len(args) != 2 { //nolint:mnd // SUBJECT NUMBER
		return "Usage: /watch SUBJECT NUMBER, e.g. /watch CSCE 411"
	}

	spec, err := models.NewCourseSpec(args[0], args[1])
	if err != nil {
		return "Usage: /watch SUBJECT NUMBER, e.g. /watch CSCE 411"
	}

	return b.create(ctx, spec, recipient)
}

func (b *Bot) watchCRNs(ctx context.Context, recipient string, args []string) string {
	crns := strings.FieldsFunc(strings.Join(args, ","), func(r rune) bool {
		return r == ',' || r == ' '
	})

	spec, err := models.NewCRNSpec(crns)
	if err != nil {
		return "Usage: /crns CRN[,CRN...], e.g. /crns 12345,12346"
	}

	return b.create(ctx, spec, recipient)
}

func (b *Bot) create(ctx context.Context, spec models.SearchSpec, recipient string) string {
	id, err := b.watches.Create(ctx, spec, recipient)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to create watch", "recipient", recipient, "error", err)
		return "Sorry, the watch could not be created. Please try again later."
	}

	return fmt.Sprintf("Watch %s created for %s.\nYou will get the current status of its sections shortly.", id, spec)
}

func (b *Bot) listWatches(ctx context.Context, recipient string) string {
	watches, err := b.watches.List(ctx, recipient)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to list watches", "recipient", recipient, "error", err)
		return "Sorry, your watches could not be loaded. Please try again later."
	}

	if len(watches) == 0 {
		return "You have no watches. Use /watch or /crns to add one."
	}

	var sb strings.Builder
	sb.WriteString("Your watches:\n")
	for _, w := range watches {
		fmt.Fprintf(&sb, "\n%s\n  %s, %s, %d section(s)\n", w.ID, w.Spec, w.Status, len(w.Sections))
	}

	return sb.String()
}

func (b *Bot) unwatch(ctx context.Context, recipient string, args []string) string {
	if len(args) != 1 {
		return "Usage: /unwatch ID"
	}

	err := b.watches.Delete(ctx, args[0], recipient)
	if errors.Is(err, repository.ErrWatchNotFound) {
		return fmt.Sprintf("No watch with ID %s.", args[0])
	}
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to delete watch", "recipient", recipient, "error", err)
		return "Sorry, the watch could not be removed. Please try again later."
	}

	return fmt.Sprintf("Watch %s removed.", args[0])
}

func (b *Bot) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func chatRecipient(ctx telebot.Context) string {
	return strconv.FormatInt(ctx.Chat().ID, 10)
}

func reply(ctx telebot.Context, text string) error {
	if err := ctx.Send(text); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	return nil
}

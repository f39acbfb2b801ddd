package bot

import (
	"context"
	"fmt"
	"strconv"

	"gopkg.in/telebot.v4"
)

// Send delivers a message to the chat whose ID is to.
func (b *Bot) Send(ctx context.Context, to, subject, body string) error {
	const opn = "bot.Send"

	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid chat id %q: %w", opn, to, err)
	}

	if err = ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	if _, err = b.sender.Send(telebot.ChatID(chatID), subject+"\n\n"+body); err != nil {
		return fmt.Errorf("%s: failed to send message: %w", opn, err)
	}

	b.log.DebugContext(ctx, "Message sent", "op", opn, "chat_id", chatID, "subject", subject)

	return nil
}

package telegram

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"

	"github.com/set-night/companion/internal/domain"
)

// Notifier pushes session output that arrives outside a chat update, such as a payment landing.
type Notifier struct {
	bot *bot.Bot
}

func NewNotifier(b *bot.Bot) *Notifier {
	return &Notifier{bot: b}
}

func (n *Notifier) Deliver(ctx context.Context, chatID int64, msgs []domain.Message) {
	for _, m := range msgs {
		if err := SendConversationMessage(ctx, n.bot, chatID, m); err != nil {
			slog.Error("failed to deliver message", "chat_id", chatID, "message_id", m.ID, "error", err)
		}
	}
}

func (n *Notifier) Warn(ctx context.Context, chatID int64, err error) {
	if sendErr := SendLongMessage(ctx, n.bot, chatID, WarningText(err), nil); sendErr != nil {
		slog.Error("failed to deliver warning", "chat_id", chatID, "error", sendErr)
	}
}

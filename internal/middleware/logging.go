package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Logging returns middleware that logs update processing time.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			origin := originOf(update)

			next(ctx, b, update)

			slog.Debug("update processed",
				"type", origin.kind,
				"chat_id", origin.chatID,
				"user_id", origin.userID,
				"private", origin.private,
				"duration", time.Since(start),
			)
		}
	}
}

// origin is the chat and sender of an update.
type origin struct {
	kind    string
	chatID  int64
	userID  int64
	private bool
}

func originOf(update *models.Update) origin {
	switch {
	case update.Message != nil:
		o := origin{
			kind:    "message",
			chatID:  update.Message.Chat.ID,
			private: update.Message.Chat.Type == "private",
		}
		if update.Message.From != nil {
			o.userID = update.Message.From.ID
		}
		return o
	case update.CallbackQuery != nil:
		o := origin{kind: "callback_query", userID: update.CallbackQuery.From.ID}
		if msg := update.CallbackQuery.Message.Message; msg != nil {
			o.chatID = msg.Chat.ID
			o.private = msg.Chat.Type == "private"
		}
		return o
	default:
		return origin{kind: "unknown"}
	}
}

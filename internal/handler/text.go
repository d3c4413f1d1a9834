package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/companion/internal/domain"
	"github.com/set-night/companion/internal/middleware"
	tg "github.com/set-night/companion/internal/telegram"
)

// HandleText runs one chat turn for a private text message.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	msg := update.Message

	// Skip commands
	if msg.Text == "" || strings.HasPrefix(msg.Text, "/") {
		return
	}

	chatID := msg.Chat.ID
	s := middleware.GetSession(ctx)
	if s == nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "⚠️ Chat is unavailable right now. Please try again in a moment.",
		})
		return
	}

	if res, ok := middleware.GetEnterResult(ctx); ok {
		h.sendEntry(ctx, b, chatID, res)
	}

	stopTyping := tg.StartTyping(ctx, b, chatID)
	res, err := s.Send(ctx, msg.Text)
	stopTyping()

	var validation *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrCreditsExhausted):
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        tg.WarningText(err),
			ReplyMarkup: topUpKeyboard(),
		})
		return
	case errors.Is(err, domain.ErrSendInFlight), errors.Is(err, domain.ErrSignedOut), errors.As(err, &validation):
		tg.SendLongMessage(ctx, b, chatID, tg.WarningText(err), nil)
		return
	case err != nil:
		h.fail(ctx, b, chatID, err, "send turn")
		return
	}

	if err := tg.SendConversationMessage(ctx, b, chatID, res.Assistant); err != nil {
		h.events.LogError(err, "deliver reply")
	}
	h.sendNotices(ctx, b, chatID, res.Warnings)

	if res.Exhausted {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        balanceText(s.Balance()),
			ReplyMarkup: topUpKeyboard(),
		})
	}
}

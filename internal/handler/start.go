package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/companion/internal/domain"
	"github.com/set-night/companion/internal/middleware"
	"github.com/set-night/companion/internal/session"
	tg "github.com/set-night/companion/internal/telegram"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	// The loader may have just entered the session for this very update.
	res, fresh := middleware.GetEnterResult(ctx)
	if !fresh {
		var err error
		_, res, err = h.sessions.Restart(ctx, chatID, update.Message.From.ID)
		if err != nil {
			h.fail(ctx, b, chatID, err, "start session")
			return
		}
	}

	tg.SendLongMessage(ctx, b, chatID, welcomeText(res.Balance), nil)
	h.sendEntry(ctx, b, chatID, res)
}

func (h *Handler) handleBalance(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	s := middleware.GetSession(ctx)
	if s == nil {
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        balanceText(s.Balance()),
		ReplyMarkup: topUpKeyboard(),
	})
}

func (h *Handler) handleLogout(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	s := middleware.GetSession(ctx)
	if s == nil {
		return
	}
	chatID := update.Message.Chat.ID
	balance := s.Balance()

	if err := h.sessions.SignOut(ctx, chatID); err != nil {
		h.fail(ctx, b, chatID, err, "sign out")
		return
	}
	h.events.LogSessionExit(chatID, s.UserID(), balance)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "👋 Signed out. This chat was cleared on this device. Send /start to come back.",
	})
}

// sendEntry shows what a fresh session entry produced: the greeting once, then any notices.
func (h *Handler) sendEntry(ctx context.Context, b *bot.Bot, chatID int64, res session.EnterResult) {
	for _, m := range res.Greeting {
		if err := tg.SendConversationMessage(ctx, b, chatID, m); err != nil {
			slog.Error("failed to send greeting", "chat_id", chatID, "error", err)
			return
		}
	}
	h.sendNotices(ctx, b, chatID, res.Warnings)
}

// sendNotices shows a single transient notice for a batch of non-fatal failures.
func (h *Handler) sendNotices(ctx context.Context, b *bot.Bot, chatID int64, warnings []error) {
	if len(warnings) == 0 {
		return
	}
	for _, w := range warnings {
		slog.Warn("session notice", "chat_id", chatID, "error", w)
	}
	tg.SendLongMessage(ctx, b, chatID, tg.WarningText(warnings[0]), nil)
}

// fail reports an unexpected error to the operators and shows a notice.
func (h *Handler) fail(ctx context.Context, b *bot.Bot, chatID int64, err error, where string) {
	slog.Error(where+" failed", "chat_id", chatID, "error", err)
	if !domain.IsTransient(err) {
		h.events.LogError(err, where)
	}
	tg.SendLongMessage(ctx, b, chatID, tg.WarningText(err), nil)
}

func topUpKeyboard() *models.InlineKeyboardMarkup {
	return tg.InlineKeyboard(tg.ButtonRow(
		tg.InlineButton("⏱ Buy time", tg.CallbackMenu+menuTopUp),
		tg.InlineButton("⭐ Plans", tg.CallbackMenu+menuSubscribe),
	))
}

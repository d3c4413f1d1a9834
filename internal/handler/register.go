package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	tg "github.com/set-night/companion/internal/telegram"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/balance", bot.MatchTypePrefix, h.handleBalance)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/topup", bot.MatchTypePrefix, h.handleTopUp)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/subscribe", bot.MatchTypePrefix, h.handleSubscribe)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/gallery", bot.MatchTypePrefix, h.handleGallery)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/logout", bot.MatchTypePrefix, h.handleLogout)

	// Payment callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackUnlock, bot.MatchTypePrefix, h.handleUnlock)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackOffer, bot.MatchTypePrefix, h.handleOffer)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackMenu, bot.MatchTypePrefix, h.handleMenu)

	// Gallery callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackGalleryPage+"_", bot.MatchTypePrefix, h.handleGalleryPage)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackNoop, bot.MatchTypeExact, h.handleNoop)
}

func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})
	}
}

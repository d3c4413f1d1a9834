package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/companion/internal/domain"
	"github.com/set-night/companion/internal/middleware"
	tg "github.com/set-night/companion/internal/telegram"
)

const (
	menuTopUp     = "topup"
	menuSubscribe = "subscribe"
)

func (h *Handler) handleTopUp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.showOffers(ctx, b, update.Message.Chat.ID, domain.CheckoutTimeCredits)
}

func (h *Handler) handleSubscribe(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.showOffers(ctx, b, update.Message.Chat.ID, domain.CheckoutSubscription)
}

func (h *Handler) handleMenu(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	kind := domain.CheckoutTimeCredits
	if strings.TrimPrefix(update.CallbackQuery.Data, tg.CallbackMenu) == menuSubscribe {
		kind = domain.CheckoutSubscription
	}
	chatID, ok := callbackChatID(update)
	if !ok {
		return
	}
	h.showOffers(ctx, b, chatID, kind)
}

func (h *Handler) showOffers(ctx context.Context, b *bot.Bot, chatID int64, kind domain.CheckoutKind) {
	offers, err := h.offers.FetchOffers(ctx)
	if err != nil {
		h.fail(ctx, b, chatID, err, "fetch offers")
		return
	}

	list := filterOffers(offers, kind)
	if len(list) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Nothing to buy right now. Please check back later.",
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        offersTitle(kind),
		ReplyMarkup: tg.OffersKeyboard(list),
	})
}

func (h *Handler) handleOffer(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	s := middleware.GetSession(ctx)
	if s == nil {
		return
	}
	chatID, ok := callbackChatID(update)
	if !ok {
		return
	}
	offerID := strings.TrimPrefix(update.CallbackQuery.Data, tg.CallbackOffer)

	offers, err := h.offers.FetchOffers(ctx)
	if err != nil {
		h.fail(ctx, b, chatID, err, "fetch offers")
		return
	}
	offer, ok := findOffer(offers, offerID)
	if !ok {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "That offer is no longer available.",
		})
		return
	}

	var checkout domain.Checkout
	if offer.Kind == domain.CheckoutSubscription {
		checkout, err = s.RequestSubscription(ctx, offer.ID)
	} else {
		checkout, err = s.RequestTimeCredits(ctx, offer.ID)
	}
	if err != nil {
		h.fail(ctx, b, chatID, err, "request checkout")
		return
	}

	slog.Info("checkout requested", "chat_id", chatID, "kind", checkout.Kind, "offer_id", offer.ID)
	h.sendCheckout(ctx, b, chatID, checkout)
}

func (h *Handler) handleUnlock(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	s := middleware.GetSession(ctx)
	if s == nil {
		return
	}
	chatID, ok := callbackChatID(update)
	if !ok {
		return
	}

	messageID, err := parseIDSuffix(update.CallbackQuery.Data, tg.CallbackUnlock)
	if err != nil {
		slog.Warn("bad unlock callback", "chat_id", chatID, "error", err)
		return
	}

	checkout, err := s.RequestUnlock(ctx, messageID)
	switch {
	case errors.Is(err, domain.ErrImageNotLocked), errors.Is(err, domain.ErrMessageNotFound):
		tg.SendLongMessage(ctx, b, chatID, tg.WarningText(err), nil)
		return
	case err != nil:
		h.fail(ctx, b, chatID, err, "request unlock")
		return
	}

	slog.Info("unlock requested", "chat_id", chatID, "message_id", messageID)
	h.sendCheckout(ctx, b, chatID, checkout)
}

func (h *Handler) sendCheckout(ctx context.Context, b *bot.Bot, chatID int64, checkout domain.Checkout) {
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        checkoutText(checkout),
		ReplyMarkup: tg.CheckoutKeyboard(checkout),
	})
}

// callbackChatID reports false when the callback message is no longer accessible.
func callbackChatID(update *models.Update) (int64, bool) {
	if msg := update.CallbackQuery.Message.Message; msg != nil && msg.Chat.ID != 0 {
		return msg.Chat.ID, true
	}
	return 0, false
}

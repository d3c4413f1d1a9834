package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/companion/internal/config"
	"github.com/set-night/companion/internal/middleware"
	tg "github.com/set-night/companion/internal/telegram"
)

func (h *Handler) handleGallery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	s := middleware.GetSession(ctx)
	if s == nil {
		return
	}
	h.sendGalleryPage(ctx, b, update.Message.Chat.ID, s.Gallery(), 0)
}

func (h *Handler) handleGalleryPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	s := middleware.GetSession(ctx)
	if s == nil {
		return
	}
	page, err := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, tg.CallbackGalleryPage+"_"))
	if err != nil {
		return
	}
	chatID, ok := callbackChatID(update)
	if !ok {
		return
	}
	h.sendGalleryPage(ctx, b, chatID, s.Gallery(), page)
}

func (h *Handler) sendGalleryPage(ctx context.Context, b *bot.Bot, chatID int64, refs []string, page int) {
	items, page, total := galleryPage(refs, page, config.GalleryPageSize)
	if total == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🖼 Your gallery is empty. Unlocked photos from our chat show up here.",
		})
		return
	}

	var err error
	if len(items) == 1 {
		_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID: chatID,
			Photo:  &models.InputFileString{Data: items[0]},
		})
	} else {
		media := make([]models.InputMedia, 0, len(items))
		for _, ref := range items {
			media = append(media, &models.InputMediaPhoto{Media: ref})
		}
		_, err = b.SendMediaGroup(ctx, &bot.SendMediaGroupParams{ChatID: chatID, Media: media})
	}
	if err != nil {
		slog.Error("failed to send gallery page", "chat_id", chatID, "page", page, "error", err)
		return
	}

	if total > 1 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        fmt.Sprintf("🖼 %d photos", len(refs)),
			ReplyMarkup: tg.InlineKeyboard(tg.PaginationRow(page, total, tg.CallbackGalleryPage)),
		})
	}
}

package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/companion/internal/config"
	"github.com/set-night/companion/internal/domain"
)

// SendLongMessage sends plain text, splitting it into parts if needed.
// The reply markup is attached to the last part.
func SendLongMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) error {
	parts := SplitMessage(text, config.MaxTelegramMessageLen)

	for i, part := range parts {
		params := &bot.SendMessageParams{
			ChatID: chatID,
			Text:   part,
		}
		if i == len(parts)-1 && markup != nil {
			params.ReplyMarkup = markup
		}

		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}

	return nil
}

// StartTyping sends "typing..." action every 4 seconds until the returned cancel function is called.
func StartTyping(ctx context.Context, b *bot.Bot, chatID int64) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(4 * time.Second)
		defer ticker.Stop()
		b.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: chatID,
			Action: models.ChatActionTyping,
		})
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.SendChatAction(ctx, &bot.SendChatActionParams{
					ChatID: chatID,
					Action: models.ChatActionTyping,
				})
			}
		}
	}()
	return cancel
}

// LockedPhotoText stands in for a photo that has not been unlocked yet.
const LockedPhotoText = "🔒 A photo is waiting for you. Unlock it to see it."

// messageView is what a log entry turns into on Telegram. Photo is empty unless the image
// was unlocked, so a locked image never leaves the server.
type messageView struct {
	Photo   string
	Caption string
	Text    string
	Markup  models.ReplyMarkup
}

func viewOf(msg domain.Message) messageView {
	text := HTMLToText(msg.Body())

	switch {
	case !msg.HasImage():
		return messageView{Text: text}

	case msg.IsLocked():
		v := messageView{Text: LockedPhotoText}
		if text != "" {
			v.Text = text + "\n\n" + LockedPhotoText
		}
		if msg.ServerMessageID != nil {
			v.Markup = UnlockKeyboard(*msg.ServerMessageID)
		}
		return v
	}

	// Long texts go in a separate message so nothing is lost to the caption limit.
	if len([]rune(text)) > MaxCaptionLen {
		return messageView{Photo: msg.ImageRef, Text: text}
	}
	return messageView{Photo: msg.ImageRef, Caption: text}
}

// SendConversationMessage renders one log entry. Locked images are replaced by a
// placeholder with an unlock button once the message has a server id.
func SendConversationMessage(ctx context.Context, b *bot.Bot, chatID int64, msg domain.Message) error {
	v := viewOf(msg)

	if v.Photo != "" {
		if _, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:  chatID,
			Photo:   &models.InputFileString{Data: v.Photo},
			Caption: v.Caption,
		}); err != nil {
			return fmt.Errorf("send photo: %w", err)
		}
	}
	if v.Text == "" {
		return nil
	}
	return SendLongMessage(ctx, b, chatID, v.Text, v.Markup)
}

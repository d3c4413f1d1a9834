package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/companion/internal/config"
	"github.com/set-night/companion/internal/domain"
)

type EventType string

const (
	EventError       EventType = "error"
	EventPayment     EventType = "payment"
	EventSessionExit EventType = "session_exit"
)

// EventLogger posts operational events to topic threads of an admin chat.
type EventLogger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewEventLogger(b *bot.Bot, cfg *config.Config) *EventLogger {
	return &EventLogger{bot: b, cfg: cfg}
}

func (l *EventLogger) Log(event EventType, message string) {
	if l == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.topicID(event)
	if topicID == 0 {
		return
	}

	message = Truncate(message, config.MaxTelegramMessageLen)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       models.ParseModeMarkdownV1,
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram event", "type", event, "error", err)
	}
}

func (l *EventLogger) LogError(err error, where string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		where, inlineCode(err.Error()), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(EventError, msg)
}

// LogPayment records a payment marker applied by a landing.
func (l *EventLogger) LogPayment(chatID int64, marker domain.PaymentMarker) {
	icon := "💰"
	if !marker.IsSuccess() {
		icon = "↩️"
	}
	msg := fmt.Sprintf("%s *Payment result*\n\n*Chat:* `%d`\n*Marker:* `%s`",
		icon, chatID, inlineCode(marker.String()))
	l.Log(EventPayment, msg)
}

func (l *EventLogger) LogSessionExit(chatID, userID int64, balance domain.CreditBalance) {
	msg := fmt.Sprintf("👋 *Signed out*\n\n*Chat:* `%d`\n*User:* `%d`\n*Balance left:* %s",
		chatID, userID, FormatSeconds(balance.ServerSeconds))
	l.Log(EventSessionExit, msg)
}

func (l *EventLogger) topicID(event EventType) int {
	switch event {
	case EventError:
		return l.cfg.LogTopicError
	case EventPayment:
		return l.cfg.LogTopicPayment
	case EventSessionExit:
		return l.cfg.LogTopicSessionExit
	default:
		return 0
	}
}

func inlineCode(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}

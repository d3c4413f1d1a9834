package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/companion/internal/session"
)

type ctxKey string

const (
	SessionKey ctxKey = "session"
	EnterKey   ctxKey = "enter"
)

// SessionOpener returns the live session of a chat, entering it when needed.
type SessionOpener interface {
	Open(ctx context.Context, chatID, userID int64) (*session.Session, session.EnterResult, error)
}

// GetSession extracts the chat session from context.
func GetSession(ctx context.Context) *session.Session {
	s, ok := ctx.Value(SessionKey).(*session.Session)
	if !ok {
		return nil
	}
	return s
}

// GetEnterResult returns the entry performed while loading the session of this update, if any.
func GetEnterResult(ctx context.Context) (session.EnterResult, bool) {
	res, ok := ctx.Value(EnterKey).(session.EnterResult)
	if !ok || !res.Entered {
		return session.EnterResult{}, false
	}
	return res, true
}

// SessionLoader returns middleware that opens the session of private chats and puts it into context.
func SessionLoader(sessions SessionOpener, reporter ErrorReporter) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			o := originOf(update)
			if !o.private || o.chatID == 0 {
				next(ctx, b, update)
				return
			}

			s, res, err := sessions.Open(ctx, o.chatID, o.userID)
			if err != nil {
				slog.Error("failed to open session", "chat_id", o.chatID, "user_id", o.userID, "error", err)
				if reporter != nil {
					reporter.LogError(err, "open session")
				}
				next(ctx, b, update)
				return
			}

			ctx = context.WithValue(ctx, SessionKey, s)
			ctx = context.WithValue(ctx, EnterKey, res)
			next(ctx, b, update)
		}
	}
}

// SessionOpenerFunc adapts a function to SessionOpener.
type SessionOpenerFunc func(ctx context.Context, chatID, userID int64) (*session.Session, session.EnterResult, error)

func (f SessionOpenerFunc) Open(ctx context.Context, chatID, userID int64) (*session.Session, session.EnterResult, error) {
	return f(ctx, chatID, userID)
}

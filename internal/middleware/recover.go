package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ErrorReporter forwards failures to an operator channel.
type ErrorReporter interface {
	LogError(err error, where string)
}

// Recover returns middleware that recovers from panics and reports them.
func Recover(reporter ErrorReporter) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				if r := recover(); r != nil {
					o := originOf(update)
					slog.Error("panic recovered in handler",
						"panic", r,
						"chat_id", o.chatID,
						"stack", string(debug.Stack()),
					)
					if reporter != nil {
						reporter.LogError(fmt.Errorf("panic: %v", r), fmt.Sprintf("%s in chat %d", o.kind, o.chatID))
					}
				}
			}()
			next(ctx, b, update)
		}
	}
}

// ErrorReporterFunc adapts a function to ErrorReporter.
type ErrorReporterFunc func(err error, where string)

func (f ErrorReporterFunc) LogError(err error, where string) {
	f(err, where)
}

package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"
)

// ChatLimiter keeps one token bucket per chat.
type ChatLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[int64]*chatBucket
}

type chatBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewChatLimiter allows perMinute messages per chat, refilled evenly over the minute.
func NewChatLimiter(perMinute int) *ChatLimiter {
	perMinute = max(perMinute, 1)
	return &ChatLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[int64]*chatBucket),
	}
}

func (l *ChatLimiter) Allow(chatID int64) bool {
	return l.AllowAt(chatID, time.Now())
}

func (l *ChatLimiter) AllowAt(chatID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.limiters[chatID]
	if !ok {
		b = &chatBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[chatID] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Prune drops buckets of chats idle for longer than idle and returns how many were dropped.
func (l *ChatLimiter) Prune(now time.Time, idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for id, b := range l.limiters {
		if now.Sub(b.lastSeen) > idle {
			delete(l.limiters, id)
			n++
		}
	}
	return n
}

// RateLimit returns middleware that drops chat messages above the per-chat limit.
func RateLimit(limiter *ChatLimiter) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			// Only rate limit messages (not callbacks or other updates)
			if update.Message == nil {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID
			if !limiter.Allow(chatID) {
				slog.Debug("rate limited", "chat_id", chatID)
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: chatID,
					Text:   "⏳ Too many messages. Give me a moment.",
				})
				return
			}

			next(ctx, b, update)
		}
	}
}

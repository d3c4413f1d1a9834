package handler

import (
	"context"

	"github.com/go-telegram/bot"

	"github.com/set-night/companion/internal/config"
	"github.com/set-night/companion/internal/domain"
	"github.com/set-night/companion/internal/session"
	"github.com/set-night/companion/internal/telegram"
)

// Sessions is the session registry as used by the commands.
type Sessions interface {
	Restart(ctx context.Context, chatID, userID int64) (*session.Session, session.EnterResult, error)
	SignOut(ctx context.Context, chatID int64) error
}

// Offers lists purchasable time-credit packs and plans.
type Offers interface {
	FetchOffers(ctx context.Context) ([]domain.Offer, error)
}

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot         *bot.Bot
	cfg         *config.Config
	sessions    Sessions
	offers      Offers
	events      *telegram.EventLogger
	botUsername string
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot         *bot.Bot
	Cfg         *config.Config
	Sessions    Sessions
	Offers      Offers
	Events      *telegram.EventLogger
	BotUsername string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:         deps.Bot,
		cfg:         deps.Cfg,
		sessions:    deps.Sessions,
		offers:      deps.Offers,
		events:      deps.Events,
		botUsername: deps.BotUsername,
	}
}

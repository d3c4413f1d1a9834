package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/companion/internal/domain"
)

// Backend is the remote companion backend as seen by one user.
type Backend interface {
	FetchBalance(ctx context.Context) (int64, error)
	ReportUsage(ctx context.Context, seconds int64) (int64, error)
	FetchHistory(ctx context.Context) ([]domain.HistoryEntry, error)
	SubmitTurn(ctx context.Context, text string, tail []domain.ContextTurn) (domain.Reply, error)
	ConfirmTurnPersisted(ctx context.Context, localID, userText string, reply domain.Reply) (int64, error)
	RequestImageUnlockCheckout(ctx context.Context, serverMessageID int64, returnURL string) (domain.Checkout, error)
	RequestTimeCreditCheckout(ctx context.Context, packID, returnURL string) (domain.Checkout, error)
	RequestSubscriptionCheckout(ctx context.Context, planID, returnURL string) (domain.Checkout, error)
}

// Snapshots is the persistence port for session state.
type Snapshots interface {
	Save(ctx context.Context, snap domain.Snapshot) error
	Load(ctx context.Context, chatID int64) (domain.Snapshot, error)
	LoadByToken(ctx context.Context, token uuid.UUID) (domain.Snapshot, error)
	Delete(ctx context.Context, chatID int64) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Notifier pushes messages that were appended outside a chat request, e.g. by a payment landing.
type Notifier interface {
	Deliver(ctx context.Context, chatID int64, msgs []domain.Message)
	Warn(ctx context.Context, chatID int64, err error)
}

// BalanceFeed pushes authoritative balances. When absent the session polls.
type BalanceFeed interface {
	Subscribe(ctx context.Context, userID int64, apply func(seconds int64))
}

// Package credit keeps the chat countdown eventually consistent with the server-held time balance
// and decides whether a new turn may be submitted.
package credit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/set-night/companion/internal/config"
	"github.com/set-night/companion/internal/domain"
)

// BalanceSource is the authoritative holder of the time balance.
type BalanceSource interface {
	FetchBalance(ctx context.Context) (int64, error)
	ReportUsage(ctx context.Context, seconds int64) (int64, error)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Controller owns the CreditBalance of one session. Safe for concurrent use.
type Controller struct {
	mu        sync.Mutex
	source    BalanceSource
	clock     Clock
	tolerance int64
	balance   domain.CreditBalance
	wake      chan struct{}
}

type Option func(*Controller)

func WithClock(clock Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

func WithTolerance(d time.Duration) Option {
	return func(c *Controller) {
		c.tolerance = int64(d / time.Second)
	}
}

func NewController(source BalanceSource, opts ...Option) *Controller {
	c := &Controller{
		source:    source,
		clock:     systemClock{},
		tolerance: int64(config.ResyncTolerance / time.Second),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize sets the first authoritative value after hydration.
func (c *Controller) Initialize(serverSeconds int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	serverSeconds = max(serverSeconds, 0)
	c.balance = domain.CreditBalance{
		ServerSeconds:  serverSeconds,
		SyncedAt:       c.clock.Now(),
		DisplaySeconds: serverSeconds,
	}
	c.signalLocked()
}

// Restore puts back a persisted balance, e.g. when the backend is unreachable at session entry.
func (c *Controller) Restore(b domain.CreditBalance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balance = b
	c.signalLocked()
}

// Tick decrements the display by one second, floored at zero.
// It reports whether further ticks are needed.
func (c *Controller) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.balance.DisplaySeconds > 0 {
		c.balance.DisplaySeconds--
	}
	return c.balance.DisplaySeconds > 0
}

// Resync adopts a fresh server value. The display snaps to the projection only when it
// drifted beyond the tolerance; the server value and sync time are always replaced.
func (c *Controller) Resync(serverSeconds int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	serverSeconds = max(serverSeconds, 0)

	if c.balance.SyncedAt.IsZero() {
		c.balance = domain.CreditBalance{ServerSeconds: serverSeconds, SyncedAt: now, DisplaySeconds: serverSeconds}
		c.signalLocked()
		return
	}

	elapsed := int64(now.Sub(c.balance.SyncedAt) / time.Second)
	projected := max(0, serverSeconds-elapsed)

	if abs(c.balance.DisplaySeconds-projected) > c.tolerance {
		c.balance.DisplaySeconds = projected
	}
	c.balance.ServerSeconds = serverSeconds
	c.balance.SyncedAt = now
	c.signalLocked()
}

// Adopt replaces both values unconditionally. Used when the server has just accounted
// for all local usage, so there is nothing left to project.
func (c *Controller) Adopt(serverSeconds int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	serverSeconds = max(serverSeconds, 0)
	c.balance.ServerSeconds = serverSeconds
	c.balance.DisplaySeconds = serverSeconds
	c.balance.SyncedAt = c.clock.Now()
	c.signalLocked()
}

// CanSend gates on the last authoritative value, never on the animated display.
func (c *Controller) CanSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance.CanSend()
}

// Exhausted is level-triggered: it is re-evaluated on every send attempt.
func (c *Controller) Exhausted() bool {
	return !c.CanSend()
}

func (c *Controller) Balance() domain.CreditBalance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

func (c *Controller) DisplaySeconds() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance.DisplaySeconds
}

// Wake fires whenever the balance was re-baselined.
func (c *Controller) Wake() <-chan struct{} {
	return c.wake
}

// Refresh fetches the authoritative balance and resyncs. Failures keep the last known value.
func (c *Controller) Refresh(ctx context.Context) error {
	seconds, err := c.source.FetchBalance(ctx)
	if err != nil {
		slog.Warn("balance resync failed", "error", err)
		return &domain.NetworkError{Op: "fetch balance", Err: err}
	}
	c.Resync(seconds)
	return nil
}

// ForceRefresh fetches the authoritative balance and adopts it unconditionally.
func (c *Controller) ForceRefresh(ctx context.Context) error {
	seconds, err := c.source.FetchBalance(ctx)
	if err != nil {
		slog.Warn("forced balance resync failed", "error", err)
		return &domain.NetworkError{Op: "fetch balance", Err: err}
	}
	c.Adopt(seconds)
	return nil
}

// ReportUsage sends the elapsed seconds of a finished turn. On failure the balance is
// decremented locally and one follow-up fetch is attempted before giving up.
func (c *Controller) ReportUsage(ctx context.Context, seconds int64) error {
	if seconds <= 0 {
		return nil
	}

	remaining, err := c.source.ReportUsage(ctx, seconds)
	if err == nil {
		c.Adopt(remaining)
		return nil
	}

	slog.Warn("usage report failed, applying local decrement", "seconds", seconds, "error", err)
	c.decrement(seconds)

	fresh, fetchErr := c.source.FetchBalance(ctx)
	if fetchErr != nil {
		slog.Warn("follow-up balance fetch failed, keeping local value", "error", fetchErr)
	} else {
		c.Resync(fresh)
	}
	return &domain.NetworkError{Op: "report usage", Err: err}
}

func (c *Controller) decrement(seconds int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.balance.ServerSeconds = max(0, c.balance.ServerSeconds-seconds)
	c.balance.DisplaySeconds = min(c.balance.DisplaySeconds, c.balance.ServerSeconds)
}

func (c *Controller) signalLocked() {
	if c.balance.DisplaySeconds <= 0 {
		return
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

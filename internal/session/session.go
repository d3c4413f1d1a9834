// Package session binds the credit controller, the conversation store and the payment resumption
// handler of one chat, and keeps a registry of live sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/companion/internal/config"
	"github.com/set-night/companion/internal/conversation"
	"github.com/set-night/companion/internal/credit"
	"github.com/set-night/companion/internal/domain"
	"github.com/set-night/companion/internal/resume"
)

// Deps contains everything a Session needs.
type Deps struct {
	Backend   Backend
	Snapshots Snapshots
	Notifier  Notifier
	Validator conversation.TextValidator
	Feed      BalanceFeed
	Clock     credit.Clock
	Greeting  []string
	ReturnURL func(token string) string

	TickInterval   time.Duration
	ResyncInterval time.Duration
}

type EnterResult struct {
	// Entered is false when the session was already live and nothing was reloaded.
	Entered bool
	// Greeting holds the seeded greeting lines the first time they are shown.
	Greeting []domain.Message
	Balance  domain.CreditBalance
	Warnings []error
}

type SendResult struct {
	User      domain.Message
	Assistant domain.Message
	Exhausted bool
	Warnings  []error
}

type Session struct {
	chatID int64
	userID int64
	deps   Deps

	credits *credit.Controller
	store   *conversation.Store

	inFlight atomic.Bool
	enterMu  sync.Mutex

	mu            sync.Mutex
	token         uuid.UUID
	state         domain.SessionState
	greeting      domain.GreetingState
	lastActivity  time.Time
	lastAccounted time.Time
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

func New(chatID, userID int64, deps Deps) *Session {
	if deps.Clock == nil {
		deps.Clock = wallClock{}
	}
	if deps.TickInterval == 0 {
		deps.TickInterval = config.TickInterval
	}
	if deps.ResyncInterval == 0 {
		deps.ResyncInterval = config.ResyncInterval
	}

	now := deps.Clock.Now()
	return &Session{
		chatID:       chatID,
		userID:       userID,
		deps:         deps,
		credits:      credit.NewController(deps.Backend, credit.WithClock(deps.Clock)),
		store:        conversation.NewStore(deps.Validator),
		token:        uuid.New(),
		state:        domain.SessionEntering,
		greeting:     domain.GreetingPending,
		lastActivity: now,
	}
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Enter restores the persisted snapshot, hydrates from the backend and starts the timers.
// Calling it on an active session reloads it.
func (s *Session) Enter(ctx context.Context) (EnterResult, error) {
	s.enterMu.Lock()
	defer s.enterMu.Unlock()
	return s.enterLocked(ctx)
}

// ensureEntered enters the session unless it is already active.
func (s *Session) ensureEntered(ctx context.Context) (EnterResult, error) {
	s.enterMu.Lock()
	defer s.enterMu.Unlock()

	if s.State() == domain.SessionActive {
		return EnterResult{}, nil
	}
	return s.enterLocked(ctx)
}

func (s *Session) enterLocked(ctx context.Context) (EnterResult, error) {
	if s.State() == domain.SessionSignedOut {
		return EnterResult{}, domain.ErrSignedOut
	}

	s.stopTimers()
	s.setState(domain.SessionEntering)

	res := EnterResult{Entered: true}

	restored := false
	snap, err := s.deps.Snapshots.Load(ctx, s.chatID)
	switch {
	case err == nil:
		s.mu.Lock()
		s.token = snap.Token
		s.greeting = snap.Greeting
		s.mu.Unlock()
		s.store.Restore(snap.Messages)
		s.credits.Restore(snap.Balance)
		restored = true
	case !errors.Is(err, domain.ErrSnapshotNotFound):
		slog.Error("failed to load snapshot", "chat_id", s.chatID, "error", err)
	}

	seeded := false
	history, err := s.deps.Backend.FetchHistory(ctx)
	switch {
	case err == nil:
		s.store.Hydrate(history, s.deps.Greeting)
		seeded = len(history) == 0
	case s.store.Len() == 0:
		res.Warnings = append(res.Warnings, err)
		s.store.Hydrate(nil, s.deps.Greeting)
		seeded = true
	default:
		res.Warnings = append(res.Warnings, err)
	}

	s.mu.Lock()
	if s.greeting == domain.GreetingPending && (seeded || len(history) > 0) {
		if seeded {
			res.Greeting = s.store.Messages()
		}
		s.greeting = domain.GreetingShown
	}
	s.mu.Unlock()

	if seconds, err := s.deps.Backend.FetchBalance(ctx); err != nil {
		res.Warnings = append(res.Warnings, err)
	} else {
		s.credits.Initialize(seconds)
	}
	res.Balance = s.credits.Balance()

	now := s.deps.Clock.Now()
	s.mu.Lock()
	s.state = domain.SessionActive
	s.lastActivity = now
	s.lastAccounted = now
	s.mu.Unlock()

	s.save(ctx)
	s.startTimers()

	slog.Info("session entered", "chat_id", s.chatID, "user_id", s.userID,
		"messages", s.store.Len(), "balance", res.Balance.ServerSeconds, "restored", restored)
	return res, nil
}

// Send runs one turn: append the user text, fetch the reply, append it, persist it and bill
// the elapsed chat time. Only one send may be outstanding.
func (s *Session) Send(ctx context.Context, text string) (SendResult, error) {
	if s.State() == domain.SessionSignedOut {
		return SendResult{}, domain.ErrSignedOut
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return SendResult{}, domain.ErrSendInFlight
	}
	defer s.inFlight.Store(false)

	s.touch()

	if !s.credits.CanSend() {
		return SendResult{Exhausted: true}, domain.ErrCreditsExhausted
	}

	tail := s.store.Tail(config.ContextTailSize)
	userID, err := s.store.AppendUserTurn(text)
	if err != nil {
		return SendResult{}, err
	}
	userMsg, _ := s.store.Get(userID)
	res := SendResult{User: userMsg}

	reply, err := s.deps.Backend.SubmitTurn(ctx, userMsg.Body(), tail)
	if err != nil {
		s.save(ctx)
		return res, fmt.Errorf("submit turn: %w", err)
	}

	assistantID := s.store.AppendAssistantTurn(reply)

	serverID, err := s.deps.Backend.ConfirmTurnPersisted(ctx, assistantID, userMsg.Body(), reply)
	if err != nil {
		slog.Warn("turn not persisted, image stays unlockable only after reload",
			"chat_id", s.chatID, "local_id", assistantID, "error", err)
		res.Warnings = append(res.Warnings, err)
	} else if !s.store.AttachServerID(assistantID, serverID) {
		slog.Warn("server id not attached", "chat_id", s.chatID, "local_id", assistantID, "message_id", serverID)
	}
	res.Assistant, _ = s.store.Get(assistantID)

	if err := s.credits.ReportUsage(ctx, s.takeUsage()); err != nil {
		res.Warnings = append(res.Warnings, err)
	}
	res.Exhausted = s.credits.Exhausted()

	s.save(ctx)
	return res, nil
}

// RequestUnlock returns the hosted checkout for a locked image.
func (s *Session) RequestUnlock(ctx context.Context, serverMessageID int64) (domain.Checkout, error) {
	s.touch()

	msg, ok := s.store.Find(serverMessageID)
	if !ok {
		return domain.Checkout{}, domain.ErrMessageNotFound
	}
	if !msg.IsLocked() {
		return domain.Checkout{}, domain.ErrImageNotLocked
	}

	checkout, err := s.deps.Backend.RequestImageUnlockCheckout(ctx, serverMessageID, s.returnURL())
	if err != nil {
		return domain.Checkout{}, fmt.Errorf("request unlock checkout: %w", err)
	}
	return checkout, nil
}

func (s *Session) RequestTimeCredits(ctx context.Context, packID string) (domain.Checkout, error) {
	s.touch()

	checkout, err := s.deps.Backend.RequestTimeCreditCheckout(ctx, packID, s.returnURL())
	if err != nil {
		return domain.Checkout{}, fmt.Errorf("request time credit checkout: %w", err)
	}
	return checkout, nil
}

func (s *Session) RequestSubscription(ctx context.Context, planID string) (domain.Checkout, error) {
	s.touch()

	checkout, err := s.deps.Backend.RequestSubscriptionCheckout(ctx, planID, s.returnURL())
	if err != nil {
		return domain.Checkout{}, fmt.Errorf("request subscription checkout: %w", err)
	}
	return checkout, nil
}

// Resume replays a payment landing into the session, pushes the resulting messages to the
// chat and persists the new state.
func (s *Session) Resume(ctx context.Context, loc resume.Location) (resume.Outcome, error) {
	s.touch()

	out, err := resume.NewHandler(s.store, s.credits).Process(ctx, loc)

	var msgs []domain.Message
	if out.Marker.Kind == domain.MarkerImageUnlockSuccess && len(out.InfoIDs) > 0 {
		if m, ok := s.store.Find(out.Marker.MessageID); ok {
			msgs = append(msgs, m)
		}
	}
	for _, id := range out.InfoIDs {
		if m, ok := s.store.Get(id); ok {
			msgs = append(msgs, m)
		}
	}

	if s.deps.Notifier != nil {
		if len(msgs) > 0 {
			s.deps.Notifier.Deliver(ctx, s.chatID, msgs)
		}
		for _, w := range out.Warnings {
			s.deps.Notifier.Warn(ctx, s.chatID, w)
		}
	}

	if len(msgs) > 0 {
		s.save(ctx)
	}
	return out, err
}

// SignOut stops the timers, discards the persisted snapshot and the in-memory state.
func (s *Session) SignOut(ctx context.Context) error {
	s.enterMu.Lock()
	defer s.enterMu.Unlock()

	s.stopTimers()
	s.setState(domain.SessionSignedOut)
	s.store.Restore(nil)
	s.credits.Restore(domain.CreditBalance{})

	if err := s.deps.Snapshots.Delete(ctx, s.chatID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	slog.Info("session signed out", "chat_id", s.chatID, "user_id", s.userID)
	return nil
}

// Suspend stops the timers and persists the state. The session can be entered again later.
func (s *Session) Suspend(ctx context.Context) {
	s.enterMu.Lock()
	defer s.enterMu.Unlock()

	s.stopTimers()
	if s.State() == domain.SessionActive {
		s.save(ctx)
		s.setState(domain.SessionEntering)
	}
}

func (s *Session) ChatID() int64 { return s.chatID }
func (s *Session) UserID() int64 { return s.userID }

func (s *Session) Token() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Greeting() domain.GreetingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.greeting
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) Balance() domain.CreditBalance { return s.credits.Balance() }

func (s *Session) CanSend() bool { return s.credits.CanSend() }

func (s *Session) Messages() []domain.Message { return s.store.Messages() }

// Gallery returns the unlocked image refs in unlock order.
func (s *Session) Gallery() []string { return s.store.Gallery() }

// Sending reports whether a turn is outstanding.
func (s *Session) Sending() bool { return s.inFlight.Load() }

func (s *Session) Find(serverMessageID int64) (domain.Message, bool) {
	return s.store.Find(serverMessageID)
}

// RefreshBalance forces an authoritative resync.
func (s *Session) RefreshBalance(ctx context.Context) error {
	return s.credits.Refresh(ctx)
}

func (s *Session) returnURL() string {
	return s.deps.ReturnURL(s.Token().String())
}

func (s *Session) setState(state domain.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) touch() {
	now := s.deps.Clock.Now()
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}

// takeUsage returns the chat seconds since the last billed turn, capped per turn, and
// moves the accounting point to now.
func (s *Session) takeUsage() int64 {
	now := s.deps.Clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := min(now.Sub(s.lastAccounted), config.MaxTurnUsage)
	s.lastAccounted = now

	seconds := int64((elapsed + time.Second - 1) / time.Second)
	return max(seconds, 1)
}

func (s *Session) snapshot() domain.Snapshot {
	s.mu.Lock()
	token, greeting := s.token, s.greeting
	s.mu.Unlock()

	return domain.Snapshot{
		Token:     token,
		ChatID:    s.chatID,
		UserID:    s.userID,
		Greeting:  greeting,
		Balance:   s.credits.Balance(),
		Messages:  s.store.Messages(),
		UpdatedAt: s.deps.Clock.Now(),
	}
}

func (s *Session) save(ctx context.Context) {
	if err := s.deps.Snapshots.Save(ctx, s.snapshot()); err != nil {
		slog.Error("failed to save snapshot", "chat_id", s.chatID, "error", err)
	}
}

func (s *Session) startTimers() {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		credit.RunCountdown(ctx, s.credits, s.deps.TickInterval)
	}()
	go func() {
		defer s.wg.Done()
		if s.deps.Feed != nil {
			s.deps.Feed.Subscribe(ctx, s.userID, s.credits.Resync)
			return
		}
		credit.RunPoller(ctx, s.credits, s.deps.ResyncInterval, func(err error) {
			slog.Warn("periodic balance resync failed", "chat_id", s.chatID, "error", err)
		})
	}()
}

func (s *Session) stopTimers() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.wg.Wait()
	}
}

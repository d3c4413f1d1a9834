package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/companion/internal/config"
	"github.com/set-night/companion/internal/conversation"
	"github.com/set-night/companion/internal/credit"
	"github.com/set-night/companion/internal/domain"
)

// ManagerDeps are shared by every session of the registry.
type ManagerDeps struct {
	Backend   func(userID int64) Backend
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

// Manager keeps one live session per chat.
type Manager struct {
	deps ManagerDeps

	mu       sync.Mutex
	sessions map[int64]*Session
	byToken  map[uuid.UUID]*Session
}

func NewManager(deps ManagerDeps) *Manager {
	return &Manager{
		deps:     deps,
		sessions: make(map[int64]*Session),
		byToken:  make(map[uuid.UUID]*Session),
	}
}

// Open returns the live session of a chat, entering a new one when there is none.
// The EnterResult is empty when the session was already live.
func (m *Manager) Open(ctx context.Context, chatID, userID int64) (*Session, EnterResult, error) {
	m.mu.Lock()
	s, ok := m.sessions[chatID]
	if !ok || s.State() == domain.SessionSignedOut {
		s = New(chatID, userID, m.sessionDeps(userID))
		m.sessions[chatID] = s
	}
	m.mu.Unlock()

	res, err := s.ensureEntered(ctx)
	if err != nil {
		return nil, EnterResult{}, fmt.Errorf("enter session: %w", err)
	}
	m.index(s)
	return s, res, nil
}

// Restart reloads the session of a chat from the backend, as a fresh entry would.
func (m *Manager) Restart(ctx context.Context, chatID, userID int64) (*Session, EnterResult, error) {
	s, ok := m.Get(chatID)
	if !ok || s.State() != domain.SessionActive {
		return m.Open(ctx, chatID, userID)
	}

	res, err := s.Enter(ctx)
	if err != nil {
		return nil, EnterResult{}, fmt.Errorf("enter session: %w", err)
	}
	m.index(s)
	return s, res, nil
}

func (m *Manager) Get(chatID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	return s, ok
}

// ByToken finds the session a payment landing belongs to. Suspended sessions are
// re-entered from their snapshot.
func (m *Manager) ByToken(ctx context.Context, token uuid.UUID) (*Session, error) {
	m.mu.Lock()
	s, ok := m.byToken[token]
	m.mu.Unlock()
	if ok {
		if _, err := s.ensureEntered(ctx); err != nil {
			return nil, fmt.Errorf("enter session: %w", err)
		}
		return s, nil
	}

	snap, err := m.deps.Snapshots.LoadByToken(ctx, token)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	s, _, err = m.Open(ctx, snap.ChatID, snap.UserID)
	if err != nil {
		return nil, err
	}
	if s.Token() != token {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// SignOut discards the session of a chat and its snapshot.
func (m *Manager) SignOut(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	s, ok := m.sessions[chatID]
	if ok {
		delete(m.sessions, chatID)
		delete(m.byToken, s.Token())
	}
	m.mu.Unlock()

	if !ok {
		if err := m.deps.Snapshots.Delete(ctx, chatID); err != nil {
			return fmt.Errorf("delete snapshot: %w", err)
		}
		return nil
	}
	return s.SignOut(ctx)
}

// SuspendIdle suspends sessions without activity for longer than idle and drops them from
// the registry. Returns the number of suspended sessions.
func (m *Manager) SuspendIdle(ctx context.Context, idle time.Duration) int {
	now := m.now()

	m.mu.Lock()
	var stale []*Session
	for chatID, s := range m.sessions {
		if s.Sending() || now.Sub(s.LastActivity()) < idle {
			continue
		}
		stale = append(stale, s)
		delete(m.sessions, chatID)
		delete(m.byToken, s.Token())
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Suspend(ctx)
	}
	return len(stale)
}

// RunJanitor periodically suspends idle sessions and deletes abandoned snapshots.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.SuspendIdle(ctx, config.SessionIdleTimeout); n > 0 {
				slog.Info("suspended idle sessions", "count", n)
			}
			deleted, err := m.deps.Snapshots.DeleteOlderThan(ctx, m.now().Add(-config.SnapshotMaxAge))
			if err != nil {
				slog.Error("snapshot cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				slog.Info("deleted abandoned snapshots", "count", deleted)
			}
		}
	}
}

// Shutdown suspends every live session.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[int64]*Session)
	m.byToken = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Suspend(ctx)
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) index(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, indexed := range m.byToken {
		if indexed == s && token != s.Token() {
			delete(m.byToken, token)
		}
	}
	m.byToken[s.Token()] = s
}

func (m *Manager) now() time.Time {
	if m.deps.Clock != nil {
		return m.deps.Clock.Now()
	}
	return time.Now()
}

func (m *Manager) sessionDeps(userID int64) Deps {
	return Deps{
		Backend:        m.deps.Backend(userID),
		Snapshots:      m.deps.Snapshots,
		Notifier:       m.deps.Notifier,
		Validator:      m.deps.Validator,
		Feed:           m.deps.Feed,
		Clock:          m.deps.Clock,
		Greeting:       m.deps.Greeting,
		ReturnURL:      m.deps.ReturnURL,
		TickInterval:   m.deps.TickInterval,
		ResyncInterval: m.deps.ResyncInterval,
	}
}

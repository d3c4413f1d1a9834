package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/set-night/companion/internal/domain"
)

// SQLiteStore keeps snapshots in a single-file database. Access is serialized over one connection.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap domain.Snapshot) error {
	messages, err := encodeMessages(snap.Messages)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			greeting = excluded.greeting,
			server_seconds = excluded.server_seconds,
			display_seconds = excluded.display_seconds,
			synced_at = excluded.synced_at,
			messages = excluded.messages,
			updated_at = excluded.updated_at`,
		snap.ChatID, snap.Token.String(), snap.UserID, string(snap.Greeting),
		snap.Balance.ServerSeconds, snap.Balance.DisplaySeconds, nullTime(snap.Balance.SyncedAt),
		string(messages), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, chatID int64) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM session_snapshots WHERE chat_id = ?`, chatID)
	return scanSQLiteSnapshot(row)
}

func (s *SQLiteStore) LoadByToken(ctx context.Context, token uuid.UUID) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM session_snapshots WHERE token = ?`, token.String())
	return scanSQLiteSnapshot(row)
}

func (s *SQLiteStore) Delete(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_snapshots WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM session_snapshots WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete stale snapshots: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSQLiteSnapshot(row *sql.Row) (domain.Snapshot, error) {
	var (
		snap     domain.Snapshot
		token    string
		greeting string
		syncedAt sql.NullTime
		messages string
	)
	err := row.Scan(&snap.ChatID, &token, &snap.UserID, &greeting,
		&snap.Balance.ServerSeconds, &snap.Balance.DisplaySeconds, &syncedAt, &messages, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	if snap.Token, err = uuid.Parse(token); err != nil {
		return domain.Snapshot{}, fmt.Errorf("parse snapshot token: %w", err)
	}
	snap.Greeting = domain.GreetingState(greeting)
	if syncedAt.Valid {
		snap.Balance.SyncedAt = syncedAt.Time
	}
	if snap.Messages, err = decodeMessages([]byte(messages)); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

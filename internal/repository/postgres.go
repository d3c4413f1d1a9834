package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/set-night/companion/internal/domain"
)

const snapshotColumns = `chat_id, token, user_id, greeting, server_seconds, display_seconds, synced_at, messages, updated_at`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, snap domain.Snapshot) error {
	messages, err := encodeMessages(snap.Messages)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO session_snapshots (`+snapshotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (chat_id) DO UPDATE SET
			token = EXCLUDED.token,
			user_id = EXCLUDED.user_id,
			greeting = EXCLUDED.greeting,
			server_seconds = EXCLUDED.server_seconds,
			display_seconds = EXCLUDED.display_seconds,
			synced_at = EXCLUDED.synced_at,
			messages = EXCLUDED.messages,
			updated_at = NOW()`,
		snap.ChatID, snap.Token, snap.UserID, string(snap.Greeting),
		snap.Balance.ServerSeconds, snap.Balance.DisplaySeconds, nullTime(snap.Balance.SyncedAt), messages,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, chatID int64) (domain.Snapshot, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+snapshotColumns+` FROM session_snapshots WHERE chat_id = $1`, chatID)
	return scanPostgresSnapshot(row)
}

func (s *PostgresStore) LoadByToken(ctx context.Context, token uuid.UUID) (domain.Snapshot, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+snapshotColumns+` FROM session_snapshots WHERE token = $1`, token)
	return scanPostgresSnapshot(row)
}

func (s *PostgresStore) Delete(ctx context.Context, chatID int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM session_snapshots WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM session_snapshots WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgresSnapshot(row pgx.Row) (domain.Snapshot, error) {
	var (
		snap     domain.Snapshot
		greeting string
		syncedAt *time.Time
		messages []byte
	)
	err := row.Scan(&snap.ChatID, &snap.Token, &snap.UserID, &greeting,
		&snap.Balance.ServerSeconds, &snap.Balance.DisplaySeconds, &syncedAt, &messages, &snap.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	snap.Greeting = domain.GreetingState(greeting)
	if syncedAt != nil {
		snap.Balance.SyncedAt = *syncedAt
	}
	if snap.Messages, err = decodeMessages(messages); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/companion/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "companion.db")

	migrations, err := Migrations(DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, RunMigrations("sqlite3://"+path, migrations))

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testSnapshot(chatID int64) domain.Snapshot {
	synced := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.Snapshot{
		Token:    uuid.New(),
		ChatID:   chatID,
		UserID:   chatID * 10,
		Greeting: domain.GreetingShown,
		Balance:  domain.CreditBalance{ServerSeconds: 300, DisplaySeconds: 280, SyncedAt: synced},
		Messages: []domain.Message{
			{ID: "m1", Text: domain.StringPtr("hello"), Sender: domain.SenderUser, ImageState: domain.ImageNone, CreatedAt: synced},
			{ID: "m2", Sender: domain.SenderAssistant, ServerMessageID: domain.Int64Ptr(9), ImageRef: "img/1.jpg", ImageState: domain.ImagePendingUnlock, CreatedAt: synced},
		},
	}
}

func TestSQLiteStore_SaveLoad(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	snap := testSnapshot(1)

	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, snap.Token, got.Token)
	assert.Equal(t, snap.UserID, got.UserID)
	assert.Equal(t, domain.GreetingShown, got.Greeting)
	assert.Equal(t, snap.Balance.ServerSeconds, got.Balance.ServerSeconds)
	assert.Equal(t, snap.Balance.DisplaySeconds, got.Balance.DisplaySeconds)
	assert.True(t, snap.Balance.SyncedAt.Equal(got.Balance.SyncedAt))
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "hello", got.Messages[0].Body())
	assert.Nil(t, got.Messages[1].Text)
	assert.Equal(t, int64(9), *got.Messages[1].ServerMessageID)
	assert.Equal(t, domain.ImagePendingUnlock, got.Messages[1].ImageState)

	byToken, err := store.LoadByToken(ctx, snap.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), byToken.ChatID)
}

func TestSQLiteStore_SaveOverwrites(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	snap := testSnapshot(2)
	require.NoError(t, store.Save(ctx, snap))

	snap.Messages[1].ImageState = domain.ImageUnlocked
	snap.Balance.ServerSeconds = 0
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageUnlocked, got.Messages[1].ImageState)
	assert.Equal(t, int64(0), got.Balance.ServerSeconds)
}

func TestSQLiteStore_NotFound(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, err := store.Load(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	_, err = store.LoadByToken(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testSnapshot(3)))

	require.NoError(t, store.Delete(ctx, 3))
	_, err := store.Load(ctx, 3)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	assert.NoError(t, store.Delete(ctx, 3), "deleting twice is fine")
}

func TestSQLiteStore_DeleteOlderThan(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testSnapshot(4)))
	require.NoError(t, store.Save(ctx, testSnapshot(5)))

	n, err := store.DeleteOlderThan(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSQLiteStore_ZeroSyncedAt(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	snap := testSnapshot(6)
	snap.Balance.SyncedAt = time.Time{}
	snap.Messages = nil
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx, 6)
	require.NoError(t, err)
	assert.True(t, got.Balance.SyncedAt.IsZero())
	assert.Empty(t, got.Messages)
}

func TestMigrations_UnknownDriver(t *testing.T) {
	_, err := Migrations("mysql")
	assert.Error(t, err)
}

package resume

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/companion/internal/conversation"
	"github.com/set-night/companion/internal/domain"
	"github.com/set-night/companion/internal/validate"
)

type fakeLocation struct {
	query   url.Values
	cleared [][]string
	err     error
}

func newLocation(raw string) *fakeLocation {
	q, _ := url.ParseQuery(raw)
	return &fakeLocation{query: q}
}

func (l *fakeLocation) Query() url.Values {
	out := url.Values{}
	for k, v := range l.query {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (l *fakeLocation) Clear(keys ...string) error {
	if l.err != nil {
		return l.err
	}
	l.cleared = append(l.cleared, keys)
	for _, k := range keys {
		l.query.Del(k)
	}
	return nil
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) ForceRefresh(ctx context.Context) error {
	f.calls++
	return f.err
}

func storeWithLockedImage(t *testing.T, serverID int64) *conversation.Store {
	t.Helper()
	s := conversation.NewStore(validate.NewTextPolicy())
	id := s.AppendAssistantTurn(domain.Reply{Text: "for you", ImageRef: "img/locked.jpg"})
	require.True(t, s.AttachServerID(id, serverID))
	return s
}

func TestProcess_UnlockSuccess(t *testing.T) {
	store := storeWithLockedImage(t, 42)
	refresher := &fakeRefresher{}
	loc := newLocation("unlock=success&message_id=42&ref=mail")

	out, err := NewHandler(store, refresher).Process(context.Background(), loc)
	require.NoError(t, err)

	assert.Equal(t, StateCleared, out.State)
	assert.Len(t, out.InfoIDs, 1)
	assert.Empty(t, out.Warnings)

	msg, ok := store.Find(42)
	require.True(t, ok)
	assert.Equal(t, domain.ImageUnlocked, msg.ImageState)
	assert.Equal(t, []string{"img/locked.jpg"}, store.Gallery())

	assert.Len(t, loc.cleared, 1)
	assert.Equal(t, url.Values{"ref": {"mail"}}, loc.query, "unrelated params survive clearing")
	assert.Zero(t, refresher.calls)
}

func TestProcess_UnlockReloadBeforeClearIsNoop(t *testing.T) {
	store := storeWithLockedImage(t, 42)
	refresher := &fakeRefresher{}

	_, err := NewHandler(store, refresher).Process(context.Background(), newLocation("unlock=success&message_id=42"))
	require.NoError(t, err)
	messages := store.Messages()
	gallery := store.Gallery()
	require.Len(t, messages, 2)

	// Same marker on a fresh page load, as if clearing never happened.
	loc := newLocation("unlock=success&message_id=42")
	out, err := NewHandler(store, refresher).Process(context.Background(), loc)
	require.NoError(t, err)

	assert.Equal(t, StateCleared, out.State)
	assert.Empty(t, out.InfoIDs)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, messages, store.Messages())
	assert.Equal(t, gallery, store.Gallery())
	assert.Len(t, loc.cleared, 1, "the replayed marker is still cleared")
}

func TestProcess_UnlockMismatchWarnsAndClears(t *testing.T) {
	store := storeWithLockedImage(t, 42)
	loc := newLocation("unlock=success&message_id=77")
	before := store.Messages()

	out, err := NewHandler(store, &fakeRefresher{}).Process(context.Background(), loc)
	require.NoError(t, err)

	require.Len(t, out.Warnings, 1)
	var mismatch *domain.ReconciliationMismatch
	require.ErrorAs(t, out.Warnings[0], &mismatch)
	assert.Equal(t, int64(77), mismatch.ServerMessageID)
	assert.Equal(t, before, store.Messages(), "no other state changes")
	assert.Equal(t, StateCleared, out.State)
	assert.Empty(t, loc.query)
}

func TestProcess_CheckoutSuccessForcesResync(t *testing.T) {
	store := conversation.NewStore(validate.NewTextPolicy())
	refresher := &fakeRefresher{}

	out, err := NewHandler(store, refresher).Process(context.Background(), newLocation("checkout=success"))
	require.NoError(t, err)

	assert.Equal(t, 1, refresher.calls)
	require.Len(t, out.InfoIDs, 1)
	msg, ok := store.Get(out.InfoIDs[0])
	require.True(t, ok)
	assert.Equal(t, infoCheckoutSuccess, msg.Body())
}

func TestProcess_TimeCreditResyncFailureIsWarning(t *testing.T) {
	store := conversation.NewStore(validate.NewTextPolicy())
	refresher := &fakeRefresher{err: &domain.NetworkError{Op: "fetch balance", Err: errors.New("offline")}}
	loc := newLocation("credits=success")

	out, err := NewHandler(store, refresher).Process(context.Background(), loc)
	require.NoError(t, err)

	require.Len(t, out.Warnings, 1)
	assert.True(t, domain.IsTransient(out.Warnings[0]))
	assert.Equal(t, 1, store.Len(), "info message is still shown")
	assert.Empty(t, loc.query)
}

func TestProcess_CancelAppendsNotice(t *testing.T) {
	for _, raw := range []string{"checkout=cancel", "credits=cancel", "unlock=cancel&message_id=42"} {
		t.Run(raw, func(t *testing.T) {
			store := storeWithLockedImage(t, 42)
			refresher := &fakeRefresher{}

			out, err := NewHandler(store, refresher).Process(context.Background(), newLocation(raw))
			require.NoError(t, err)

			require.Len(t, out.InfoIDs, 1)
			msg, _ := store.Get(out.InfoIDs[0])
			assert.Equal(t, infoCancelled, msg.Body())
			assert.Zero(t, refresher.calls)

			img, _ := store.Find(42)
			assert.Equal(t, domain.ImagePendingUnlock, img.ImageState)
		})
	}
}

func TestProcess_NoMarkerLeavesLocationAlone(t *testing.T) {
	store := conversation.NewStore(validate.NewTextPolicy())
	loc := newLocation("ref=mail")

	out, err := NewHandler(store, &fakeRefresher{}).Process(context.Background(), loc)
	require.NoError(t, err)

	assert.Equal(t, StateIgnored, out.State)
	assert.Empty(t, loc.cleared)
	assert.Zero(t, store.Len())
}

func TestProcess_GarbageMarkerIsClearedWithoutEffect(t *testing.T) {
	store := conversation.NewStore(validate.NewTextPolicy())
	loc := newLocation("unlock=success")

	out, err := NewHandler(store, &fakeRefresher{}).Process(context.Background(), loc)
	require.NoError(t, err)

	assert.Equal(t, StateCleared, out.State)
	assert.Zero(t, store.Len())
	assert.Empty(t, loc.query)
}

func TestProcess_RunsOncePerHandler(t *testing.T) {
	store := conversation.NewStore(validate.NewTextPolicy())
	h := NewHandler(store, &fakeRefresher{})

	_, err := h.Process(context.Background(), newLocation("checkout=cancel"))
	require.NoError(t, err)
	out, err := h.Process(context.Background(), newLocation("checkout=cancel"))
	require.NoError(t, err)

	assert.Empty(t, out.InfoIDs)
	assert.Equal(t, 1, store.Len())
}

func TestProcess_ClearFailureIsReturned(t *testing.T) {
	store := conversation.NewStore(validate.NewTextPolicy())
	loc := newLocation("checkout=cancel")
	loc.err = errors.New("read-only")

	out, err := NewHandler(store, &fakeRefresher{}).Process(context.Background(), loc)
	assert.Error(t, err)
	assert.Equal(t, StateApplied, out.State)
	assert.Equal(t, 1, store.Len(), "mutation happens before clearing")
}

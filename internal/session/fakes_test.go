package session

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/companion/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type fakeBackend struct {
	mu         sync.Mutex
	balance    int64
	history    []domain.HistoryEntry
	historyErr error
	fetchErrs  []error
	reportErrs []error
	replies    []domain.Reply
	submitErr  error
	confirmErr error
	nextID     int64

	reported   []int64
	submitted  []string
	tails      [][]domain.ContextTurn
	returnURLs []string

	// entered and block pause SubmitTurn when set.
	entered chan struct{}
	block   chan struct{}
}

func (f *fakeBackend) FetchBalance(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		if err != nil {
			return 0, &domain.NetworkError{Op: "fetch balance", Err: err}
		}
	}
	return f.balance, nil
}

func (f *fakeBackend) ReportUsage(ctx context.Context, seconds int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reported = append(f.reported, seconds)
	if len(f.reportErrs) > 0 {
		err := f.reportErrs[0]
		f.reportErrs = f.reportErrs[1:]
		if err != nil {
			return 0, &domain.NetworkError{Op: "report usage", Err: err}
		}
	}
	f.balance = max(0, f.balance-seconds)
	return f.balance, nil
}

func (f *fakeBackend) FetchHistory(ctx context.Context) ([]domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, &domain.NetworkError{Op: "fetch history", Err: f.historyErr}
	}
	return f.history, nil
}

func (f *fakeBackend) SubmitTurn(ctx context.Context, text string, tail []domain.ContextTurn) (domain.Reply, error) {
	f.mu.Lock()
	entered, block := f.entered, f.block
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, text)
	f.tails = append(f.tails, tail)
	if f.submitErr != nil {
		return domain.Reply{}, &domain.NetworkError{Op: "submit turn", Err: f.submitErr}
	}
	if len(f.replies) > 0 {
		r := f.replies[0]
		f.replies = f.replies[1:]
		return r, nil
	}
	return domain.Reply{Text: "reply to " + text}, nil
}

func (f *fakeBackend) ConfirmTurnPersisted(ctx context.Context, localID, userText string, reply domain.Reply) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmErr != nil {
		return 0, &domain.NetworkError{Op: "confirm turn", Err: f.confirmErr}
	}
	f.nextID++
	return 100 + f.nextID, nil
}

func (f *fakeBackend) RequestImageUnlockCheckout(ctx context.Context, serverMessageID int64, returnURL string) (domain.Checkout, error) {
	return f.checkout(domain.CheckoutImageUnlock, returnURL), nil
}

func (f *fakeBackend) RequestTimeCreditCheckout(ctx context.Context, packID, returnURL string) (domain.Checkout, error) {
	return f.checkout(domain.CheckoutTimeCredits, returnURL), nil
}

func (f *fakeBackend) RequestSubscriptionCheckout(ctx context.Context, planID, returnURL string) (domain.Checkout, error) {
	return f.checkout(domain.CheckoutSubscription, returnURL), nil
}

func (f *fakeBackend) checkout(kind domain.CheckoutKind, returnURL string) domain.Checkout {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.returnURLs = append(f.returnURLs, returnURL)
	return domain.Checkout{Kind: kind, RedirectURL: "https://pay.example/" + string(kind)}
}

func (f *fakeBackend) setBalance(seconds int64) {
	f.mu.Lock()
	f.balance = seconds
	f.mu.Unlock()
}

type memSnapshots struct {
	mu    sync.Mutex
	snaps map[int64]domain.Snapshot
	saves int
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{snaps: make(map[int64]domain.Snapshot)}
}

func (m *memSnapshots) Save(ctx context.Context, snap domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.snaps[snap.ChatID] = snap
	return nil
}

func (m *memSnapshots) Load(ctx context.Context, chatID int64) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[chatID]
	if !ok {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	return snap, nil
}

func (m *memSnapshots) LoadByToken(ctx context.Context, token uuid.UUID) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, snap := range m.snaps {
		if snap.Token == token {
			return snap, nil
		}
	}
	return domain.Snapshot{}, domain.ErrSnapshotNotFound
}

func (m *memSnapshots) Delete(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, chatID)
	return nil
}

func (m *memSnapshots) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, snap := range m.snaps {
		if snap.UpdatedAt.Before(cutoff) {
			delete(m.snaps, id)
			n++
		}
	}
	return n, nil
}

func (m *memSnapshots) get(chatID int64) (domain.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[chatID]
	return snap, ok
}

type recordingNotifier struct {
	mu        sync.Mutex
	delivered [][]domain.Message
	warnings  []error
}

func (r *recordingNotifier) Deliver(ctx context.Context, chatID int64, msgs []domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, msgs)
}

func (r *recordingNotifier) Warn(ctx context.Context, chatID int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, err)
}

type queryLocation struct {
	query url.Values
}

func newQueryLocation(raw string) *queryLocation {
	q, _ := url.ParseQuery(raw)
	return &queryLocation{query: q}
}

func (l *queryLocation) Query() url.Values {
	out := url.Values{}
	for k, v := range l.query {
		out[k] = v
	}
	return out
}

func (l *queryLocation) Clear(keys ...string) error {
	for _, k := range keys {
		l.query.Del(k)
	}
	return nil
}

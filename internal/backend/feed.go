package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/set-night/companion/internal/config"
)

// BalanceFeed receives pushed balance updates over a websocket, as an alternative to polling.
type BalanceFeed struct {
	url            string
	apiKey         string
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
}

type FeedOption func(*BalanceFeed)

func WithReconnectDelay(d time.Duration) FeedOption {
	return func(f *BalanceFeed) {
		f.reconnectDelay = d
	}
}

func NewBalanceFeed(baseURL, apiKey string, opts ...FeedOption) *BalanceFeed {
	u := strings.TrimRight(baseURL, "/") + "/api/balance/stream"
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}

	f := &BalanceFeed{
		url:            u,
		apiKey:         apiKey,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		reconnectDelay: config.StreamReconnectDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Subscribe calls apply for every pushed balance of userID until ctx is done.
// Dropped connections are re-established after the reconnect delay.
func (f *BalanceFeed) Subscribe(ctx context.Context, userID int64, apply func(seconds int64)) {
	for {
		err := f.stream(ctx, userID, apply)
		if ctx.Err() != nil {
			return
		}
		slog.Warn("balance stream interrupted", "user_id", userID, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.reconnectDelay):
		}
	}
}

func (f *BalanceFeed) stream(ctx context.Context, userID int64, apply func(int64)) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+f.apiKey)
	header.Set(userHeader, strconv.FormatInt(userID, 10))

	conn, _, err := f.dialer.DialContext(ctx, f.url, header)
	if err != nil {
		return fmt.Errorf("dial balance stream: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		var ev balanceEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("balance stream closed by server")
			}
			return fmt.Errorf("read balance event: %w", err)
		}
		apply(ev.Seconds)
	}
}

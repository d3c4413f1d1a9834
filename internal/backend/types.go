package backend

import (
	"github.com/shopspring/decimal"

	"github.com/set-night/companion/internal/domain"
)

type balanceResponse struct {
	Seconds int64 `json:"seconds"`
}

type usageRequest struct {
	Seconds int64 `json:"seconds"`
}

type historyMessage struct {
	ID       int64   `json:"id"`
	Text     *string `json:"text"`
	Sender   string  `json:"sender"`
	ImageURL string  `json:"image_url,omitempty"`
	Unlocked bool    `json:"unlocked,omitempty"`
}

type historyResponse struct {
	Messages []historyMessage `json:"messages"`
}

type chatRequest struct {
	Message string               `json:"message"`
	Context []domain.ContextTurn `json:"context"`
}

type chatResponse struct {
	Reply    string `json:"reply"`
	ImageURL string `json:"image_url,omitempty"`
}

type persistRequest struct {
	LocalID       string `json:"local_id"`
	UserText      string `json:"user_text"`
	AssistantText string `json:"assistant_text"`
	ImageURL      string `json:"image_url,omitempty"`
}

type persistResponse struct {
	MessageID int64 `json:"message_id"`
}

type checkoutRequest struct {
	MessageID int64  `json:"message_id,omitempty"`
	OfferID   string `json:"offer_id,omitempty"`
	ReturnURL string `json:"return_url"`
}

type checkoutResponse struct {
	URL      string          `json:"url"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

type offer struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind"`
	Title    string          `json:"title"`
	Seconds  int64           `json:"seconds"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

type offersResponse struct {
	Offers []offer `json:"offers"`
}

// balanceEvent is one frame of the balance stream.
type balanceEvent struct {
	Seconds int64 `json:"seconds"`
}

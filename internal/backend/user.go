package backend

import (
	"context"
	"net/http"

	"github.com/set-night/companion/internal/domain"
)

// UserClient is the backend as seen by one end user. Every failure is a *domain.NetworkError.
type UserClient struct {
	client *Client
	userID int64
}

func (u *UserClient) UserID() int64 {
	return u.userID
}

func (u *UserClient) FetchBalance(ctx context.Context) (int64, error) {
	var resp balanceResponse
	if err := u.client.do(ctx, u.userID, http.MethodGet, "/api/balance", nil, &resp); err != nil {
		return 0, &domain.NetworkError{Op: "fetch balance", Err: err}
	}
	return resp.Seconds, nil
}

// ReportUsage debits elapsed seconds and returns the remaining balance.
func (u *UserClient) ReportUsage(ctx context.Context, seconds int64) (int64, error) {
	var resp balanceResponse
	err := u.client.do(ctx, u.userID, http.MethodPost, "/api/usage", usageRequest{Seconds: seconds}, &resp)
	if err != nil {
		return 0, &domain.NetworkError{Op: "report usage", Err: err}
	}
	return resp.Seconds, nil
}

func (u *UserClient) FetchHistory(ctx context.Context) ([]domain.HistoryEntry, error) {
	var resp historyResponse
	if err := u.client.do(ctx, u.userID, http.MethodGet, "/api/history", nil, &resp); err != nil {
		return nil, &domain.NetworkError{Op: "fetch history", Err: err}
	}

	entries := make([]domain.HistoryEntry, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		entries = append(entries, domain.HistoryEntry{
			ID:       m.ID,
			Text:     m.Text,
			Sender:   domain.Sender(m.Sender),
			ImageRef: m.ImageURL,
			Unlocked: m.Unlocked,
		})
	}
	return entries, nil
}

// SubmitTurn asks the backend for the next assistant reply.
func (u *UserClient) SubmitTurn(ctx context.Context, text string, tail []domain.ContextTurn) (domain.Reply, error) {
	if tail == nil {
		tail = []domain.ContextTurn{}
	}
	var resp chatResponse
	err := u.client.do(ctx, u.userID, http.MethodPost, "/api/chat", chatRequest{Message: text, Context: tail}, &resp)
	if err != nil {
		return domain.Reply{}, &domain.NetworkError{Op: "submit turn", Err: err}
	}
	return domain.Reply{Text: resp.Reply, ImageRef: resp.ImageURL}, nil
}

// ConfirmTurnPersisted stores a finished exchange and returns the id of the assistant message.
func (u *UserClient) ConfirmTurnPersisted(ctx context.Context, localID, userText string, reply domain.Reply) (int64, error) {
	req := persistRequest{
		LocalID:       localID,
		UserText:      userText,
		AssistantText: reply.Text,
		ImageURL:      reply.ImageRef,
	}
	var resp persistResponse
	if err := u.client.do(ctx, u.userID, http.MethodPost, "/api/messages", req, &resp); err != nil {
		return 0, &domain.NetworkError{Op: "confirm turn", Err: err}
	}
	return resp.MessageID, nil
}

func (u *UserClient) RequestImageUnlockCheckout(ctx context.Context, serverMessageID int64, returnURL string) (domain.Checkout, error) {
	req := checkoutRequest{MessageID: serverMessageID, ReturnURL: returnURL}
	return u.checkout(ctx, domain.CheckoutImageUnlock, "/api/checkout/image-unlock", req)
}

func (u *UserClient) RequestTimeCreditCheckout(ctx context.Context, packID, returnURL string) (domain.Checkout, error) {
	req := checkoutRequest{OfferID: packID, ReturnURL: returnURL}
	return u.checkout(ctx, domain.CheckoutTimeCredits, "/api/checkout/time-credits", req)
}

func (u *UserClient) RequestSubscriptionCheckout(ctx context.Context, planID, returnURL string) (domain.Checkout, error) {
	req := checkoutRequest{OfferID: planID, ReturnURL: returnURL}
	return u.checkout(ctx, domain.CheckoutSubscription, "/api/checkout/subscription", req)
}

func (u *UserClient) checkout(ctx context.Context, kind domain.CheckoutKind, path string, req checkoutRequest) (domain.Checkout, error) {
	var resp checkoutResponse
	if err := u.client.do(ctx, u.userID, http.MethodPost, path, req, &resp); err != nil {
		return domain.Checkout{}, &domain.NetworkError{Op: "request " + string(kind) + " checkout", Err: err}
	}
	return domain.Checkout{
		Kind:        kind,
		RedirectURL: resp.URL,
		Price:       resp.Price,
		Currency:    resp.Currency,
	}, nil
}

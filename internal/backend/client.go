// Package backend talks to the remote companion backend: balance, history, reply generation,
// persistence of turns and hosted checkouts.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/set-night/companion/internal/config"
	"github.com/set-night/companion/internal/domain"
)

const userHeader = "X-User-ID"

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned %d", e.Code)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForUser binds the client to one end user.
func (c *Client) ForUser(userID int64) *UserClient {
	return &UserClient{client: c, userID: userID}
}

// FetchOffers lists purchasable time-credit packs and subscription plans. Offers are not per user.
func (c *Client) FetchOffers(ctx context.Context) ([]domain.Offer, error) {
	var resp offersResponse
	if err := c.do(ctx, 0, http.MethodGet, "/api/offers", nil, &resp); err != nil {
		return nil, &domain.NetworkError{Op: "fetch offers", Err: err}
	}

	offers := make([]domain.Offer, 0, len(resp.Offers))
	for _, o := range resp.Offers {
		offers = append(offers, domain.Offer{
			ID:       o.ID,
			Kind:     domain.CheckoutKind(o.Kind),
			Title:    o.Title,
			Seconds:  o.Seconds,
			Price:    o.Price,
			Currency: o.Currency,
		})
	}
	return offers, nil
}

func (c *Client) do(ctx context.Context, userID int64, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if userID != 0 {
		req.Header.Set(userHeader, strconv.FormatInt(userID, 10))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(data) > config.MaxResponseBytes {
		return fmt.Errorf("read response: body exceeds %d bytes", config.MaxResponseBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Package service holds bot-side helpers layered over the backend client.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/set-night/companion/internal/domain"
)

type OfferSource interface {
	FetchOffers(ctx context.Context) ([]domain.Offer, error)
}

// OfferCatalog caches the purchasable offers. A stale list is served when a refresh fails.
type OfferCatalog struct {
	source OfferSource
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	offers   []domain.Offer
	cachedAt time.Time
}

func NewOfferCatalog(source OfferSource, ttl time.Duration) *OfferCatalog {
	return &OfferCatalog{source: source, ttl: ttl, now: time.Now}
}

func (c *OfferCatalog) FetchOffers(ctx context.Context) ([]domain.Offer, error) {
	if offers, fresh := c.get(); fresh {
		return offers, nil
	}

	offers, err := c.source.FetchOffers(ctx)
	if err != nil {
		if stale, _ := c.get(); stale != nil {
			slog.Warn("offer refresh failed, serving cached list", "error", err)
			return stale, nil
		}
		return nil, err
	}

	c.set(offers)
	return offers, nil
}

// Invalidate drops the cached list so the next call refetches.
func (c *OfferCatalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offers = nil
	c.cachedAt = time.Time{}
}

func (c *OfferCatalog) get() ([]domain.Offer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.offers == nil {
		return nil, false
	}
	return c.offers, c.now().Sub(c.cachedAt) <= c.ttl
}

func (c *OfferCatalog) set(offers []domain.Offer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if offers == nil {
		offers = []domain.Offer{}
	}
	c.offers = offers
	c.cachedAt = c.now()
}

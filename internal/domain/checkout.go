package domain

import "github.com/shopspring/decimal"

type CheckoutKind string

const (
	CheckoutImageUnlock  CheckoutKind = "image_unlock"
	CheckoutTimeCredits  CheckoutKind = "time_credits"
	CheckoutSubscription CheckoutKind = "subscription"
)

// Checkout is a hosted payment page the user is redirected to.
type Checkout struct {
	Kind        CheckoutKind
	RedirectURL string
	Price       decimal.Decimal
	Currency    string
}

// Offer is a purchasable time-credit pack or subscription plan.
type Offer struct {
	ID       string
	Kind     CheckoutKind
	Title    string
	Seconds  int64
	Price    decimal.Decimal
	Currency string
}

func (o Offer) PriceLabel() string {
	return o.Price.StringFixed(2) + " " + o.Currency
}

// Package resume replays the outcome of an external payment page into the session exactly once
// per landing, then clears the marker from the landing location.
package resume

import (
	"net/url"
	"strconv"

	"github.com/set-night/companion/internal/domain"
)

// Query parameters the payment page appends to the return URL.
const (
	ParamCheckout  = "checkout"
	ParamUnlock    = "unlock"
	ParamMessageID = "message_id"
	ParamCredits   = "credits"

	valueSuccess = "success"
	valueCancel  = "cancel"
)

// MarkerParams lists every parameter that belongs to a payment marker.
var MarkerParams = []string{ParamCheckout, ParamUnlock, ParamMessageID, ParamCredits}

// Parse reads a payment marker from query parameters. Unknown parameters are ignored;
// a missing or unrecognized marker reports false.
func Parse(q url.Values) (domain.PaymentMarker, bool) {
	if v := q.Get(ParamUnlock); v != "" {
		id, err := strconv.ParseInt(q.Get(ParamMessageID), 10, 64)
		if err != nil || id <= 0 {
			return domain.PaymentMarker{}, false
		}
		switch v {
		case valueSuccess:
			return domain.PaymentMarker{Kind: domain.MarkerImageUnlockSuccess, MessageID: id}, true
		case valueCancel:
			return domain.PaymentMarker{Kind: domain.MarkerImageUnlockCancel, MessageID: id}, true
		}
		return domain.PaymentMarker{}, false
	}

	if v := q.Get(ParamCredits); v != "" {
		switch v {
		case valueSuccess:
			return domain.PaymentMarker{Kind: domain.MarkerTimeCreditSuccess}, true
		case valueCancel:
			return domain.PaymentMarker{Kind: domain.MarkerTimeCreditCancel}, true
		}
		return domain.PaymentMarker{}, false
	}

	switch q.Get(ParamCheckout) {
	case valueSuccess:
		return domain.PaymentMarker{Kind: domain.MarkerCheckoutSuccess}, true
	case valueCancel:
		return domain.PaymentMarker{Kind: domain.MarkerCheckoutCancel}, true
	}
	return domain.PaymentMarker{}, false
}

// HasMarkerParams reports whether any marker parameter is present, recognized or not.
func HasMarkerParams(q url.Values) bool {
	for _, p := range MarkerParams {
		if q.Has(p) {
			return true
		}
	}
	return false
}

// Encode builds the query parameters for a marker. Used to compose return URLs and in tests.
func Encode(m domain.PaymentMarker) url.Values {
	q := url.Values{}
	switch m.Kind {
	case domain.MarkerCheckoutSuccess:
		q.Set(ParamCheckout, valueSuccess)
	case domain.MarkerCheckoutCancel:
		q.Set(ParamCheckout, valueCancel)
	case domain.MarkerTimeCreditSuccess:
		q.Set(ParamCredits, valueSuccess)
	case domain.MarkerTimeCreditCancel:
		q.Set(ParamCredits, valueCancel)
	case domain.MarkerImageUnlockSuccess:
		q.Set(ParamUnlock, valueSuccess)
		q.Set(ParamMessageID, strconv.FormatInt(m.MessageID, 10))
	case domain.MarkerImageUnlockCancel:
		q.Set(ParamUnlock, valueCancel)
		q.Set(ParamMessageID, strconv.FormatInt(m.MessageID, 10))
	}
	return q
}

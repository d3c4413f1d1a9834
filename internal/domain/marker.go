package domain

import "fmt"

type MarkerKind string

const (
	MarkerCheckoutSuccess    MarkerKind = "checkout_success"
	MarkerCheckoutCancel     MarkerKind = "checkout_cancel"
	MarkerImageUnlockSuccess MarkerKind = "image_unlock_success"
	MarkerImageUnlockCancel  MarkerKind = "image_unlock_cancel"
	MarkerTimeCreditSuccess  MarkerKind = "time_credit_success"
	MarkerTimeCreditCancel   MarkerKind = "time_credit_cancel"
)

// PaymentMarker is the outcome of an external payment page, read once from the landing location.
type PaymentMarker struct {
	Kind MarkerKind
	// MessageID is set for image unlock markers only.
	MessageID int64
}

func (m PaymentMarker) IsSuccess() bool {
	switch m.Kind {
	case MarkerCheckoutSuccess, MarkerImageUnlockSuccess, MarkerTimeCreditSuccess:
		return true
	}
	return false
}

func (m PaymentMarker) IsImageUnlock() bool {
	return m.Kind == MarkerImageUnlockSuccess || m.Kind == MarkerImageUnlockCancel
}

func (m PaymentMarker) String() string {
	if m.IsImageUnlock() {
		return fmt.Sprintf("%s(%d)", m.Kind, m.MessageID)
	}
	return string(m.Kind)
}

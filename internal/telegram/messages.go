package telegram

import (
	"errors"
	"strings"

	"github.com/set-night/companion/internal/domain"
)

// WarningText maps a session error to the notice shown in the chat.
func WarningText(err error) string {
	var mismatch *domain.ReconciliationMismatch
	var validation *domain.ValidationError
	var network *domain.NetworkError

	switch {
	case errors.As(err, &mismatch):
		return "⚠️ That payment does not match a photo in this chat. If you were charged, the unlock is saved to your account and shows up after /start."
	case errors.Is(err, domain.ErrCreditsExhausted):
		return "⌛ You are out of chat time. Top up with /topup or get a plan with /subscribe."
	case errors.Is(err, domain.ErrSendInFlight):
		return "⏳ Still answering your previous message."
	case errors.Is(err, domain.ErrSignedOut):
		return "You are signed out. Send /start to begin again."
	case errors.Is(err, domain.ErrMessageNotFound):
		return "⚠️ That photo is no longer in this chat."
	case errors.Is(err, domain.ErrImageNotLocked):
		return "This photo is already unlocked."
	case errors.As(err, &validation):
		return "✏️ " + capitalize(validation.Reason) + "."
	case errors.As(err, &network):
		return "⚠️ Connection trouble, please try again in a moment."
	default:
		return "⚠️ Something went wrong. Please try again."
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

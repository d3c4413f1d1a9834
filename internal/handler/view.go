package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/set-night/companion/internal/domain"
	tg "github.com/set-night/companion/internal/telegram"
)

const commandsText = "📋 Commands:\n" +
	"/balance — Remaining chat time\n" +
	"/topup — Buy more time\n" +
	"/subscribe — Monthly plans\n" +
	"/gallery — Your unlocked photos\n" +
	"/logout — Sign out and forget this chat\n\n" +
	"Just send a message to talk."

func welcomeText(b domain.CreditBalance) string {
	return "👋 Welcome back!\n\n" + balanceText(b) + "\n\n" + commandsText
}

func balanceText(b domain.CreditBalance) string {
	if !b.CanSend() {
		return "⌛ You are out of chat time. /topup or /subscribe to keep talking."
	}
	return fmt.Sprintf("⏱ Chat time left: %s", tg.FormatSeconds(b.DisplaySeconds))
}

func offersTitle(kind domain.CheckoutKind) string {
	if kind == domain.CheckoutSubscription {
		return "⭐ Pick a plan:"
	}
	return "⏱ Pick a time pack:"
}

func filterOffers(offers []domain.Offer, kind domain.CheckoutKind) []domain.Offer {
	var out []domain.Offer
	for _, o := range offers {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

func findOffer(offers []domain.Offer, id string) (domain.Offer, bool) {
	for _, o := range offers {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Offer{}, false
}

func checkoutText(c domain.Checkout) string {
	switch c.Kind {
	case domain.CheckoutImageUnlock:
		return "🔓 Unlock this photo. It will show up here once the payment is done."
	case domain.CheckoutSubscription:
		return "⭐ Finish your subscription on the payment page."
	default:
		return "⏱ Finish your purchase on the payment page."
	}
}

// galleryPage returns one page of refs. The page is clamped to the valid range.
func galleryPage(refs []string, page, size int) ([]string, int, int) {
	if len(refs) == 0 || size <= 0 {
		return nil, 0, 0
	}
	total := (len(refs) + size - 1) / size
	page = min(max(page, 0), total-1)

	start := page * size
	end := min(start+size, len(refs))
	return refs[start:end], page, total
}

func parseIDSuffix(data, prefix string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id in %q", data)
	}
	return id, nil
}

package telegram

import (
	"fmt"

	"github.com/go-telegram/bot/models"

	"github.com/set-night/companion/internal/domain"
)

// Callback data prefixes shared by keyboards and handlers.
const (
	CallbackUnlock      = "unlock_"
	CallbackOffer       = "offer_"
	CallbackMenu        = "menu_"
	CallbackGalleryPage = "gallery"
	CallbackNoop        = "cur"
)

// InlineButton creates a single inline keyboard button.
func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// URLButton creates a URL inline keyboard button.
func URLButton(text, url string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text: text,
		URL:  url,
	}
}

// InlineKeyboard creates an inline keyboard from rows of buttons.
func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

// ButtonRow creates a row of inline buttons.
func ButtonRow(buttons ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return buttons
}

// PaginationRow creates a pagination row with prev/next buttons.
func PaginationRow(currentPage, totalPages int, callbackPrefix string) []models.InlineKeyboardButton {
	var row []models.InlineKeyboardButton

	if currentPage > 0 {
		row = append(row, InlineButton("⬅️", fmt.Sprintf("%s_%d", callbackPrefix, currentPage-1)))
	}

	row = append(row, InlineButton(
		fmt.Sprintf("%d/%d", currentPage+1, totalPages),
		CallbackNoop,
	))

	if currentPage < totalPages-1 {
		row = append(row, InlineButton("➡️", fmt.Sprintf("%s_%d", callbackPrefix, currentPage+1)))
	}

	return row
}

// UnlockKeyboard offers the unlock checkout for a locked image.
func UnlockKeyboard(serverMessageID int64) *models.InlineKeyboardMarkup {
	return InlineKeyboard(ButtonRow(
		InlineButton("🔓 Unlock photo", fmt.Sprintf("%s%d", CallbackUnlock, serverMessageID)),
	))
}

// CheckoutKeyboard links to a hosted payment page.
func CheckoutKeyboard(checkout domain.Checkout) *models.InlineKeyboardMarkup {
	label := "💳 Pay"
	if !checkout.Price.IsZero() {
		label = fmt.Sprintf("💳 Pay %s %s", checkout.Price.StringFixed(2), checkout.Currency)
	}
	return InlineKeyboard(ButtonRow(URLButton(label, checkout.RedirectURL)))
}

// OffersKeyboard lists purchasable offers, one per row.
func OffersKeyboard(offers []domain.Offer) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(offers))
	for _, o := range offers {
		rows = append(rows, ButtonRow(
			InlineButton(fmt.Sprintf("%s · %s", o.Title, o.PriceLabel()), CallbackOffer+o.ID),
		))
	}
	return InlineKeyboard(rows...)
}

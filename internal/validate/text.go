// Package validate holds the outgoing text policy applied before a user turn is appended.
package validate

import (
	"errors"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/set-night/companion/internal/config"
	"github.com/set-night/companion/internal/domain"
)

var errControlChars = validation.NewError("validation_control_chars", "must not contain control characters")

// TextPolicy trims outgoing text and enforces presence, length and character rules.
type TextPolicy struct {
	MaxRunes int
}

func NewTextPolicy() *TextPolicy {
	return &TextPolicy{MaxRunes: config.MaxMessageRunes}
}

// Validate returns the sanitized text or a *domain.ValidationError.
func (p *TextPolicy) Validate(text string) (string, error) {
	sanitized := sanitize(text)

	err := validation.Validate(sanitized,
		validation.Required,
		validation.RuneLength(1, p.MaxRunes),
		validation.By(noControlChars),
	)
	if err != nil {
		return "", toValidationError(err)
	}
	return sanitized, nil
}

// sanitize trims surrounding space and normalizes line endings.
func sanitize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(text)
}

func noControlChars(value interface{}) error {
	s, _ := value.(string)
	for _, r := range s {
		if r == '\n' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return errControlChars
		}
	}
	return nil
}

func toValidationError(err error) error {
	var ve validation.Error
	if errors.As(err, &ve) {
		return &domain.ValidationError{Field: "text", Reason: ve.Error()}
	}
	return &domain.ValidationError{Field: "text", Reason: err.Error()}
}

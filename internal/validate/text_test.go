package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/set-night/companion/internal/domain"
)

func TestTextPolicy_Validate(t *testing.T) {
	policy := &TextPolicy{MaxRunes: 10}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "hello", want: "hello"},
		{name: "trims", input: "  hello \n", want: "hello"},
		{name: "crlf normalized", input: "a\r\nb", want: "a\nb"},
		{name: "tab allowed", input: "a\tb", want: "a\tb"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: " \t\n ", wantErr: true},
		{name: "too long", input: strings.Repeat("x", 11), wantErr: true},
		{name: "multibyte counted as runes", input: strings.Repeat("ж", 10), want: strings.Repeat("ж", 10)},
		{name: "control char", input: "bad\x07bell", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.Validate(tt.input)

			if tt.wantErr {
				var ve *domain.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("Validate() error = %v, want *domain.ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Validate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewTextPolicy_UsesConfiguredLimit(t *testing.T) {
	policy := NewTextPolicy()
	if policy.MaxRunes <= 0 {
		t.Fatalf("expected positive limit, got %d", policy.MaxRunes)
	}
}

package resume

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/set-night/companion/internal/domain"
)

type State string

const (
	StateIdle         State = "idle"
	StateParsedMarker State = "parsed_marker"
	StateApplied      State = "applied"
	StateIgnored      State = "ignored"
	StateCleared      State = "cleared"
)

// Location is the addressable landing location carrying the marker.
type Location interface {
	Query() url.Values
	// Clear removes the given parameters so a reload does not reapply them.
	Clear(keys ...string) error
}

// Log receives the replayed state transitions.
type Log interface {
	MarkUnlocked(serverMessageID int64) (found, changed bool)
	AppendInfo(text string) string
}

// Refresher forces an authoritative balance resync.
type Refresher interface {
	ForceRefresh(ctx context.Context) error
}

// Outcome describes what one landing did.
type Outcome struct {
	Marker   domain.PaymentMarker
	State    State
	InfoIDs  []string
	Warnings []error
}

const (
	infoCheckoutSuccess   = "Your subscription is active. Thank you!"
	infoTimeCreditSuccess = "Your time credits were added. Enjoy!"
	infoUnlockSuccess     = "Your photo is unlocked and saved to your gallery."
	infoCancelled         = "Payment cancelled, nothing was charged."
)

// Handler runs once per landing: Idle -> ParsedMarker -> Applied|Ignored -> Cleared.
type Handler struct {
	log     Log
	credits Refresher
	state   State
}

func NewHandler(log Log, credits Refresher) *Handler {
	return &Handler{log: log, credits: credits, state: StateIdle}
}

func (h *Handler) State() State {
	return h.state
}

// Process reads the marker from loc, applies it, and clears it last. A second call on the
// same handler does nothing.
func (h *Handler) Process(ctx context.Context, loc Location) (Outcome, error) {
	if h.state != StateIdle {
		return Outcome{State: h.state}, nil
	}

	q := loc.Query()
	marker, ok := Parse(q)
	out := Outcome{Marker: marker}

	if !ok {
		h.state = StateIgnored
	} else {
		h.state = StateParsedMarker
		out.InfoIDs, out.Warnings = h.apply(ctx, marker)
		h.state = StateApplied
		slog.Info("payment marker applied", "marker", marker.String(), "warnings", len(out.Warnings))
	}

	if HasMarkerParams(q) {
		if err := loc.Clear(MarkerParams...); err != nil {
			out.State = h.state
			return out, fmt.Errorf("clear marker: %w", err)
		}
		h.state = StateCleared
	}
	out.State = h.state
	return out, nil
}

func (h *Handler) apply(ctx context.Context, m domain.PaymentMarker) ([]string, []error) {
	var warnings []error

	switch m.Kind {
	case domain.MarkerCheckoutSuccess, domain.MarkerTimeCreditSuccess:
		text := infoCheckoutSuccess
		if m.Kind == domain.MarkerTimeCreditSuccess {
			text = infoTimeCreditSuccess
		}
		id := h.log.AppendInfo(text)
		if err := h.credits.ForceRefresh(ctx); err != nil {
			warnings = append(warnings, err)
		}
		return []string{id}, warnings

	case domain.MarkerImageUnlockSuccess:
		found, changed := h.log.MarkUnlocked(m.MessageID)
		if !found {
			mismatch := &domain.ReconciliationMismatch{ServerMessageID: m.MessageID}
			slog.Warn("unlock confirmation for unknown message", "message_id", m.MessageID)
			return nil, append(warnings, mismatch)
		}
		if !changed {
			slog.Debug("unlock already applied", "message_id", m.MessageID)
			return nil, nil
		}
		return []string{h.log.AppendInfo(infoUnlockSuccess)}, nil

	default:
		return []string{h.log.AppendInfo(infoCancelled)}, nil
	}
}

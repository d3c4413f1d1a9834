package domain

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type ImageState string

const (
	ImageNone          ImageState = "none"
	ImagePendingUnlock ImageState = "pending_unlock"
	ImageUnlocked      ImageState = "unlocked"
)

type Message struct {
	ID              string
	Text            *string
	Sender          Sender
	ServerMessageID *int64
	ImageRef        string
	ImageState      ImageState
	CreatedAt       time.Time
}

func (m *Message) HasImage() bool {
	return m.ImageRef != ""
}

func (m *Message) IsLocked() bool {
	return m.ImageState == ImagePendingUnlock
}

// Body returns the display text, or "" for image-only turns.
func (m *Message) Body() string {
	if m.Text == nil {
		return ""
	}
	return *m.Text
}

// HistoryEntry is one turn as reported by the backend history endpoint.
type HistoryEntry struct {
	ID       int64
	Text     *string
	Sender   Sender
	ImageRef string
	Unlocked bool
}

// Reply is a generated assistant turn.
type Reply struct {
	Text     string
	ImageRef string
}

// ContextTurn is one prior turn sent along with a new user message.
type ContextTurn struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

func StringPtr(s string) *string {
	return &s
}

func Int64Ptr(v int64) *int64 {
	return &v
}

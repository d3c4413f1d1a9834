package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/set-night/companion/internal/domain"
)

// messageRecord is the stored form of a domain.Message.
type messageRecord struct {
	ID              string    `json:"id"`
	Text            *string   `json:"text,omitempty"`
	Sender          string    `json:"sender"`
	ServerMessageID *int64    `json:"server_message_id,omitempty"`
	ImageRef        string    `json:"image_ref,omitempty"`
	ImageState      string    `json:"image_state"`
	CreatedAt       time.Time `json:"created_at"`
}

func encodeMessages(messages []domain.Message) ([]byte, error) {
	records := make([]messageRecord, 0, len(messages))
	for _, m := range messages {
		records = append(records, messageRecord{
			ID:              m.ID,
			Text:            m.Text,
			Sender:          string(m.Sender),
			ServerMessageID: m.ServerMessageID,
			ImageRef:        m.ImageRef,
			ImageState:      string(m.ImageState),
			CreatedAt:       m.CreatedAt,
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode messages: %w", err)
	}
	return data, nil
}

func decodeMessages(data []byte) ([]domain.Message, error) {
	var records []messageRecord
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode messages: %w", err)
		}
	}

	messages := make([]domain.Message, 0, len(records))
	for _, r := range records {
		messages = append(messages, domain.Message{
			ID:              r.ID,
			Text:            r.Text,
			Sender:          domain.Sender(r.Sender),
			ServerMessageID: r.ServerMessageID,
			ImageRef:        r.ImageRef,
			ImageState:      domain.ImageState(r.ImageState),
			CreatedAt:       r.CreatedAt,
		})
	}
	return messages, nil
}

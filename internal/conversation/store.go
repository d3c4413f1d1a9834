// Package conversation holds the ordered message log of one chat session and the gallery
// of unlocked images derived from it.
package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/companion/internal/domain"
)

// TextValidator applies the outgoing content/length policy and returns the sanitized text.
type TextValidator interface {
	Validate(text string) (string, error)
}

// Store is the conversation log. It is append-only except for the one-time server id
// attachment and the pendingUnlock -> unlocked image transition.
type Store struct {
	mu        sync.RWMutex
	validator TextValidator
	messages  []domain.Message
	gallery   []string
	inGallery map[string]struct{}
	now       func() time.Time
}

func NewStore(validator TextValidator) *Store {
	return &Store{
		validator: validator,
		inGallery: make(map[string]struct{}),
		now:       time.Now,
	}
}

// Hydrate replaces the log with server history. Server-reported unlock flags are authoritative.
// An empty history is seeded with the greeting lines instead.
func (s *Store) Hydrate(history []domain.HistoryEntry, greeting []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()

	if len(history) == 0 {
		for _, line := range greeting {
			s.appendLocked(domain.Message{
				Text:       domain.StringPtr(line),
				Sender:     domain.SenderAssistant,
				ImageState: domain.ImageNone,
			})
		}
		return
	}

	for _, h := range history {
		msg := domain.Message{
			Text:            h.Text,
			Sender:          h.Sender,
			ServerMessageID: domain.Int64Ptr(h.ID),
			ImageRef:        h.ImageRef,
			ImageState:      domain.ImageNone,
		}
		if h.ImageRef != "" {
			msg.ImageState = domain.ImagePendingUnlock
			if h.Unlocked {
				msg.ImageState = domain.ImageUnlocked
			}
		}
		s.appendLocked(msg)
		if msg.ImageState == domain.ImageUnlocked {
			s.addToGalleryLocked(msg.ImageRef)
		}
	}
}

// Restore loads a persisted log as-is.
func (s *Store) Restore(messages []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	for _, m := range messages {
		s.messages = append(s.messages, m)
		if m.ImageState == domain.ImageUnlocked {
			s.addToGalleryLocked(m.ImageRef)
		}
	}
}

// AppendUserTurn validates and appends a user message, returning its local id.
func (s *Store) AppendUserTurn(text string) (string, error) {
	sanitized, err := s.validator.Validate(text)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.appendLocked(domain.Message{
		Text:       domain.StringPtr(sanitized),
		Sender:     domain.SenderUser,
		ImageState: domain.ImageNone,
	})
	return msg.ID, nil
}

// AppendAssistantTurn appends a generated reply. Images are always delivered locked.
func (s *Store) AppendAssistantTurn(reply domain.Reply) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := domain.Message{
		Sender:     domain.SenderAssistant,
		ImageRef:   reply.ImageRef,
		ImageState: domain.ImageNone,
	}
	if strings.TrimSpace(reply.Text) != "" {
		msg.Text = domain.StringPtr(reply.Text)
	}
	if reply.ImageRef != "" {
		msg.ImageState = domain.ImagePendingUnlock
	}
	return s.appendLocked(msg).ID
}

// AppendInfo appends an informational assistant line that is never sent to the backend.
func (s *Store) AppendInfo(text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendLocked(domain.Message{
		Text:       domain.StringPtr(text),
		Sender:     domain.SenderAssistant,
		ImageState: domain.ImageNone,
	}).ID
}

// AttachServerID links a local message to its persisted backend id. It is a no-op when the
// local id is unknown (superseded by a reload) or already attached.
func (s *Store) AttachServerID(localID string, serverMessageID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID != localID {
			continue
		}
		if s.messages[i].ServerMessageID != nil {
			return false
		}
		s.messages[i].ServerMessageID = domain.Int64Ptr(serverMessageID)
		return true
	}
	return false
}

// MarkUnlocked flips a locked image to unlocked and adds it to the gallery.
// found reports whether the message is known; changed is true only for the transition
// itself, so repeating the call leaves the log untouched and reports changed=false.
func (s *Store) MarkUnlocked(serverMessageID int64) (found, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexByServerIDLocked(serverMessageID)
	if i < 0 {
		return false, false
	}

	msg := &s.messages[i]
	if msg.ImageState == domain.ImagePendingUnlock {
		msg.ImageState = domain.ImageUnlocked
		changed = true
	}
	if msg.ImageState == domain.ImageUnlocked {
		s.addToGalleryLocked(msg.ImageRef)
	}
	return true, changed
}

func (s *Store) Find(serverMessageID int64) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexByServerIDLocked(serverMessageID)
	if i < 0 {
		return domain.Message{}, false
	}
	return s.messages[i], true
}

func (s *Store) Get(localID string) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.messages {
		if m.ID == localID {
			return m, true
		}
	}
	return domain.Message{}, false
}

// Messages returns the log oldest first.
func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Gallery returns unlocked image refs in unlock order.
func (s *Store) Gallery() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.gallery))
	copy(out, s.gallery)
	return out
}

// Tail returns up to n of the most recent text turns as reply context.
func (s *Store) Tail(n int) []domain.ContextTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var turns []domain.ContextTurn
	for i := len(s.messages) - 1; i >= 0 && len(turns) < n; i-- {
		m := s.messages[i]
		if m.Text == nil {
			continue
		}
		turns = append(turns, domain.ContextTurn{Sender: m.Sender, Text: *m.Text})
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns
}

func (s *Store) appendLocked(msg domain.Message) domain.Message {
	msg.ID = newLocalID()
	msg.CreatedAt = s.now()
	s.messages = append(s.messages, msg)
	return msg
}

func (s *Store) indexByServerIDLocked(serverMessageID int64) int {
	for i := range s.messages {
		if id := s.messages[i].ServerMessageID; id != nil && *id == serverMessageID {
			return i
		}
	}
	return -1
}

func (s *Store) addToGalleryLocked(ref string) {
	if ref == "" {
		return
	}
	if _, ok := s.inGallery[ref]; ok {
		return
	}
	s.inGallery[ref] = struct{}{}
	s.gallery = append(s.gallery, ref)
}

func (s *Store) resetLocked() {
	s.messages = nil
	s.gallery = nil
	s.inGallery = make(map[string]struct{})
}

// newLocalID returns a time-ordered id. It is unique within the process, not across reconnects.
func newLocalID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

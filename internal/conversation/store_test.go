package conversation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/companion/internal/domain"
)

type stubValidator struct{}

func (stubValidator) Validate(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", &domain.ValidationError{Field: "text", Reason: "cannot be blank"}
	}
	return trimmed, nil
}

var greeting = []string{"Hi!", "I missed you.", "How was your day?"}

func TestHydrate_EmptySeedsGreeting(t *testing.T) {
	s := NewStore(stubValidator{})
	s.Hydrate(nil, greeting)

	msgs := s.Messages()
	require.Len(t, msgs, len(greeting))
	for i, m := range msgs {
		assert.Equal(t, domain.SenderAssistant, m.Sender)
		assert.Equal(t, greeting[i], m.Body())
		assert.Nil(t, m.ServerMessageID)
	}
	assert.Empty(t, s.Gallery())
}

func TestHydrate_ServerFlagsAreAuthoritative(t *testing.T) {
	s := NewStore(stubValidator{})
	s.Hydrate([]domain.HistoryEntry{
		{ID: 1, Text: domain.StringPtr("hello"), Sender: domain.SenderUser},
		{ID: 2, Sender: domain.SenderAssistant, ImageRef: "img/a.jpg", Unlocked: true},
		{ID: 3, Sender: domain.SenderAssistant, ImageRef: "img/b.jpg"},
	}, greeting)

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.ImageNone, msgs[0].ImageState)
	assert.Equal(t, domain.ImageUnlocked, msgs[1].ImageState)
	assert.Equal(t, domain.ImagePendingUnlock, msgs[2].ImageState)
	assert.Equal(t, []string{"img/a.jpg"}, s.Gallery())
}

func TestHydrate_ReplacesLog(t *testing.T) {
	s := NewStore(stubValidator{})
	_, err := s.AppendUserTurn("optimistic")
	require.NoError(t, err)

	s.Hydrate([]domain.HistoryEntry{{ID: 9, Text: domain.StringPtr("persisted"), Sender: domain.SenderUser}}, nil)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "persisted", msgs[0].Body())
}

func TestAppendUserTurn(t *testing.T) {
	s := NewStore(stubValidator{})

	id, err := s.AppendUserTurn("  hi there ")
	require.NoError(t, err)

	msg, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "hi there", msg.Body())
	assert.Equal(t, domain.SenderUser, msg.Sender)
}

func TestAppendUserTurn_ValidationError(t *testing.T) {
	s := NewStore(stubValidator{})

	_, err := s.AppendUserTurn("   ")
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 0, s.Len(), "rejected text is never appended")
}

func TestAppendAssistantTurn_ImagesAlwaysLocked(t *testing.T) {
	s := NewStore(stubValidator{})

	id := s.AppendAssistantTurn(domain.Reply{Text: "look", ImageRef: "img/c.jpg"})
	msg, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, domain.ImagePendingUnlock, msg.ImageState)
	assert.Empty(t, s.Gallery())

	id = s.AppendAssistantTurn(domain.Reply{Text: "just text"})
	msg, _ = s.Get(id)
	assert.Equal(t, domain.ImageNone, msg.ImageState)

	id = s.AppendAssistantTurn(domain.Reply{ImageRef: "img/d.jpg"})
	msg, _ = s.Get(id)
	assert.Nil(t, msg.Text, "image-only turns carry no text")
}

func TestAttachServerID(t *testing.T) {
	s := NewStore(stubValidator{})
	id := s.AppendAssistantTurn(domain.Reply{Text: "x", ImageRef: "img/e.jpg"})

	assert.True(t, s.AttachServerID(id, 42))
	assert.False(t, s.AttachServerID(id, 43), "attachment happens once")
	assert.False(t, s.AttachServerID("missing", 44))

	msg, ok := s.Find(42)
	require.True(t, ok)
	assert.Equal(t, id, msg.ID)
	_, ok = s.Find(43)
	assert.False(t, ok)
}

func TestMarkUnlocked_Idempotent(t *testing.T) {
	s := NewStore(stubValidator{})
	id := s.AppendAssistantTurn(domain.Reply{ImageRef: "img/f.jpg"})
	s.AttachServerID(id, 42)

	found, changed := s.MarkUnlocked(42)
	require.True(t, found)
	require.True(t, changed)
	first := s.Messages()
	firstGallery := s.Gallery()

	found, changed = s.MarkUnlocked(42)
	require.True(t, found)
	assert.False(t, changed)
	assert.Equal(t, first, s.Messages())
	assert.Equal(t, firstGallery, s.Gallery())
	assert.Equal(t, []string{"img/f.jpg"}, s.Gallery())

	msg, _ := s.Find(42)
	assert.Equal(t, domain.ImageUnlocked, msg.ImageState)
}

func TestMarkUnlocked_Unknown(t *testing.T) {
	s := NewStore(stubValidator{})
	found, changed := s.MarkUnlocked(7)
	assert.False(t, found)
	assert.False(t, changed)
	assert.Empty(t, s.Gallery())
}

func TestMarkUnlocked_AfterReloadReportsSameFact(t *testing.T) {
	s := NewStore(stubValidator{})
	s.Hydrate([]domain.HistoryEntry{{ID: 5, Sender: domain.SenderAssistant, ImageRef: "img/g.jpg", Unlocked: true}}, nil)

	found, changed := s.MarkUnlocked(5)
	assert.True(t, found)
	assert.False(t, changed, "hydration already applied the unlock")
	assert.Equal(t, []string{"img/g.jpg"}, s.Gallery())
}

func TestMarkUnlocked_TextMessageIsNotChanged(t *testing.T) {
	s := NewStore(stubValidator{})
	id := s.AppendAssistantTurn(domain.Reply{Text: "no photo here"})
	s.AttachServerID(id, 8)

	found, changed := s.MarkUnlocked(8)
	assert.True(t, found)
	assert.False(t, changed)
	assert.Empty(t, s.Gallery())
}

func TestOrderingPreserved(t *testing.T) {
	s := NewStore(stubValidator{})
	u1, _ := s.AppendUserTurn("one")
	a1 := s.AppendAssistantTurn(domain.Reply{Text: "two"})
	u2, _ := s.AppendUserTurn("three")

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{u1, a1, u2}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestTail(t *testing.T) {
	s := NewStore(stubValidator{})
	s.AppendUserTurn("a")
	s.AppendAssistantTurn(domain.Reply{ImageRef: "img/h.jpg"})
	s.AppendAssistantTurn(domain.Reply{Text: "b"})
	s.AppendUserTurn("c")

	tail := s.Tail(2)
	assert.Equal(t, []domain.ContextTurn{
		{Sender: domain.SenderAssistant, Text: "b"},
		{Sender: domain.SenderUser, Text: "c"},
	}, tail)

	assert.Len(t, s.Tail(10), 3)
}

func TestRestore(t *testing.T) {
	s := NewStore(stubValidator{})
	s.Restore([]domain.Message{
		{ID: "a", Sender: domain.SenderAssistant, ImageRef: "img/i.jpg", ImageState: domain.ImageUnlocked, ServerMessageID: domain.Int64Ptr(1)},
		{ID: "b", Sender: domain.SenderAssistant, ImageRef: "img/j.jpg", ImageState: domain.ImagePendingUnlock, ServerMessageID: domain.Int64Ptr(2)},
	})

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"img/i.jpg"}, s.Gallery())
}

package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatLimiter_BurstThenRefill(t *testing.T) {
	l := NewChatLimiter(3)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		assert.True(t, l.AllowAt(1, t0), "message %d within burst", i)
	}
	assert.False(t, l.AllowAt(1, t0))
	assert.True(t, l.AllowAt(2, t0), "chats are limited independently")

	assert.False(t, l.AllowAt(1, t0.Add(10*time.Second)))
	assert.True(t, l.AllowAt(1, t0.Add(31*time.Second)), "one token per 20s")
}

func TestChatLimiter_Prune(t *testing.T) {
	l := NewChatLimiter(5)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	l.AllowAt(1, t0)
	l.AllowAt(2, t0.Add(50*time.Minute))

	assert.Equal(t, 1, l.Prune(t0.Add(time.Hour), 30*time.Minute))
	assert.Equal(t, 0, l.Prune(t0.Add(time.Hour), 30*time.Minute))
}

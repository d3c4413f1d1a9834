package domain

import (
	"time"

	"github.com/google/uuid"
)

type SessionState string

const (
	SessionEntering  SessionState = "entering"
	SessionActive    SessionState = "active"
	SessionSignedOut SessionState = "signed_out"
)

type GreetingState string

const (
	GreetingPending GreetingState = "pending"
	GreetingShown   GreetingState = "shown"
)

// Snapshot is the persisted state of one chat session.
type Snapshot struct {
	Token     uuid.UUID
	ChatID    int64
	UserID    int64
	Greeting  GreetingState
	Balance   CreditBalance
	Messages  []Message
	UpdatedAt time.Time
}

package domain

import "time"

// CreditBalance is the remaining chat entitlement in seconds.
// ServerSeconds is authoritative; DisplaySeconds is a local projection for the countdown only.
type CreditBalance struct {
	ServerSeconds  int64
	SyncedAt       time.Time
	DisplaySeconds int64
}

func (b CreditBalance) CanSend() bool {
	return b.ServerSeconds > 0
}

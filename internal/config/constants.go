package config

import "time"

const (
	// Countdown cadence
	TickInterval = 1 * time.Second

	// Authoritative balance resync cadence
	ResyncInterval = 30 * time.Second

	// Display is re-baselined only when it drifts further than this from the projection
	ResyncTolerance = 10 * time.Second

	// Outgoing text limits
	MaxMessageRunes = 2000

	// Turns sent to the backend as context for a new reply
	ContextTailSize = 20

	// Longest stretch of chat time billed for a single turn
	MaxTurnUsage = 2 * time.Minute

	// Sessions without activity are suspended (timers stopped, snapshot kept)
	SessionIdleTimeout = 30 * time.Minute

	// Backend request timeout
	RequestTimeout = 90 * time.Second

	// Largest backend response body read into memory
	MaxResponseBytes = 1 << 20

	// Balance stream reconnect backoff
	StreamReconnectDelay = 5 * time.Second

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Rate limits (per minute)
	RateLimitMessages = 12

	// Offer list cache
	OffersCacheTTL = 5 * time.Minute

	// Images shown per /gallery call
	GalleryPageSize = 10

	// Snapshot cleanup of abandoned sessions
	SnapshotCleanupInterval = 1 * time.Hour
	SnapshotMaxAge          = 30 * 24 * time.Hour
)

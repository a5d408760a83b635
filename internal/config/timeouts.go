package config

import "time"

// Timeout constants, grouped here so the budget hierarchy stays visible:
// HTTP write > chat turn > generation call (+ one retry).
const (
	// GenerationCall bounds a single text-generation round trip.
	GenerationCall = 20 * time.Second

	// GenerationRetryDelay is the base backoff before the single retry.
	GenerationRetryDelay = 500 * time.Millisecond

	// ChatTurn bounds one whole chat turn including the retried generation call.
	ChatTurn = 45 * time.Second

	// HTTPRead bounds reading the request body.
	HTTPRead = 10 * time.Second

	// HTTPWrite must exceed ChatTurn so slow generations can still flush.
	HTTPWrite = 50 * time.Second

	// HTTPIdle bounds keep-alive connections.
	HTTPIdle = 120 * time.Second

	// ReadyCheck bounds dependency checks on the readiness probe.
	ReadyCheck = 3 * time.Second
)

// Background-job cadence.
const (
	// TurnLogPruneInitialDelay lets the server stabilize before the first prune.
	TurnLogPruneInitialDelay = 1 * time.Minute

	// TurnLogPruneInterval is how often expired audit rows are removed.
	TurnLogPruneInterval = 6 * time.Hour

	// SessionPruneInterval is how often idle session windows are dropped.
	SessionPruneInterval = 10 * time.Minute

	// SessionIdleTimeout is how long a session survives without a turn.
	SessionIdleTimeout = 1 * time.Hour

	// GaugeRefreshInterval is how often catalog and session gauges are updated.
	GaugeRefreshInterval = 30 * time.Second

	// RateLimitCleanupPeriod is how often fully-refilled session buckets are dropped.
	RateLimitCleanupPeriod = 5 * time.Minute
)

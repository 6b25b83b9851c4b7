package store

import (
	"encoding/json"
	"time"
)

// Connection states of a snapshot.
const (
	StateConnected       = "connected"
	StateDisconnected    = "disconnected"
	StateVersionMismatch = "version_mismatch"
)

// Snapshot is the last known status of one channel.
//
// Snapshot is the storage representation used by the relay's REST API and
// SSE stream. Data is kept as raw JSON so the server schema stays opaque.
type Snapshot struct {
	// Channel is the status channel name.
	Channel string `json:"channel"`

	// Path is the status path that was polled.
	Path string `json:"path"`

	// State is one of connected, disconnected or version_mismatch.
	State string `json:"state"`

	// StatusCode is the HTTP status code, or 0 if the request never completed.
	StatusCode int `json:"status_code"`

	// LatencyMs is the request latency in milliseconds.
	LatencyMs int64 `json:"latency_ms"`

	// CheckedAt is the time of the poll.
	CheckedAt time.Time `json:"checked_at"`

	// Error is the failure message, or nil when connected.
	Error *string `json:"error"`

	// Data is the decoded status document, or null on failure.
	Data json.RawMessage `json:"data"`

	// Fields holds the display fields formatted for this snapshot.
	Fields map[string]string `json:"fields,omitempty"`
}

// Store defines the interface for storing and subscribing to snapshots.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update replaces the snapshot for s.Channel and reports whether its
	// content changed. Subscribers are notified only on change.
	Update(s Snapshot) bool

	// Get returns the snapshot for a channel.
	Get(channel string) (Snapshot, bool)

	// GetAll returns every stored snapshot ordered by channel name.
	GetAll() []Snapshot

	// Subscribe returns a channel that receives changed snapshots.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}

package studiolink

import (
	"encoding/json"
	"time"

	"github.com/ingex/studiolink/internal/jsonpath"
	"github.com/ingex/studiolink/internal/store"
)

// State is the connection state of a status channel as of its last poll.
type State string

const (
	// StateConnected means the last poll returned a usable status document.
	StateConnected State = store.StateConnected

	// StateDisconnected means the last poll failed: transport error,
	// non-200 status or an unparseable body.
	StateDisconnected State = store.StateDisconnected

	// StateVersionMismatch means the server answered but reported a version
	// other than the one configured with [WithVersionCheck].
	StateVersionMismatch State = store.StateVersionMismatch
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Snapshot is the last known status of one channel.
//
// Each poll produces a new Snapshot that fully replaces the previous one;
// nothing is merged. On failure Value is nil and Err says why, so render
// code can show a disconnected state by checking [Snapshot.Connected].
type Snapshot struct {
	// Channel is the status channel name.
	Channel string

	// Path is the status path that was polled, relative to the base URL.
	Path string

	// State is the connection state.
	State State

	// Value is the decoded JSON document, nil on failure.
	Value any

	// Body is the raw response body.
	Body []byte

	// StatusCode is the HTTP status code, 0 if no response arrived.
	StatusCode int

	// Latency is the request latency.
	Latency time.Duration

	// CheckedAt is when the poll completed.
	CheckedAt time.Time

	// Err is nil when connected. Use errors.Is with [ErrTransport],
	// [ErrMalformed] or [ErrVersionMismatch], or errors.As with
	// *[StatusError], to classify it.
	Err error

	// Fields holds the channel's display fields formatted from Value.
	Fields map[string]string
}

// Connected reports whether the snapshot carries a status document.
func (s Snapshot) Connected() bool {
	return s.State == StateConnected && s.Value != nil
}

// Field returns the value at a dot-notation path, e.g. "vtr.timecode".
func (s Snapshot) Field(path string) (any, bool) {
	return jsonpath.Lookup(s.Value, path)
}

// String returns the value at path rendered as text, or "" if absent.
func (s Snapshot) String(path string) string {
	return jsonpath.LookupString(s.Value, path)
}

// Int returns the numeric value at path truncated to an integer.
func (s Snapshot) Int(path string) (int64, bool) {
	v, ok := s.Field(path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// toStoreSnapshot converts to the storage representation.
func (s Snapshot) toStoreSnapshot() store.Snapshot {
	var errStr *string
	if s.Err != nil {
		msg := s.Err.Error()
		errStr = &msg
	}

	data := json.RawMessage("null")
	if s.Value != nil && json.Valid(s.Body) {
		data = json.RawMessage(copyBytes(s.Body))
	}

	return store.Snapshot{
		Channel:    s.Channel,
		Path:       s.Path,
		State:      string(s.State),
		StatusCode: s.StatusCode,
		LatencyMs:  s.Latency.Milliseconds(),
		CheckedAt:  s.CheckedAt,
		Error:      errStr,
		Data:       data,
		Fields:     copyMap(s.Fields),
	}
}

// copyBytes returns a copy of the byte slice, or nil if input is nil.
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

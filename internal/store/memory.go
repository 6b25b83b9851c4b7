package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/ingex/studiolink/internal/render"
)

// subscriberBuffer is the channel buffer given to each subscriber.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Snapshots are keyed by channel name. Change detection compares a
// fingerprint of the state, error, data and display fields; latency and
// check time are excluded since they differ on every poll.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
	rendered  *render.Cache

	subMu       sync.RWMutex
	subscribers map[chan Snapshot]struct{}
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots:   make(map[string]Snapshot),
		rendered:    render.NewCache(),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Update stores s and notifies subscribers if its content changed.
func (m *MemoryStore) Update(s Snapshot) bool {
	m.mu.Lock()
	m.snapshots[s.Channel] = s
	changed := m.rendered.Changed(s.Channel, fingerprint(s))
	m.mu.Unlock()

	if changed {
		m.notifySubscribers(s)
	}
	return changed
}

// Get returns the snapshot stored for channel.
func (m *MemoryStore) Get(channel string) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snapshots[channel]
	return s, ok
}

// GetAll returns a copy of all stored snapshots ordered by channel name.
func (m *MemoryStore) GetAll() []Snapshot {
	m.mu.RLock()
	results := make([]Snapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		results = append(results, s)
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Channel < results[j].Channel
	})
	return results
}

// Subscribe creates a new subscription and returns a channel for receiving
// changed snapshots. If its buffer fills, further updates are dropped for
// this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers is non-blocking: a full subscriber buffer drops the
// message for that subscriber only.
func (m *MemoryStore) notifySubscribers(s Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- s:
		default:
		}
	}
}

func fingerprint(s Snapshot) string {
	var b strings.Builder
	b.WriteString(s.State)
	b.WriteByte(0)
	if s.Error != nil {
		b.WriteString(*s.Error)
	}
	b.WriteByte(0)
	b.Write(s.Data)

	keys := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s.Fields[k])
	}
	return b.String()
}

// Package store keeps the last known status snapshot of every channel and
// fans changes out to subscribers.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Snapshot]: Storage representation of one channel's last poll
//
// Each poll fully replaces the previous snapshot for its channel. Subscribers
// are only notified when the rendered content of a channel changes, so an
// idle recorder polled every 500ms does not flood the relay's SSE clients.
// Sends to subscribers are non-blocking; a slow subscriber misses updates
// rather than stalling the poller that produced them.
package store

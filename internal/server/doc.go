// Package server provides the local relay HTTP server.
//
// The relay lets a browser console observe the studio without polling the
// backend itself:
//
//   - REST API: JSON snapshot list at "/api/status"
//   - Server-Sent Events: changed snapshots at "/api/sse"
//   - Commands: "/api/command/{channel}/{command}" forwards to the console's
//     gated dispatchers
//   - Settings: "/api/settings" reads and writes the IngexSettings cookie
//
// Routing uses go-chi. The server supports graceful shutdown via context
// cancellation, with a 5-second timeout for in-flight requests.
package server

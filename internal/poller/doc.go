// Package poller keeps a continuous best-effort view of a status endpoint.
//
// A [Poller] owns its interval, in-flight flag and last result; there are no
// process-wide timers. Each cycle issues one GET, decodes the JSON reply,
// hands a [Result] to the caller's [Handler] and only then schedules the next
// cycle, so at most one status request is outstanding per poller.
//
// Failures of any kind (transport, non-200 status, undecodable body, version
// mismatch) are delivered as a Result with a nil Value and retried at the
// same fixed cadence indefinitely. [WithBackoff] is available as optional
// hardening for slower networks.
package poller

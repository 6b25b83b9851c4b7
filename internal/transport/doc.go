// Package transport provides the HTTP plumbing shared by the status poller
// and the command dispatchers.
//
// The main components are:
//
//   - [Client]: pooled HTTP client with per-request timeouts and a 1MB body limit
//   - [Doer]: the interface pollers and dispatchers depend on
//   - [CheckStatus]: classifies a [Response] into the error taxonomy
//
// Failures fall into three classes here: [ErrTransport] (the exchange did not
// complete), [*StatusError] (a non-200 reply) and [ErrMalformed] (a body that
// could not be decoded by the caller).
package transport

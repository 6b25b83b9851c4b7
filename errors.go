package studiolink

import (
	"errors"

	"github.com/ingex/studiolink/internal/envelope"
	"github.com/ingex/studiolink/internal/poller"
	"github.com/ingex/studiolink/internal/transport"
)

// Failure classes reported in [Snapshot.Err] and [CommandResult.Err].
var (
	// ErrTransport marks network, DNS and timeout failures.
	ErrTransport = transport.ErrTransport

	// ErrMalformed marks a 200 response whose body could not be decoded,
	// either as a JSON status document or as an ok~/err~ envelope.
	ErrMalformed = transport.ErrMalformed

	// ErrMalformedEnvelope marks an asset reply with neither the ok~ nor
	// the err~ prefix. [IsMalformed] matches both malformed classes.
	ErrMalformedEnvelope = envelope.ErrMalformed

	// ErrVersionMismatch marks a status document from an unexpected server version.
	ErrVersionMismatch = poller.ErrVersionMismatch
)

// Errors returned before a command reaches its gate.
var (
	ErrUnknownChannel = errors.New("unknown command channel")
	ErrInvalidCommand = errors.New("invalid command")
)

// StatusError reports a non-200 HTTP response.
type StatusError = transport.StatusError

// ApplicationError is an err~ reply from an asset-management endpoint.
type ApplicationError = envelope.ApplicationError

// IsMalformed reports whether err is either kind of malformed reply.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrMalformedEnvelope)
}

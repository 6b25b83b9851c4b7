// Package envelope decodes the asset-management reply format.
//
// Asset-management endpoints do not answer in JSON. A reply is plain text
// starting with a literal tag: "ok~" followed by the payload, or "err~"
// followed by a human-readable message. The error path is never assumed to
// be well-formed JSON.
package envelope

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	okPrefix  = "ok~"
	errPrefix = "err~"

	// maxSnippet bounds how much of an unrecognised body ends up in errors.
	maxSnippet = 64
)

// ErrMalformed is returned for a body that carries neither tag.
var ErrMalformed = errors.New("malformed envelope")

// Kind tags a [Reply].
type Kind string

const (
	// KindOK marks a successful reply; Payload holds the result.
	KindOK Kind = "ok"

	// KindError marks an application-level failure; Payload holds the message.
	KindError Kind = "error"
)

// Reply is a decoded envelope.
type Reply struct {
	Kind    Kind   `json:"kind"`
	Payload string `json:"payload"`
}

// Err returns an [*ApplicationError] for error replies and nil otherwise.
func (r Reply) Err() error {
	if r.Kind != KindError {
		return nil
	}
	return &ApplicationError{Message: r.Payload}
}

// ApplicationError is a failure reported by the server inside an "err~" reply.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return "server reported an error"
	}
	return "server reported an error: " + e.Message
}

// Parse decodes body by matching the literal prefix. Leading whitespace
// emitted by CGI wrappers is ignored; the payload is returned verbatim.
func Parse(body []byte) (Reply, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")

	switch {
	case bytes.HasPrefix(trimmed, []byte(okPrefix)):
		return Reply{Kind: KindOK, Payload: string(trimmed[len(okPrefix):])}, nil
	case bytes.HasPrefix(trimmed, []byte(errPrefix)):
		return Reply{Kind: KindError, Payload: string(trimmed[len(errPrefix):])}, nil
	default:
		return Reply{}, fmt.Errorf("%w: %q", ErrMalformed, snippet(trimmed))
	}
}

// Check parses body and folds an error reply into the returned error, so
// callers that only care about success can use a single error check.
func Check(body []byte) (Reply, error) {
	reply, err := Parse(body)
	if err != nil {
		return reply, err
	}
	return reply, reply.Err()
}

func snippet(b []byte) string {
	if len(b) > maxSnippet {
		return string(b[:maxSnippet]) + "..."
	}
	return string(b)
}

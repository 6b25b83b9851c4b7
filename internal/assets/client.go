// Package assets talks to the asset-management endpoints.
//
// Requests carry their input as a jsonIn form parameter and are answered
// with an ok~/err~ envelope. Unlike the VTR and replay panels, the asset
// pages surface failures to the operator: HTTP errors, malformed replies and
// err~ replies are passed to a message-box reporter. Transport failures are
// only logged.
package assets

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ingex/studiolink/internal/command"
	"github.com/ingex/studiolink/internal/envelope"
	"github.com/ingex/studiolink/internal/studio"
	"github.com/ingex/studiolink/internal/transport"
)

// MessageBox shows a failure to the operator.
type MessageBox func(operation string, err error)

// Client issues asset-management calls through its own command gate.
type Client struct {
	dispatcher *command.Dispatcher
}

// NewClient creates a [Client]. box may be nil, in which case failures are
// only logged.
func NewClient(baseURL string, doer transport.Doer, logger *slog.Logger, box MessageBox, opts ...command.Option) *Client {
	opts = append(opts,
		command.WithResponseCheck(checkEnvelope),
		command.WithErrorReporter(func(o command.Outcome) {
			if box == nil || errors.Is(o.Err, transport.ErrTransport) {
				return
			}
			box(o.Command.Path, o.Err)
		}),
	)
	return &Client{
		dispatcher: command.NewDispatcher("assets", baseURL, doer, logger, opts...),
	}
}

// Call posts in as jsonIn to the named operation. reply, if set, receives
// the payload of an ok~ reply; failures go to the message box instead.
// done, if set, runs after reply with the outcome of every completed call.
//
// Call returns false if a previous asset call is still in flight, and an
// error only if the request could not be built.
func (c *Client) Call(ctx context.Context, operation string, in any, reply func(payload string), done func(command.Outcome)) (bool, error) {
	path, body, err := studio.AssetCall(operation, in)
	if err != nil {
		return false, err
	}

	cmd := command.Command{
		Path:   path,
		Method: http.MethodPost,
		Body:   body,
	}
	if reply != nil || done != nil {
		cmd.Done = func(o command.Outcome) {
			if reply != nil && o.Err == nil {
				if r, err := envelope.Parse(o.Response.Body); err == nil {
					reply(r.Payload)
				}
			}
			if done != nil {
				done(o)
			}
		}
	}

	return c.dispatcher.Send(ctx, cmd), nil
}

// Enabled reports whether a new call would be sent.
func (c *Client) Enabled() bool {
	return c.dispatcher.Enabled()
}

// Wait blocks until in-flight calls complete.
func (c *Client) Wait() {
	c.dispatcher.Wait()
}

func checkEnvelope(resp transport.Response) error {
	_, err := envelope.Check(resp.Body)
	return err
}

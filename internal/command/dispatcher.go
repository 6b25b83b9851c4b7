// Package command serializes user actions into control requests.
//
// A [Dispatcher] owns one gate. While a command is in flight every further
// [Dispatcher.Send] is dropped silently; there is no queue. This keeps held
// keys and shuttle knobs from flooding a VTR or replay engine with requests.
// Separate dispatchers (VTR control, replay control, tape cache, assets) are
// independent and may each have one command in flight.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ingex/studiolink/internal/transport"
)

const defaultTimeout = 5 * time.Second

// Command is one control request relative to the dispatcher's base URL.
type Command struct {
	// Path is the request path including any query string.
	Path string

	// Method defaults to GET.
	Method string

	// Body is sent form-encoded when non-empty.
	Body string

	// Done, if set, is called once the command completes, after the gate
	// has re-opened.
	Done func(Outcome)
}

// Outcome describes a completed command.
type Outcome struct {
	Command   Command
	RequestID string
	Response  transport.Response

	// Err is nil on success. It is the transport error, a
	// *transport.StatusError, or whatever the response check returned.
	Err error
}

// ResponseCheck inspects a completed 200 response and returns an error if
// the payload reports a failure.
type ResponseCheck func(transport.Response) error

// Option configures a [Dispatcher].
type Option func(*Dispatcher)

// WithTimeout bounds each command request. Defaults to 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithBeforeSend registers a hook run synchronously just before a command is
// issued, after the gate has closed. Consoles use it to move keyboard focus
// to a neutral anchor so that key repeats are not captured by the control
// that was just pressed. A panicking hook is logged and the command is still
// sent.
func WithBeforeSend(fn func()) Option {
	return func(d *Dispatcher) {
		d.before = fn
	}
}

// WithErrorReporter surfaces failed commands to the operator. Without it,
// failures are logged and otherwise swallowed.
func WithErrorReporter(fn func(Outcome)) Option {
	return func(d *Dispatcher) {
		d.report = fn
	}
}

// WithResponseCheck installs an application-level check for 200 responses.
func WithResponseCheck(check ResponseCheck) Option {
	return func(d *Dispatcher) {
		d.check = check
	}
}

// Dispatcher issues one-shot commands with at most one in flight.
//
// Send is safe for concurrent use.
type Dispatcher struct {
	name    string
	baseURL string
	client  transport.Doer
	logger  *slog.Logger
	timeout time.Duration
	before  func()
	report  func(Outcome)
	check   ResponseCheck

	busy atomic.Bool
	wg   sync.WaitGroup
}

// NewDispatcher creates a [Dispatcher] for the named command channel.
// baseURL is prepended to every command path. A nil logger falls back to
// slog.Default().
func NewDispatcher(name, baseURL string, client transport.Doer, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the command channel name.
func (d *Dispatcher) Name() string {
	return d.name
}

// Enabled reports whether the gate is open, i.e. no command is in flight.
func (d *Dispatcher) Enabled() bool {
	return !d.busy.Load()
}

// Send issues cmd asynchronously and reports whether it was sent.
//
// If a previous command is still in flight the call is dropped and Send
// returns false; nothing is queued and no error is surfaced. The request
// is detached from ctx cancellation so that a command, once sent, runs to
// completion or to the dispatcher timeout.
func (d *Dispatcher) Send(ctx context.Context, cmd Command) bool {
	if !d.busy.CompareAndSwap(false, true) {
		d.logger.Debug("command dropped, previous command in flight",
			"channel", d.name,
			"path", cmd.Path,
		)
		return false
	}

	if d.before != nil {
		d.safeCall("before-send hook", d.before)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)

	id := uuid.NewString()
	req := transport.Request{
		Method:  cmd.Method,
		URL:     d.baseURL + cmd.Path,
		Headers: map[string]string{"X-Request-ID": id},
		Timeout: d.timeout,
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if cmd.Body != "" {
		req.Body = cmd.Body
		req.ContentType = "application/x-www-form-urlencoded"
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		resp := d.client.Do(ctx, req)
		outcome := Outcome{
			Command:   cmd,
			RequestID: id,
			Response:  resp,
			Err:       d.classify(resp),
		}

		// the gate re-opens on any completion
		d.busy.Store(false)

		d.finish(outcome)
	}()
	return true
}

// Wait blocks until every command sent so far has completed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) classify(resp transport.Response) error {
	if err := transport.CheckStatus(resp); err != nil {
		return err
	}
	if d.check != nil {
		return d.check(resp)
	}
	return nil
}

// finish logs the outcome and runs the reporter and completion callbacks
// with panic recovery.
func (d *Dispatcher) finish(o Outcome) {
	attrs := []any{
		"channel", d.name,
		"path", o.Command.Path,
		"request_id", o.RequestID,
		"status_code", o.Response.StatusCode,
		"latency_ms", o.Response.Latency.Milliseconds(),
	}
	if o.Err != nil {
		d.logger.Warn("command failed", append(attrs, "error", o.Err.Error())...)
		if d.report != nil {
			d.safeCall("error reporter", func() { d.report(o) })
		}
	} else {
		d.logger.Debug("command completed", attrs...)
	}

	if o.Command.Done != nil {
		d.safeCall("completion callback", func() { o.Command.Done(o) })
	}
}

func (d *Dispatcher) safeCall(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(what+" panicked",
				"channel", d.name,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()
	fn()
}

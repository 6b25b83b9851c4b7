package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ingex/studiolink/internal/jsonpath"
	"github.com/ingex/studiolink/internal/transport"
)

// ErrVersionMismatch is reported when the server's version tag differs from
// the version the console was built against.
var ErrVersionMismatch = errors.New("server version mismatch")

// maxBackoffShift caps the doubling so the delay computation cannot overflow.
const maxBackoffShift = 16

// Result is the outcome of one poll cycle.
//
// Value holds the decoded JSON document on success and is nil on any
// failure, so handlers can render a disconnected state by checking it.
type Result struct {
	// Value is the decoded status document, nil on failure.
	Value any

	// Body is the raw response body, possibly empty.
	Body []byte

	// StatusCode is the HTTP status, zero when no response arrived.
	StatusCode int

	// Latency is the time the request took.
	Latency time.Duration

	// CheckedAt is when the cycle completed.
	CheckedAt time.Time

	// Err classifies the failure: transport.ErrTransport, *transport.StatusError,
	// transport.ErrMalformed or ErrVersionMismatch.
	Err error
}

// Handler receives every poll result on the poller's goroutine. The next
// request is not issued until the handler returns.
type Handler func(Result)

// AlertFunc is raised once per run of version mismatches.
type AlertFunc func(expected, got string)

// Option configures a [Poller].
type Option func(*Poller)

// WithTimeout bounds each status request.
func WithTimeout(d time.Duration) Option {
	return func(p *Poller) {
		p.timeout = d
	}
}

// WithHeaders sets headers sent with every status request.
func WithHeaders(headers map[string]string) Option {
	return func(p *Poller) {
		p.headers = headers
	}
}

// WithVersionCheck compares the value at field (dot notation) against
// expected on every successful response. A mismatch is delivered as a
// failure and alert is called on the first mismatch only; the next matching
// response re-arms the alert.
func WithVersionCheck(field, expected string, alert AlertFunc) Option {
	return func(p *Poller) {
		p.versionField = field
		p.expectedVersion = expected
		p.alert = alert
	}
}

// WithBackoff lets the delay double after each consecutive failure, up to
// max. A success restores the configured interval. Without this option the
// poller retries at the fixed interval forever.
func WithBackoff(max time.Duration) Option {
	return func(p *Poller) {
		p.maxBackoff = max
	}
}

// Poller keeps a best-effort view of one status endpoint.
//
// A Poller issues one request, waits for it to complete, hands the result
// to its [Handler], then sleeps for the interval before the next request.
// Scheduling from completion rather than from a wall-clock ticker bounds it
// to a single request in flight.
//
// Start and Stop are safe for concurrent use.
type Poller struct {
	client          transport.Doer
	logger          *slog.Logger
	timeout         time.Duration
	headers         map[string]string
	versionField    string
	expectedVersion string
	alert           AlertFunc
	maxBackoff      time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	// only touched from the polling goroutine
	alerted bool
}

// New creates a [Poller] that performs requests through client.
// A nil logger falls back to slog.Default().
func New(client transport.Doer, logger *slog.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		client: client,
		logger: logger,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling endpoint every interval in a background goroutine.
//
// The first request is issued immediately. Start returns false without
// doing anything if the poller was already started, was stopped, or the
// interval is not positive. If ctx is nil, context.Background() is used.
func (p *Poller) Start(ctx context.Context, interval time.Duration, endpoint string, onResult Handler) bool {
	p.mu.Lock()
	if p.started || p.stopped || interval <= 0 {
		p.mu.Unlock()
		return false
	}
	p.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	go p.run(ctx, interval, endpoint, onResult)
	return true
}

// Stop cancels polling and waits for the polling goroutine to exit.
//
// A request in flight is abandoned and its result is not delivered.
// Stop is idempotent and safe to call before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	started := p.started
	if !p.stopped {
		p.stopped = true
		if p.cancel != nil {
			p.cancel()
		}
	}
	p.mu.Unlock()

	if started {
		<-p.done
	}
}

func (p *Poller) run(ctx context.Context, interval time.Duration, endpoint string, onResult Handler) {
	defer close(p.done)

	failures := 0
	for {
		result := p.pollOnce(ctx, endpoint)
		if ctx.Err() != nil {
			return
		}

		p.deliver(onResult, result, endpoint)

		if result.Err != nil {
			failures++
		} else {
			failures = 0
		}

		timer := time.NewTimer(p.delay(interval, failures))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// pollOnce performs exactly one status request and classifies the outcome.
func (p *Poller) pollOnce(ctx context.Context, endpoint string) Result {
	resp := p.client.Do(ctx, transport.Request{
		URL:     endpoint,
		Headers: p.headers,
		Timeout: p.timeout,
	})

	result := Result{
		Body:       resp.Body,
		StatusCode: resp.StatusCode,
		Latency:    resp.Latency,
		CheckedAt:  time.Now(),
	}

	if err := transport.CheckStatus(resp); err != nil {
		result.Err = err
		return result
	}

	var value any
	if err := json.Unmarshal(resp.Body, &value); err != nil {
		result.Err = fmt.Errorf("%w: %w", transport.ErrMalformed, err)
		return result
	}
	if value == nil {
		result.Err = fmt.Errorf("%w: empty JSON document", transport.ErrMalformed)
		return result
	}

	if err := p.checkVersion(value); err != nil {
		result.Err = err
		return result
	}

	result.Value = value
	return result
}

// checkVersion applies the optional version guard. It must only be called
// from the polling goroutine.
func (p *Poller) checkVersion(value any) error {
	if p.expectedVersion == "" {
		return nil
	}

	got := jsonpath.LookupString(value, p.versionField)
	if got == p.expectedVersion {
		p.alerted = false
		return nil
	}

	if !p.alerted {
		p.alerted = true
		p.raiseAlert(got)
	}
	return fmt.Errorf("%w: server reports %q, console expects %q", ErrVersionMismatch, got, p.expectedVersion)
}

func (p *Poller) raiseAlert(got string) {
	p.logger.Warn("status version mismatch",
		"expected", p.expectedVersion,
		"got", got,
	)
	if p.alert == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("version alert panicked", "panic", fmt.Sprintf("%v", r))
		}
	}()
	p.alert(p.expectedVersion, got)
}

// deliver calls the handler with panic recovery. A panicking handler is
// logged with a correlation ID and polling continues.
func (p *Poller) deliver(onResult Handler, result Result, endpoint string) {
	if onResult == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("status handler panic",
				"correlation_id", uuid.NewString(),
				"endpoint", endpoint,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	onResult(result)
}

// delay returns the wait before the next cycle. Without backoff it is
// always interval.
func (p *Poller) delay(interval time.Duration, failures int) time.Duration {
	if p.maxBackoff <= interval || failures == 0 {
		return interval
	}

	shift := failures
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	d := interval << shift
	if d <= 0 || d > p.maxBackoff {
		return p.maxBackoff
	}
	return d
}

package studiolink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ingex/studiolink/internal/assets"
	"github.com/ingex/studiolink/internal/command"
	"github.com/ingex/studiolink/internal/poller"
	"github.com/ingex/studiolink/internal/server"
	"github.com/ingex/studiolink/internal/store"
	"github.com/ingex/studiolink/internal/studio"
	"github.com/ingex/studiolink/internal/transport"
)

const defaultCommandTimeout = 5 * time.Second

// CommandChannel names an independent command gate.
type CommandChannel string

const (
	CommandVTR    CommandChannel = "vtr"
	CommandReplay CommandChannel = "replay"
	CommandTape   CommandChannel = "tape"
	CommandAssets CommandChannel = "assets"
)

// CommandResult describes a completed command.
type CommandResult struct {
	Channel    CommandChannel
	Path       string
	RequestID  string
	StatusCode int
	Latency    time.Duration

	// Err is nil on success, otherwise classified like [Snapshot.Err], plus
	// *[ApplicationError] for err~ asset replies.
	Err error
}

// Console polls studio status channels and sends gated commands.
//
// A Console owns one poller per [StatusChannel] and one command gate per
// [CommandChannel]. Each gate allows a single command in flight; commands
// issued while it is closed are dropped, not queued. Gates are
// independent of each other and of status polling.
//
// The typical lifecycle is:
//
//	c, err := studiolink.New(
//	    studiolink.WithBaseURL("http://studio:7000"),
//	    studiolink.WithStatusChannel(vtr),
//	)
//	if err != nil {
//	    slog.Error("failed to create console", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	c.Start(ctx) // blocks until context cancelled
//
// Commands may be sent whether or not Start is running.
type Console struct {
	baseURL          string
	channels         []StatusChannel
	port             int
	logger           *slog.Logger
	statusCallbacks  []func(Snapshot)
	commandCallbacks []func(CommandResult)
	alert            func(channel, expected, got string)
	backoff          time.Duration

	client *transport.Client
	store  *store.MemoryStore

	vtr    *command.Dispatcher
	replay *command.Dispatcher
	tape   *command.Dispatcher
	assets *assets.Client

	mu      sync.Mutex
	started bool
}

// New creates a [Console] with the given options.
//
// [WithBaseURL] is required. Channels are optional: a console with no
// status channels only sends commands.
//
// Returns an error if an option is invalid, the base URL is missing, or
// two channels share a name.
func New(opts ...Option) (*Console, error) {
	cfg := &consoleConfig{
		commandTimeout: defaultCommandTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.baseURL == "" {
		return nil, errors.New("base URL is required")
	}

	seen := make(map[string]bool, len(cfg.channels))
	for _, ch := range cfg.channels {
		if ch.name == "" {
			return nil, errors.New("status channels must be created with NewStatusChannel")
		}
		if seen[ch.name] {
			return nil, fmt.Errorf("duplicate status channel name: %q", ch.name)
		}
		seen[ch.name] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Console{
		baseURL:          strings.TrimRight(cfg.baseURL, "/"),
		channels:         cfg.channels,
		port:             cfg.port,
		logger:           logger,
		statusCallbacks:  cfg.statusCallbacks,
		commandCallbacks: cfg.commandCallbacks,
		alert:            cfg.alert,
		backoff:          cfg.backoff,
		client:           transport.NewClient(),
		store:            store.NewMemoryStore(),
	}

	cmdOpts := []command.Option{command.WithTimeout(cfg.commandTimeout)}
	if cfg.focus != nil {
		cmdOpts = append(cmdOpts, command.WithBeforeSend(cfg.focus))
	}

	c.vtr = command.NewDispatcher(string(CommandVTR), c.baseURL, c.client, logger, cmdOpts...)
	c.replay = command.NewDispatcher(string(CommandReplay), c.baseURL, c.client, logger, cmdOpts...)
	c.tape = command.NewDispatcher(string(CommandTape), c.baseURL, c.client, logger, cmdOpts...)
	c.assets = assets.NewClient(c.baseURL, c.client, logger, cfg.messageBox, cmdOpts...)

	return c, nil
}

// Start polls every status channel and, if a port is configured, serves
// the relay API.
//
// Start blocks until ctx is cancelled. Each channel is polled immediately,
// then again an interval after each completed poll. On return every poller
// has stopped and every command in flight has completed.
//
// Returns nil on graceful shutdown, or an error if the relay server fails
// to start or the console is already running.
func (c *Console) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("console already started")
	}
	c.started = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
	}()

	if ctx.Err() != nil {
		return nil
	}

	c.logger.Info("console starting",
		"base_url", c.baseURL,
		"channel_count", len(c.channels),
	)

	pollers := make([]*poller.Poller, 0, len(c.channels))
	cleanup := func() {
		for _, p := range pollers {
			p.Stop()
		}
		c.Wait()
		c.client.Close()
	}

	for _, ch := range c.channels {
		p := c.newPoller(ch)
		p.Start(ctx, ch.interval, c.baseURL+ch.path, func(r poller.Result) {
			c.handleResult(ch, r)
		})
		pollers = append(pollers, p)

		c.logger.Info("polling channel",
			"channel", ch.name,
			"path", ch.path,
			"interval", ch.interval.String(),
		)
	}

	if c.port > 0 {
		relay := server.NewServer(c.store, c, c.port, c.logger)
		if err := relay.Start(ctx); err != nil {
			cleanup()
			return fmt.Errorf("failed to start relay server: %w", err)
		}
	}

	<-ctx.Done()
	cleanup()
	c.logger.Info("console stopped")
	return nil
}

func (c *Console) newPoller(ch StatusChannel) *poller.Poller {
	opts := []poller.Option{
		poller.WithTimeout(ch.timeout),
		poller.WithHeaders(copyMap(ch.headers)),
	}
	if ch.expectedVersion != "" {
		name := ch.name
		opts = append(opts, poller.WithVersionCheck(ch.versionField, ch.expectedVersion, func(expected, got string) {
			if c.alert != nil {
				c.alert(name, expected, got)
			}
		}))
	}
	if c.backoff > 0 {
		opts = append(opts, poller.WithBackoff(c.backoff))
	}
	return poller.New(c.client, c.logger.With("channel", ch.name), opts...)
}

// handleResult runs on the channel's polling goroutine.
func (c *Console) handleResult(ch StatusChannel, r poller.Result) {
	snap := Snapshot{
		Channel:    ch.name,
		Path:       ch.path,
		State:      stateOf(r),
		Value:      r.Value,
		Body:       copyBytes(r.Body),
		StatusCode: r.StatusCode,
		Latency:    r.Latency,
		CheckedAt:  r.CheckedAt,
		Err:        r.Err,
		Fields:     renderFields(r.Value, ch.display),
	}

	// store first so callbacks observe the persisted state
	changed := c.store.Update(snap.toStoreSnapshot())

	for _, cb := range c.statusCallbacks {
		invokeCallbackSafe(cb, snap, c.logger)
	}

	logAttrs := []any{
		"channel", snap.Channel,
		"state", snap.State.String(),
		"status_code", snap.StatusCode,
		"latency_ms", snap.Latency.Milliseconds(),
	}
	switch {
	case snap.Err != nil && changed:
		c.logger.Warn("status poll failed", append(logAttrs, "error", snap.Err.Error())...)
	case changed:
		c.logger.Info("status changed", logAttrs...)
	default:
		c.logger.Debug("status poll completed", logAttrs...)
	}
}

func stateOf(r poller.Result) State {
	switch {
	case r.Err == nil:
		return StateConnected
	case errors.Is(r.Err, poller.ErrVersionMismatch):
		return StateVersionMismatch
	default:
		return StateDisconnected
	}
}

// Channels returns a copy of the configured status channels.
func (c *Console) Channels() []StatusChannel {
	cp := make([]StatusChannel, len(c.channels))
	copy(cp, c.channels)
	return cp
}

// BaseURL returns the studio backend URL.
func (c *Console) BaseURL() string {
	return c.baseURL
}

// Port returns the relay port, 0 if the relay is disabled.
func (c *Console) Port() int {
	return c.port
}

// VTR sends /vtr/control/<cmd>, e.g. "play", "stop" or "fastforward".
//
// It reports whether the command was sent; false means a previous VTR
// command is still in flight and this one was dropped.
func (c *Console) VTR(ctx context.Context, cmd string) (bool, error) {
	path, err := studio.VTRControl(cmd)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return c.send(ctx, CommandVTR, c.vtr, command.Command{Path: path}), nil
}

// Replay sends /confreplay/<cmd>?<params>, e.g. "seek" with offset and
// whence parameters. Dropped like [Console.VTR] while a replay command is
// in flight.
func (c *Console) Replay(ctx context.Context, cmd string, params url.Values) (bool, error) {
	path, err := studio.ReplayCommand(cmd, params)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return c.send(ctx, CommandReplay, c.replay, command.Command{Path: path}), nil
}

// DeleteCacheItems posts the tape cache item ids for deletion.
func (c *Console) DeleteCacheItems(ctx context.Context, ids []string) (bool, error) {
	path, body, err := studio.DeleteCacheItems(ids)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return c.send(ctx, CommandTape, c.tape, command.Command{
		Path:   path,
		Method: http.MethodPost,
		Body:   body,
	}), nil
}

// Asset calls an asset-management operation with in encoded as jsonIn.
// reply, if set, receives the payload of an ok~ reply. Failures other than
// transport errors go to the message box installed with [WithMessageBox].
// Command callbacks see every completed call, reply or failure.
func (c *Console) Asset(ctx context.Context, operation string, in any, reply func(payload string)) (bool, error) {
	var done func(command.Outcome)
	if len(c.commandCallbacks) > 0 {
		done = func(o command.Outcome) {
			c.notifyCommand(CommandAssets, o)
		}
	}
	sent, err := c.assets.Call(ctx, operation, in, reply, done)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return sent, nil
}

// Command dispatches a command by channel name. It is the entry point for
// commands relayed over HTTP:
//
//   - vtr: command is the control name
//   - replay: command plus params as the query string
//   - tape: command must be "deleteitems" with a comma-separated items param
//   - assets: command is the operation, params["jsonIn"] the JSON input
func (c *Console) Command(ctx context.Context, channel, cmd string, params url.Values) (bool, error) {
	switch CommandChannel(channel) {
	case CommandVTR:
		return c.VTR(ctx, cmd)
	case CommandReplay:
		return c.Replay(ctx, cmd, params)
	case CommandTape:
		if cmd != "deleteitems" {
			return false, fmt.Errorf("%w: tape supports only deleteitems, got %q", ErrInvalidCommand, cmd)
		}
		return c.DeleteCacheItems(ctx, splitItems(params.Get("items")))
	case CommandAssets:
		in := params.Get("jsonIn")
		if in == "" {
			in = "{}"
		}
		if !json.Valid([]byte(in)) {
			return false, fmt.Errorf("%w: jsonIn is not valid JSON", ErrInvalidCommand)
		}
		return c.Asset(ctx, cmd, json.RawMessage(in), nil)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
}

// CommandEnabled reports whether a command sent on ch now would go out.
func (c *Console) CommandEnabled(ch CommandChannel) bool {
	switch ch {
	case CommandVTR:
		return c.vtr.Enabled()
	case CommandReplay:
		return c.replay.Enabled()
	case CommandTape:
		return c.tape.Enabled()
	case CommandAssets:
		return c.assets.Enabled()
	default:
		return false
	}
}

// Wait blocks until every command sent so far has completed.
func (c *Console) Wait() {
	c.vtr.Wait()
	c.replay.Wait()
	c.tape.Wait()
	c.assets.Wait()
}

// Snapshots returns the last snapshot of every channel that has completed
// a poll, ordered by channel name.
//
// Values are decoded afresh from the stored document, so callers may modify
// them freely. Err carries the failure message only; use a status callback
// to classify failures with errors.Is.
func (c *Console) Snapshots() []Snapshot {
	stored := c.store.GetAll()
	out := make([]Snapshot, 0, len(stored))
	for _, s := range stored {
		out = append(out, c.fromStoreSnapshot(s))
	}
	return out
}

// Snapshot returns the last snapshot of one channel.
func (c *Console) Snapshot(channel string) (Snapshot, bool) {
	s, ok := c.store.Get(channel)
	if !ok {
		return Snapshot{}, false
	}
	return c.fromStoreSnapshot(s), true
}

func (c *Console) send(ctx context.Context, ch CommandChannel, d *command.Dispatcher, cmd command.Command) bool {
	if len(c.commandCallbacks) > 0 {
		cmd.Done = func(o command.Outcome) {
			c.notifyCommand(ch, o)
		}
	}
	return d.Send(ctx, cmd)
}

func (c *Console) notifyCommand(ch CommandChannel, o command.Outcome) {
	result := CommandResult{
		Channel:    ch,
		Path:       o.Command.Path,
		RequestID:  o.RequestID,
		StatusCode: o.Response.StatusCode,
		Latency:    o.Response.Latency,
		Err:        o.Err,
	}
	for _, cb := range c.commandCallbacks {
		cb(result)
	}
}

func (c *Console) fromStoreSnapshot(s store.Snapshot) Snapshot {
	snap := Snapshot{
		Channel:    s.Channel,
		Path:       s.Path,
		State:      State(s.State),
		StatusCode: s.StatusCode,
		Latency:    time.Duration(s.LatencyMs) * time.Millisecond,
		CheckedAt:  s.CheckedAt,
		Fields:     copyMap(s.Fields),
	}
	if s.Error != nil {
		snap.Err = errors.New(*s.Error)
	}
	if len(s.Data) > 0 {
		snap.Body = copyBytes(s.Data)
		if err := json.Unmarshal(s.Data, &snap.Value); err != nil {
			c.logger.Debug("stored status document did not decode",
				"channel", s.Channel,
				"error", err.Error(),
			)
		}
	}
	return snap
}

func splitItems(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// invokeCallbackSafe calls a status callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Snapshot), snap Snapshot, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("status callback panicked",
				"panic", r,
				"channel", snap.Channel,
			)
		}
	}()
	cb(snap)
}

package studiolink

import (
	"errors"
	"log/slog"
	"net/url"
	"time"
)

// consoleConfig holds mutable state during Console construction.
type consoleConfig struct {
	baseURL          string
	channels         []StatusChannel
	port             int
	logger           *slog.Logger
	statusCallbacks  []func(Snapshot)
	commandCallbacks []func(CommandResult)
	alert            func(channel, expected, got string)
	messageBox       func(operation string, err error)
	focus            func()
	commandTimeout   time.Duration
	backoff          time.Duration
}

// Option configures a [Console] during construction.
//
// Options return an error if validation fails.
type Option func(*consoleConfig) error

// WithBaseURL sets the studio backend, e.g. "http://studio-host:7000".
// Status and command paths are resolved against it. Required.
func WithBaseURL(rawURL string) Option {
	return func(cfg *consoleConfig) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return errors.New("invalid base URL: " + err.Error())
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("base URL must have an http:// or https:// scheme")
		}
		if u.Host == "" {
			return errors.New("base URL must have a host")
		}
		cfg.baseURL = rawURL
		return nil
	}
}

// WithStatusChannel adds a [StatusChannel] to poll. Channel names must be
// unique.
func WithStatusChannel(ch StatusChannel) Option {
	return func(cfg *consoleConfig) error {
		cfg.channels = append(cfg.channels, ch)
		return nil
	}
}

// WithStatusChannels adds several channels at once.
func WithStatusChannels(channels ...StatusChannel) Option {
	return func(cfg *consoleConfig) error {
		cfg.channels = append(cfg.channels, channels...)
		return nil
	}
}

// WithPort serves the relay API (status, SSE, commands, settings) on the
// given port while the console runs. 0, the default, disables the relay.
//
// Returns an error if the port is outside 0-65535.
func WithPort(port int) Option {
	return func(cfg *consoleConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *consoleConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStatusCallback registers a function called with every snapshot,
// after the snapshot has been stored.
//
// Callbacks run on the channel's polling goroutine and the next poll of
// that channel waits for them, so they must not block. Multiple callbacks
// run in registration order. Panics are recovered and logged.
//
// Nil callbacks are silently ignored.
func WithStatusCallback(cb func(Snapshot)) Option {
	return func(cfg *consoleConfig) error {
		if cb != nil {
			cfg.statusCallbacks = append(cfg.statusCallbacks, cb)
		}
		return nil
	}
}

// WithCommandCallback registers a function called when any command
// completes, after its gate has re-opened. Nil callbacks are ignored.
func WithCommandCallback(cb func(CommandResult)) Option {
	return func(cfg *consoleConfig) error {
		if cb != nil {
			cfg.commandCallbacks = append(cfg.commandCallbacks, cb)
		}
		return nil
	}
}

// WithAlertHandler receives the user-facing version mismatch alert. It is
// raised once per run of mismatching responses on a channel.
func WithAlertHandler(fn func(channel, expected, got string)) Option {
	return func(cfg *consoleConfig) error {
		cfg.alert = fn
		return nil
	}
}

// WithMessageBox receives asset-management failures: HTTP errors,
// malformed replies and err~ replies. Transport failures are only logged,
// and other command channels swallow failures.
func WithMessageBox(fn func(operation string, err error)) Option {
	return func(cfg *consoleConfig) error {
		cfg.messageBox = fn
		return nil
	}
}

// WithFocusHook registers a function run just before any command is sent,
// typically to move keyboard focus away from the control that fired it.
func WithFocusHook(fn func()) Option {
	return func(cfg *consoleConfig) error {
		cfg.focus = fn
		return nil
	}
}

// WithCommandTimeout bounds each command request. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithCommandTimeout(d time.Duration) Option {
	return func(cfg *consoleConfig) error {
		if d <= 0 {
			return errors.New("command timeout must be positive")
		}
		cfg.commandTimeout = d
		return nil
	}
}

// WithBackoff lets status polling slow down after consecutive failures,
// doubling the delay up to max. Without it a failed channel is retried at
// its normal interval forever.
//
// Returns an error if max is zero or negative.
func WithBackoff(max time.Duration) Option {
	return func(cfg *consoleConfig) error {
		if max <= 0 {
			return errors.New("backoff maximum must be positive")
		}
		cfg.backoff = max
		return nil
	}
}

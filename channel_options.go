package studiolink

import (
	"errors"
	"fmt"
	"time"
)

// channelConfig holds mutable state during channel construction.
type channelConfig struct {
	interval        time.Duration
	timeout         time.Duration
	headers         map[string]string
	versionField    string
	expectedVersion string
	display         []DisplayField
}

// ChannelOption configures a [StatusChannel] during construction.
//
// Built-in options: [WithInterval], [WithTimeout], [WithHeaders],
// [WithVersionCheck], [WithDisplay].
type ChannelOption func(*channelConfig) error

// WithInterval sets the delay between polls. The next poll is scheduled
// only after the previous one completed and its snapshot was handled, so
// the effective period is the interval plus the request latency.
//
// Defaults to 1 second. Returns an error outside [MinPollInterval] and
// [MaxPollInterval].
func WithInterval(d time.Duration) ChannelOption {
	return func(cfg *channelConfig) error {
		if d < MinPollInterval {
			return fmt.Errorf("interval must be at least %s", MinPollInterval)
		}
		if d > MaxPollInterval {
			return fmt.Errorf("interval must not exceed %s", MaxPollInterval)
		}
		cfg.interval = d
		return nil
	}
}

// WithTimeout sets the status request timeout. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) ChannelOption {
	return func(cfg *channelConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithHeaders adds custom HTTP headers to status requests.
//
// Accepts variadic key-value pairs. Returns an error if an odd number of
// arguments is provided.
func WithHeaders(keyValues ...string) ChannelOption {
	return func(cfg *channelConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithVersionCheck guards against talking to a different server build.
//
// The value at field (dot notation) is compared with expected on every
// successful poll. A mismatch produces a [StateVersionMismatch] snapshot
// and raises the console's alert once; the alert re-arms after the next
// matching response.
//
// Returns an error if field or expected is empty.
func WithVersionCheck(field, expected string) ChannelOption {
	return func(cfg *channelConfig) error {
		if field == "" {
			return errors.New("version field cannot be empty")
		}
		if expected == "" {
			return errors.New("expected version cannot be empty")
		}
		cfg.versionField = field
		cfg.expectedVersion = expected
		return nil
	}
}

// WithDisplay adds display fields rendered into [Snapshot.Fields].
//
// Returns an error if a field has no label or path, a label repeats, or
// the format is unknown.
func WithDisplay(fields ...DisplayField) ChannelOption {
	return func(cfg *channelConfig) error {
		seen := make(map[string]bool, len(cfg.display)+len(fields))
		for _, d := range cfg.display {
			seen[d.Label] = true
		}
		for _, f := range fields {
			if f.Label == "" {
				return errors.New("display field label cannot be empty")
			}
			if f.Path == "" {
				return fmt.Errorf("display field %q: path cannot be empty", f.Label)
			}
			if seen[f.Label] {
				return fmt.Errorf("duplicate display field label %q", f.Label)
			}
			seen[f.Label] = true

			format, err := ParseFieldFormat(string(f.Format))
			if err != nil {
				return fmt.Errorf("display field %q: %w", f.Label, err)
			}
			f.Format = format
			cfg.display = append(cfg.display, f)
		}
		return nil
	}
}

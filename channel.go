package studiolink

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/ingex/studiolink/internal/studio"
)

const (
	defaultChannelInterval = time.Second
	defaultChannelTimeout  = 5 * time.Second

	// MinPollInterval is the shortest accepted status interval.
	MinPollInterval = 100 * time.Millisecond

	// MaxPollInterval is the longest accepted status interval.
	MaxPollInterval = time.Hour
)

// StatusChannel is one status endpoint the console keeps polling.
//
// StatusChannel is immutable after creation via [NewStatusChannel]. All
// fields are private with getter methods that return copies of mutable
// data.
type StatusChannel struct {
	name            string
	path            string
	interval        time.Duration
	timeout         time.Duration
	headers         map[string]string
	versionField    string
	expectedVersion string
	display         []DisplayField
}

// Name returns the channel name, used in snapshots, logs and the relay API.
func (c StatusChannel) Name() string {
	return c.name
}

// Path returns the status path relative to the console's base URL,
// including any query string.
func (c StatusChannel) Path() string {
	return c.path
}

// Interval returns the delay between the completion of one poll and the
// start of the next.
func (c StatusChannel) Interval() time.Duration {
	return c.interval
}

// Timeout returns the per-request timeout.
func (c StatusChannel) Timeout() time.Duration {
	return c.timeout
}

// Headers returns a copy of the custom request headers.
func (c StatusChannel) Headers() map[string]string {
	return copyMap(c.headers)
}

// VersionCheck returns the version field and expected version. Both are
// empty when no check is configured.
func (c StatusChannel) VersionCheck() (field, expected string) {
	return c.versionField, c.expectedVersion
}

// Display returns a copy of the display fields.
func (c StatusChannel) Display() []DisplayField {
	if c.display == nil {
		return nil
	}
	return append([]DisplayField(nil), c.display...)
}

// NewStatusChannel creates a [StatusChannel] polling path relative to the
// console's base URL.
//
// path must start with "/" and may carry a query string, e.g.
// "/recorder/status.json?sources". Returns an error if the name is empty,
// the path is invalid, or an option fails.
//
// Example:
//
//	vtr, err := studiolink.NewStatusChannel("vtr", "/vtr/status.json",
//	    studiolink.WithInterval(500*time.Millisecond),
//	    studiolink.WithDisplay(studiolink.Field("Timecode", "timecode", studiolink.FormatTimecode)),
//	)
func NewStatusChannel(name, path string, opts ...ChannelOption) (StatusChannel, error) {
	if name == "" {
		return StatusChannel{}, errors.New("channel name cannot be empty")
	}
	if !strings.HasPrefix(path, "/") {
		return StatusChannel{}, errors.New("status path must start with /")
	}
	if _, err := url.ParseRequestURI(path); err != nil {
		return StatusChannel{}, errors.New("invalid status path: " + err.Error())
	}

	cfg := &channelConfig{
		interval: defaultChannelInterval,
		timeout:  defaultChannelTimeout,
		headers:  make(map[string]string),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return StatusChannel{}, err
		}
	}

	return StatusChannel{
		name:            name,
		path:            path,
		interval:        cfg.interval,
		timeout:         cfg.timeout,
		headers:         cfg.headers,
		versionField:    cfg.versionField,
		expectedVersion: cfg.expectedVersion,
		display:         cfg.display,
	}, nil
}

// PresetChannel creates a [StatusChannel] for one of the backend's
// well-known status endpoints: "recorder", "vtr" or "tape". The channel is
// named after the preset.
func PresetChannel(preset string, opts ...ChannelOption) (StatusChannel, error) {
	path, err := studio.StatusPath(studio.Preset(preset))
	if err != nil {
		return StatusChannel{}, err
	}
	return NewStatusChannel(preset, path, opts...)
}

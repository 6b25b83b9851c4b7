package config

import (
	"sort"

	"github.com/ingex/studiolink"
	"github.com/ingex/studiolink/internal/studio"
)

// BuildOptions converts parsed configuration into console options.
//
// The result carries the base URL, relay port, command timeout, backoff
// and every channel. Callers append their own options (logger, callbacks)
// before passing the slice to [studiolink.New].
func BuildOptions(cfg *Config) ([]studiolink.Option, error) {
	channels, err := BuildChannels(cfg)
	if err != nil {
		return nil, err
	}

	opts := []studiolink.Option{
		studiolink.WithBaseURL(cfg.BaseURL),
		studiolink.WithStatusChannels(channels...),
	}
	if cfg.Port != 0 {
		opts = append(opts, studiolink.WithPort(cfg.Port))
	}
	if cfg.CommandTimeout != 0 {
		opts = append(opts, studiolink.WithCommandTimeout(cfg.CommandTimeout.Duration()))
	}
	if cfg.Backoff != 0 {
		opts = append(opts, studiolink.WithBackoff(cfg.Backoff.Duration()))
	}
	return opts, nil
}

// BuildChannels converts the channel list into SDK channels in file order.
func BuildChannels(cfg *Config) ([]studiolink.StatusChannel, error) {
	channels := make([]studiolink.StatusChannel, 0, len(cfg.Channels))
	for _, cc := range cfg.Channels {
		ch, err := buildChannel(cc, cfg.PollInterval)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// buildChannel converts a single ChannelConfig to an SDK StatusChannel.
func buildChannel(cc ChannelConfig, defaultInterval Duration) (studiolink.StatusChannel, error) {
	path := cc.Path
	if cc.Preset != "" {
		p, err := studio.StatusPath(studio.Preset(cc.Preset))
		if err != nil {
			return studiolink.StatusChannel{}, err
		}
		path = p
	}

	interval := cc.Interval
	if interval == 0 {
		interval = defaultInterval
	}
	opts := []studiolink.ChannelOption{studiolink.WithInterval(interval.Duration())}

	if cc.Timeout != 0 {
		opts = append(opts, studiolink.WithTimeout(cc.Timeout.Duration()))
	}

	if len(cc.Headers) > 0 {
		opts = append(opts, studiolink.WithHeaders(mapToKeyValuePairs(cc.Headers)...))
	}

	if cc.VersionField != "" {
		opts = append(opts, studiolink.WithVersionCheck(cc.VersionField, cc.ExpectedVersion))
	}

	if len(cc.Display) > 0 {
		fields := make([]studiolink.DisplayField, 0, len(cc.Display))
		for _, d := range cc.Display {
			fields = append(fields, studiolink.Field(d.Label, d.Path, studiolink.FieldFormat(d.Format)))
		}
		opts = append(opts, studiolink.WithDisplay(fields...))
	}

	return studiolink.NewStatusChannel(cc.Name, path, opts...)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

// Package config provides YAML configuration parsing for studiolink.
//
// It lets the studiolink binary run from a configuration file instead of
// wiring a [studiolink.Console] in code.
//
// Example configuration:
//
//	base_url: ${STUDIO_URL:-http://localhost:7000}
//	port: 8090
//	poll_interval: 1s
//
//	channels:
//	  - name: vtr
//	    preset: vtr
//	    interval: 500ms
//	    display:
//	      - label: Position
//	        path: position
//	        format: position
//
//	  - name: recorder
//	    path: /recorder/status.json?sources
//	    version_field: version
//	    expected_version: "1.4"
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ingex/studiolink"
	"github.com/ingex/studiolink/internal/studio"
)

const defaultPollInterval = 1 * time.Second

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// BaseURL is the studio backend, e.g. http://studio:7000.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	BaseURL string `yaml:"base_url"`

	// Port is the relay server port. 0 leaves the relay off.
	Port int `yaml:"port"`

	// PollInterval is the default interval for channels that set none.
	// Defaults to 1s.
	PollInterval Duration `yaml:"poll_interval"`

	// CommandTimeout bounds each command request. Defaults to 5s.
	CommandTimeout Duration `yaml:"command_timeout"`

	// Backoff, if set, lets a failing channel slow down up to this delay.
	Backoff Duration `yaml:"backoff"`

	// Channels defines the status endpoints to poll.
	Channels []ChannelConfig `yaml:"channels"`
}

// ChannelConfig defines one status channel. Exactly one of Preset and
// Path must be set.
type ChannelConfig struct {
	Name string `yaml:"name"`

	// Preset is recorder, vtr or tape.
	Preset string `yaml:"preset"`

	// Path is the status path relative to the base URL, including any
	// query string. Values support environment variable substitution.
	Path string `yaml:"path"`

	// Interval overrides poll_interval. Must be between 100ms and 1h.
	Interval Duration `yaml:"interval"`

	// Timeout bounds each status request.
	Timeout Duration `yaml:"timeout"`

	// Headers are sent with every status request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// VersionField and ExpectedVersion enable the version guard together.
	VersionField    string `yaml:"version_field"`
	ExpectedVersion string `yaml:"expected_version"`

	// Display lists the fields the CLI renders for this channel.
	Display []DisplayConfig `yaml:"display"`
}

// DisplayConfig is one rendered field.
type DisplayConfig struct {
	Label string `yaml:"label"`
	Path  string `yaml:"path"`

	// Format is text (default), size, position or timecode.
	Format string `yaml:"format"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return submatches[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in base_url, channel paths and header
// values. PollInterval defaults to 1s.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(defaultPollInterval)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	expanded, err := expandEnvVars(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	c.BaseURL = expanded

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("base_url must have a host")
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}

	if err := checkInterval("poll_interval", c.PollInterval); err != nil {
		return err
	}
	if c.CommandTimeout.Duration() < 0 {
		return fmt.Errorf("command_timeout cannot be negative, got %s", c.CommandTimeout.Duration())
	}
	if c.Backoff.Duration() < 0 {
		return fmt.Errorf("backoff cannot be negative, got %s", c.Backoff.Duration())
	}

	seen := make(map[string]int, len(c.Channels))
	for i := range c.Channels {
		ch := &c.Channels[i]

		if ch.Name == "" {
			return fmt.Errorf("channels[%d]: name is required", i)
		}
		if first, dup := seen[ch.Name]; dup {
			return fmt.Errorf("channels[%d] (%s): name already used by channels[%d]", i, ch.Name, first)
		}
		seen[ch.Name] = i

		if err := ch.expandAndValidate(); err != nil {
			return fmt.Errorf("channels[%d] (%s): %w", i, ch.Name, err)
		}
	}

	return nil
}

func (ch *ChannelConfig) expandAndValidate() error {
	switch {
	case ch.Preset != "" && ch.Path != "":
		return errors.New("preset and path are mutually exclusive")
	case ch.Preset == "" && ch.Path == "":
		return errors.New("one of preset or path is required")
	case ch.Preset != "":
		if _, err := studio.StatusPath(studio.Preset(ch.Preset)); err != nil {
			return err
		}
	default:
		expanded, err := expandEnvVars(ch.Path)
		if err != nil {
			return fmt.Errorf("path: %w", err)
		}
		ch.Path = expanded
		if !strings.HasPrefix(ch.Path, "/") {
			return fmt.Errorf("path must start with /, got %q", ch.Path)
		}
	}

	for k, v := range ch.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		ch.Headers[k] = expanded
	}

	if ch.Interval != 0 {
		if err := checkInterval("interval", ch.Interval); err != nil {
			return err
		}
	}
	if ch.Timeout.Duration() < 0 {
		return fmt.Errorf("timeout cannot be negative, got %s", ch.Timeout.Duration())
	}

	if (ch.VersionField == "") != (ch.ExpectedVersion == "") {
		return errors.New("version_field and expected_version must be set together")
	}

	labels := make(map[string]bool, len(ch.Display))
	for j, d := range ch.Display {
		if d.Label == "" {
			return fmt.Errorf("display[%d]: label is required", j)
		}
		if d.Path == "" {
			return fmt.Errorf("display[%d] (%s): path is required", j, d.Label)
		}
		if labels[d.Label] {
			return fmt.Errorf("display[%d] (%s): duplicate label", j, d.Label)
		}
		labels[d.Label] = true
		if _, err := studiolink.ParseFieldFormat(d.Format); err != nil {
			return fmt.Errorf("display[%d] (%s): %w", j, d.Label, err)
		}
	}

	return nil
}

func checkInterval(field string, d Duration) error {
	if d.Duration() < studiolink.MinPollInterval {
		return fmt.Errorf("%s must be at least %s, got %s", field, studiolink.MinPollInterval, d.Duration())
	}
	if d.Duration() > studiolink.MaxPollInterval {
		return fmt.Errorf("%s must not exceed %s, got %s", field, studiolink.MaxPollInterval, d.Duration())
	}
	return nil
}

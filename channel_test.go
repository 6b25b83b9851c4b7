package studiolink

import (
	"strings"
	"testing"
	"time"
)

func TestNewStatusChannel_Valid(t *testing.T) {
	ch, err := NewStatusChannel("recorder", "/recorder/status.json?sources")
	if err != nil {
		t.Fatalf("NewStatusChannel() error = %v", err)
	}

	if ch.Name() != "recorder" {
		t.Errorf("Name() = %q, want recorder", ch.Name())
	}
	if ch.Path() != "/recorder/status.json?sources" {
		t.Errorf("Path() = %q", ch.Path())
	}
	if ch.Interval() != defaultChannelInterval {
		t.Errorf("Interval() = %v, want %v", ch.Interval(), defaultChannelInterval)
	}
	if ch.Timeout() != defaultChannelTimeout {
		t.Errorf("Timeout() = %v, want %v", ch.Timeout(), defaultChannelTimeout)
	}
	if field, expected := ch.VersionCheck(); field != "" || expected != "" {
		t.Errorf("VersionCheck() = %q, %q; want empty", field, expected)
	}
}

func TestNewStatusChannel_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		chName  string
		path    string
		wantErr string
	}{
		{"empty name", "", "/vtr/status.json", "name cannot be empty"},
		{"relative path", "vtr", "vtr/status.json", "must start with /"},
		{"absolute URL", "vtr", "http://studio/vtr/status.json", "must start with /"},
		{"empty path", "vtr", "", "must start with /"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStatusChannel(tt.chName, tt.path)
			if err == nil {
				t.Fatal("NewStatusChannel() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestPresetChannel(t *testing.T) {
	tests := []struct {
		preset   string
		wantPath string
	}{
		{"recorder", "/recorder/status.json"},
		{"vtr", "/vtr/status.json"},
		{"tape", "/tape/status.json?cache=true"},
	}

	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			ch, err := PresetChannel(tt.preset, WithInterval(500*time.Millisecond))
			if err != nil {
				t.Fatalf("PresetChannel() error = %v", err)
			}
			if ch.Name() != tt.preset {
				t.Errorf("Name() = %q, want %q", ch.Name(), tt.preset)
			}
			if ch.Path() != tt.wantPath {
				t.Errorf("Path() = %q, want %q", ch.Path(), tt.wantPath)
			}
			if ch.Interval() != 500*time.Millisecond {
				t.Errorf("Interval() = %v", ch.Interval())
			}
		})
	}

	if _, err := PresetChannel("mixer"); err == nil {
		t.Error("PresetChannel(mixer) error = nil")
	}
}

func TestWithInterval(t *testing.T) {
	tests := []struct {
		name    string
		d       time.Duration
		wantErr bool
	}{
		{"minimum", MinPollInterval, false},
		{"half second", 500 * time.Millisecond, false},
		{"maximum", MaxPollInterval, false},
		{"too short", 50 * time.Millisecond, true},
		{"zero", 0, true},
		{"too long", 2 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := NewStatusChannel("vtr", "/vtr/status.json", WithInterval(tt.d))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && ch.Interval() != tt.d {
				t.Errorf("Interval() = %v, want %v", ch.Interval(), tt.d)
			}
		})
	}
}

func TestWithTimeout_Invalid(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		if _, err := NewStatusChannel("vtr", "/vtr/status.json", WithTimeout(d)); err == nil {
			t.Errorf("WithTimeout(%v) error = nil", d)
		}
	}

	ch, err := NewStatusChannel("vtr", "/vtr/status.json", WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewStatusChannel() error = %v", err)
	}
	if ch.Timeout() != 2*time.Second {
		t.Errorf("Timeout() = %v", ch.Timeout())
	}
}

func TestWithHeaders_Immutability(t *testing.T) {
	ch, err := NewStatusChannel("vtr", "/vtr/status.json", WithHeaders("X-Studio", "A"))
	if err != nil {
		t.Fatalf("NewStatusChannel() error = %v", err)
	}

	headers := ch.Headers()
	headers["X-Studio"] = "modified"

	if ch.Headers()["X-Studio"] != "A" {
		t.Error("Headers() returned a reference to internal state")
	}

	if _, err := NewStatusChannel("vtr", "/vtr/status.json", WithHeaders("odd")); err == nil {
		t.Error("WithHeaders with odd args error = nil")
	}
}

func TestWithVersionCheck(t *testing.T) {
	ch, err := NewStatusChannel("recorder", "/recorder/status.json", WithVersionCheck("version", "1.2"))
	if err != nil {
		t.Fatalf("NewStatusChannel() error = %v", err)
	}
	if field, expected := ch.VersionCheck(); field != "version" || expected != "1.2" {
		t.Errorf("VersionCheck() = %q, %q", field, expected)
	}

	if _, err := NewStatusChannel("r", "/r", WithVersionCheck("", "1.2")); err == nil {
		t.Error("empty field error = nil")
	}
	if _, err := NewStatusChannel("r", "/r", WithVersionCheck("version", "")); err == nil {
		t.Error("empty expected error = nil")
	}
}

func TestWithDisplay(t *testing.T) {
	ch, err := NewStatusChannel("tape", "/tape/status.json",
		WithDisplay(Field("Free", "cache.free", FormatSize)),
		WithDisplay(DisplayField{Label: "Name", Path: "cache.name"}),
	)
	if err != nil {
		t.Fatalf("NewStatusChannel() error = %v", err)
	}

	display := ch.Display()
	if len(display) != 2 {
		t.Fatalf("Display() = %d fields, want 2", len(display))
	}
	if display[1].Format != FormatText {
		t.Errorf("empty format = %q, want text", display[1].Format)
	}

	display[0].Label = "modified"
	if ch.Display()[0].Label != "Free" {
		t.Error("Display() returned a reference to internal state")
	}
}

func TestWithDisplay_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		fields []DisplayField
	}{
		{"empty label", []DisplayField{{Path: "a"}}},
		{"empty path", []DisplayField{{Label: "A"}}},
		{"unknown format", []DisplayField{{Label: "A", Path: "a", Format: "hex"}}},
		{"duplicate label", []DisplayField{{Label: "A", Path: "a"}, {Label: "A", Path: "b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewStatusChannel("x", "/x", WithDisplay(tt.fields...)); err == nil {
				t.Error("WithDisplay() error = nil")
			}
		})
	}
}

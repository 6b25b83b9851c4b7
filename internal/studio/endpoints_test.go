package studio

import (
	"net/url"
	"testing"
)

func TestStatusPaths(t *testing.T) {
	tests := []struct {
		preset Preset
		want   string
	}{
		{PresetRecorder, "/recorder/status.json"},
		{PresetVTR, "/vtr/status.json"},
		{PresetTape, "/tape/status.json?cache=true"},
	}
	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			got, err := StatusPath(tt.preset)
			if err != nil {
				t.Fatalf("StatusPath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("StatusPath(%q) = %q, want %q", tt.preset, got, tt.want)
			}
		})
	}

	if _, err := StatusPath("mixer"); err == nil {
		t.Error("StatusPath(mixer) error = nil, want unknown preset")
	}
}

func TestRecorderStatus_QueryFlags(t *testing.T) {
	got := RecorderStatus(url.Values{"sources": nil, "channel": {"2"}})
	want := "/recorder/status.json?channel=2&sources"
	if got != want {
		t.Errorf("RecorderStatus() = %q, want %q", got, want)
	}
}

func TestReplayCommand(t *testing.T) {
	got, err := ReplayCommand("seek", url.Values{"offset": {"-25"}, "whence": {"cur"}})
	if err != nil {
		t.Fatalf("ReplayCommand() error = %v", err)
	}
	if want := "/confreplay/seek?offset=-25&whence=cur"; got != want {
		t.Errorf("ReplayCommand() = %q, want %q", got, want)
	}

	got, err = ReplayCommand("play", nil)
	if err != nil {
		t.Fatalf("ReplayCommand() error = %v", err)
	}
	if got != "/confreplay/play" {
		t.Errorf("ReplayCommand(play) = %q", got)
	}
}

func TestVTRControl(t *testing.T) {
	got, err := VTRControl("fastforward")
	if err != nil {
		t.Fatalf("VTRControl() error = %v", err)
	}
	if got != "/vtr/control/fastforward" {
		t.Errorf("VTRControl() = %q", got)
	}

	for _, bad := range []string{"", "../admin", "play?x=1", "a#b"} {
		if _, err := VTRControl(bad); err == nil {
			t.Errorf("VTRControl(%q) error = nil, want invalid command", bad)
		}
	}
}

func TestDeleteCacheItems(t *testing.T) {
	path, body, err := DeleteCacheItems([]string{"12", "15", "19"})
	if err != nil {
		t.Fatalf("DeleteCacheItems() error = %v", err)
	}
	if path != "/tape/cache/deleteitems" {
		t.Errorf("path = %q", path)
	}
	if body != "items=12%2C15%2C19" {
		t.Errorf("body = %q, want URL-encoded comma list", body)
	}

	form, err := url.ParseQuery(body)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if form.Get("items") != "12,15,19" {
		t.Errorf("items = %q, want 12,15,19", form.Get("items"))
	}

	if _, _, err := DeleteCacheItems(nil); err == nil {
		t.Error("DeleteCacheItems(nil) error = nil")
	}
	if _, _, err := DeleteCacheItems([]string{"1,2"}); err == nil {
		t.Error("DeleteCacheItems with embedded comma error = nil")
	}
}

func TestAssetCall(t *testing.T) {
	path, body, err := AssetCall("getmaterial", map[string]any{"id": 7})
	if err != nil {
		t.Fatalf("AssetCall() error = %v", err)
	}
	if path != "/assets/getmaterial" {
		t.Errorf("path = %q", path)
	}
	form, err := url.ParseQuery(body)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if form.Get("jsonIn") != `{"id":7}` {
		t.Errorf("jsonIn = %q", form.Get("jsonIn"))
	}

	if _, _, err := AssetCall("x", func() {}); err == nil {
		t.Error("AssetCall with unencodable input error = nil")
	}
}

// Package studio knows the URL layout of the studio backend.
//
// Status endpoints return opaque JSON. Command endpoints are fire-and-forget
// GETs, except tape cache deletion (form POST) and asset management (form
// POST carrying a jsonIn parameter, answered with an ok~/err~ envelope).
package studio

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Status endpoint paths.
const (
	RecorderStatusPath = "/recorder/status.json"
	VTRStatusPath      = "/vtr/status.json"
	TapeStatusPath     = "/tape/status.json"
)

// Command endpoint prefixes.
const (
	replayPrefix     = "/confreplay/"
	vtrControlPrefix = "/vtr/control/"
	deleteItemsPath  = "/tape/cache/deleteitems"
	assetsPrefix     = "/assets/"
)

// Preset names a well-known status channel.
type Preset string

const (
	PresetRecorder Preset = "recorder"
	PresetVTR      Preset = "vtr"
	PresetTape     Preset = "tape"
)

// StatusPath returns the default status path for a preset.
func StatusPath(p Preset) (string, error) {
	switch p {
	case PresetRecorder:
		return RecorderStatus(nil), nil
	case PresetVTR:
		return VTRStatus(), nil
	case PresetTape:
		return TapeStatus(), nil
	default:
		return "", fmt.Errorf("unknown status preset %q (expected recorder, vtr or tape)", p)
	}
}

// RecorderStatus returns the recorder status path with optional query flags.
func RecorderStatus(flags url.Values) string {
	return withQuery(RecorderStatusPath, flags)
}

// VTRStatus returns the VTR status path.
func VTRStatus() string {
	return VTRStatusPath
}

// TapeStatus returns the tape status path including the cache listing.
func TapeStatus() string {
	return TapeStatusPath + "?cache=true"
}

// ReplayCommand builds /confreplay/<command>?<params>.
func ReplayCommand(command string, params url.Values) (string, error) {
	if err := validCommand(command); err != nil {
		return "", err
	}
	return withQuery(replayPrefix+url.PathEscape(command), params), nil
}

// VTRControl builds /vtr/control/<command>.
func VTRControl(command string) (string, error) {
	if err := validCommand(command); err != nil {
		return "", err
	}
	return vtrControlPrefix + url.PathEscape(command), nil
}

// DeleteCacheItems returns the path and URL-encoded body that delete the
// given tape cache items.
func DeleteCacheItems(ids []string) (path, body string, err error) {
	if len(ids) == 0 {
		return "", "", errors.New("at least one cache item id is required")
	}
	for _, id := range ids {
		if id == "" || strings.Contains(id, ",") {
			return "", "", fmt.Errorf("invalid cache item id %q", id)
		}
	}
	form := url.Values{"items": {strings.Join(ids, ",")}}
	return deleteItemsPath, form.Encode(), nil
}

// AssetCall returns the path and URL-encoded jsonIn body for an
// asset-management operation.
func AssetCall(operation string, in any) (path, body string, err error) {
	if err := validCommand(operation); err != nil {
		return "", "", err
	}
	data, err := json.Marshal(in)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode jsonIn: %w", err)
	}
	form := url.Values{"jsonIn": {string(data)}}
	return assetsPrefix + url.PathEscape(operation), form.Encode(), nil
}

func validCommand(command string) error {
	if command == "" {
		return errors.New("command cannot be empty")
	}
	if strings.ContainsAny(command, "/?#") {
		return fmt.Errorf("invalid command %q", command)
	}
	return nil
}

// withQuery appends params with keys in sorted order so paths are stable.
func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		values := params[k]
		if len(values) == 0 {
			// a bare flag such as ?sources
			parts = append(parts, url.QueryEscape(k))
			continue
		}
		for _, v := range values {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return path + "?" + strings.Join(parts, "&")
}

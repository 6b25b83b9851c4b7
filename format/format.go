// Package format renders byte counts, frame positions and timecodes the way
// the studio control panels display them.
//
// All functions are pure: the same input always yields the same string and
// nothing here performs I/O.
package format

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// decimal unit steps; sizes are never reported in binary (1024) units
const (
	kilo = 1000
	mega = kilo * 1000
	giga = mega * 1000
	tera = giga * 1000
)

// FramesPerSecond is the fixed frame rate assumed for positions.
const FramesPerSecond = 25

// framesPerHour is the literal hour base used by the control panels.
// It must stay 60*60*25 so positions match what operators already see.
const framesPerHour = 60 * 60 * 25

// hoursPerDay is where positions wrap back to 00:00:00:00.
const hoursPerDay = 24

// Size renders a byte count using decimal units.
//
// Negative input yields "". Counts below 1000 are printed as whole bytes
// ("999B"); larger counts use two decimals in the bracket their magnitude
// falls in, so 1000 is "1.00KB" and 999999 is "1000.00KB".
func Size(bytes int64) string {
	switch {
	case bytes < 0:
		return ""
	case bytes < kilo:
		return strconv.FormatInt(bytes, 10) + "B"
	case bytes < mega:
		return fmt.Sprintf("%.2fKB", float64(bytes)/kilo)
	case bytes < giga:
		return fmt.Sprintf("%.2fMB", float64(bytes)/mega)
	case bytes < tera:
		return fmt.Sprintf("%.2fGB", float64(bytes)/giga)
	default:
		return fmt.Sprintf("%.2fTB", float64(bytes)/tera)
	}
}

// Position renders a frame count as HH:MM:SS:FF at 25 frames per second.
//
// Hours wrap at 24. Negative input yields "".
func Position(frames int64) string {
	if frames < 0 {
		return ""
	}

	hours := (frames / framesPerHour) % hoursPerDay
	minutes := (frames / (60 * FramesPerSecond)) % 60
	seconds := (frames / FramesPerSecond) % 60
	ff := frames % FramesPerSecond

	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, ff)
}

// Timecode is a discrete SMPTE-style timecode as reported by recorders and VTRs.
type Timecode struct {
	Hour      int  `json:"hour"`
	Min       int  `json:"min"`
	Sec       int  `json:"sec"`
	Frame     int  `json:"frame"`
	DropFrame bool `json:"dropFrame"`
}

// String zero-pads each field to two digits and joins them with ':',
// or with ';' for drop-frame timecodes.
func (tc Timecode) String() string {
	sep := ":"
	if tc.DropFrame {
		sep = ";"
	}
	return fmt.Sprintf("%02d%s%02d%s%02d%s%02d", tc.Hour, sep, tc.Min, sep, tc.Sec, sep, tc.Frame)
}

// FormatTimecode is shorthand for tc.String().
func FormatTimecode(tc Timecode) string {
	return tc.String()
}

// SizeValue formats a decoded JSON value as a byte count.
// nil and non-numeric values yield "".
func SizeValue(v any) string {
	n, ok := toInt(v)
	if !ok {
		return ""
	}
	return Size(n)
}

// PositionValue formats a decoded JSON value as a frame position.
// nil and non-numeric values yield "".
func PositionValue(v any) string {
	n, ok := toInt(v)
	if !ok {
		return ""
	}
	return Position(n)
}

// TimecodeValue formats a decoded JSON timecode object
// ({"hour":..,"min":..,"sec":..,"frame":..,"dropFrame":..}).
// Anything that is not an object yields "".
func TimecodeValue(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}

	field := func(name string) int {
		n, _ := toInt(obj[name])
		return int(n)
	}
	drop, _ := obj["dropFrame"].(bool)

	return Timecode{
		Hour:      field("hour"),
		Min:       field("min"),
		Sec:       field("sec"),
		Frame:     field("frame"),
		DropFrame: drop,
	}.String()
}

// toInt converts the numeric forms produced by encoding/json.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

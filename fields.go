package studiolink

import (
	"fmt"

	"github.com/ingex/studiolink/format"
	"github.com/ingex/studiolink/internal/jsonpath"
)

// FieldFormat selects how a display field renders its JSON value.
type FieldFormat string

const (
	// FormatText renders strings as-is and numbers and booleans in plain form.
	FormatText FieldFormat = "text"

	// FormatSize renders a byte count with decimal units, e.g. "1.50GB".
	FormatSize FieldFormat = "size"

	// FormatPosition renders a frame count as HH:MM:SS:FF.
	FormatPosition FieldFormat = "position"

	// FormatTimecode renders a {hour,min,sec,frame,dropFrame} object.
	FormatTimecode FieldFormat = "timecode"
)

// ParseFieldFormat validates a format name. The empty string means text.
func ParseFieldFormat(s string) (FieldFormat, error) {
	switch f := FieldFormat(s); f {
	case "":
		return FormatText, nil
	case FormatText, FormatSize, FormatPosition, FormatTimecode:
		return f, nil
	default:
		return "", fmt.Errorf("unknown field format %q (expected text, size, position or timecode)", s)
	}
}

// Render formats a decoded JSON value. Missing and mistyped values render
// as "".
func (f FieldFormat) Render(v any) string {
	switch f {
	case FormatSize:
		return format.SizeValue(v)
	case FormatPosition:
		return format.PositionValue(v)
	case FormatTimecode:
		return format.TimecodeValue(v)
	default:
		return jsonpath.String(v)
	}
}

// DisplayField names one value a console shows for a channel.
type DisplayField struct {
	// Label identifies the field in Snapshot.Fields and in rendered output.
	Label string

	// Path is the dot-notation path into the status document.
	Path string

	// Format selects the rendering. Empty means text.
	Format FieldFormat
}

// Field is shorthand for constructing a [DisplayField].
func Field(label, path string, f FieldFormat) DisplayField {
	return DisplayField{Label: label, Path: path, Format: f}
}

// renderFields formats every display field from value. A nil value renders
// each field as "", so a disconnected channel blanks its display.
func renderFields(value any, display []DisplayField) map[string]string {
	if len(display) == 0 {
		return nil
	}
	out := make(map[string]string, len(display))
	for _, d := range display {
		v, _ := jsonpath.Lookup(value, d.Path)
		out[d.Label] = d.Format.Render(v)
	}
	return out
}

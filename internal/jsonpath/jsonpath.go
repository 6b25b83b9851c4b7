// Package jsonpath walks decoded JSON documents using dot notation.
//
// Status snapshots are opaque to the console; only a handful of known
// fields are read, so a dotted path such as "vtr.state" or "cache.size" is
// all the addressing needed.
package jsonpath

import (
	"strconv"
	"strings"
)

// Lookup walks data (as produced by encoding/json into any) following the
// dot-separated path. It returns false if any segment is missing or an
// intermediate value is not an object. An empty path returns data itself.
func Lookup(data any, path string) (any, bool) {
	if path == "" {
		return data, true
	}

	current := data
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// String renders a scalar JSON value as text.
//
// Strings are returned unchanged, booleans as "true"/"false", numbers in
// their shortest decimal form. nil, objects and arrays yield "".
func String(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// LookupString combines [Lookup] and [String].
func LookupString(data any, path string) string {
	v, ok := Lookup(data, path)
	if !ok {
		return ""
	}
	return String(v)
}

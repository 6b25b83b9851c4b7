// Package settings persists asset-management preferences in the
// IngexSettings cookie.
//
// The cookie value is a flat list of key:value pairs joined with '&', e.g.
// "pageSize:50&view:list". Keys and values are path-escaped so that the
// separators cannot appear inside them.
package settings

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// CookieName is the name of the settings cookie.
const CookieName = "IngexSettings"

// MaxAge is how long the browser keeps the cookie.
const MaxAge = 365 * 24 * time.Hour

// Values is a flat set of settings.
type Values map[string]string

// Get returns the value for key, or def if it is unset.
func (v Values) Get(key, def string) string {
	if s, ok := v[key]; ok {
		return s
	}
	return def
}

// Merge returns a copy of v overlaid with other.
func (v Values) Merge(other Values) Values {
	out := make(Values, len(v)+len(other))
	for k, s := range v {
		out[k] = s
	}
	for k, s := range other {
		out[k] = s
	}
	return out
}

// Encode renders values as k1:v1&k2:v2 with keys in sorted order.
// Empty keys are skipped.
func Encode(values Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, escape(k)+":"+escape(values[k]))
	}
	return strings.Join(pairs, "&")
}

// Decode parses a cookie value produced by [Encode].
//
// Decode never fails: pairs without a ':' or with an empty key are skipped,
// components that do not unescape are kept as-is, and a repeated key keeps
// its last value.
func Decode(s string) Values {
	values := make(Values)
	for _, pair := range strings.Split(s, "&") {
		k, v, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		k = unescape(k)
		if k == "" {
			continue
		}
		values[k] = unescape(v)
	}
	return values
}

// Cookie builds the settings cookie for values. It is readable by page
// scripts, which own the settings UI.
func Cookie(values Values) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    Encode(values),
		Path:     "/",
		MaxAge:   int(MaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	}
}

// FromRequest reads the settings cookie from r. A missing cookie yields an
// empty set.
func FromRequest(r *http.Request) Values {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return make(Values)
	}
	return Decode(c.Value)
}

func escape(s string) string {
	// PathEscape leaves ':' and '&' alone
	s = url.PathEscape(s)
	s = strings.ReplaceAll(s, ":", "%3A")
	return strings.ReplaceAll(s, "&", "%26")
}

func unescape(s string) string {
	u, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return u
}

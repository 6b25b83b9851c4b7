// Package render decides when a displayed value needs redrawing.
package render

import "sync"

// Cache remembers the last value rendered for each element id.
//
// A Cache is safe for concurrent use. The zero value is ready to use.
type Cache struct {
	mu   sync.Mutex
	last map[string]string
}

// NewCache creates an empty [Cache].
func NewCache() *Cache {
	return &Cache{}
}

// Changed records value for id and reports whether it differs from the
// value previously recorded. The first value seen for an id is a change.
func (c *Cache) Changed(id, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last == nil {
		c.last = make(map[string]string)
	}
	prev, ok := c.last[id]
	if ok && prev == value {
		return false
	}
	c.last[id] = value
	return true
}

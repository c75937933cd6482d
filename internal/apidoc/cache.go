package apidoc

import (
	"sync"

	"github.com/phpwdk/apidoc/internal/comment"
)

// ParseCache memoizes parsed comments by (declaring type, member). An entry
// is reused only while the raw text is unchanged, so edited declarations
// are re-parsed; Invalidate drops everything after a source reload.
// Safe for concurrent use.
type ParseCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

type cacheKey struct {
	owner  string
	member string // empty for the type's own comment
}

type cacheEntry struct {
	raw     string
	comment comment.Comment
	err     error
}

// NewParseCache returns an empty cache.
func NewParseCache() *ParseCache {
	return &ParseCache{entries: make(map[cacheKey]cacheEntry)}
}

// Parse returns the parsed form of raw, parsing it only on a miss. The
// returned Comment never shares memory with the cache.
func (c *ParseCache) Parse(owner, member, raw string) (comment.Comment, error) {
	key := cacheKey{owner: owner, member: member}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && e.raw == raw {
		return e.comment.Clone(), e.err
	}

	parsed, err := comment.Parse(raw)

	c.mu.Lock()
	c.entries[key] = cacheEntry{raw: raw, comment: parsed, err: err}
	c.mu.Unlock()

	return parsed.Clone(), err
}

// Invalidate drops every entry.
func (c *ParseCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *ParseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

package generator

import (
	"sync"

	"github.com/patrickmn/go-cache"
)

// EnumCache is the opt-in cross-run state of the enum generator: round-robin
// counters keyed by the enum's canonical schema pointer. It is the only
// mutable state that may be shared between runs; callers that need strict
// isolation leave it unset or Reset it between runs.
type EnumCache struct {
	mu sync.Mutex
	c  *cache.Cache
}

// NewEnumCache returns an empty cache. Entries never expire.
func NewEnumCache() *EnumCache {
	return &EnumCache{c: cache.New(cache.NoExpiration, 0)}
}

// Next returns the current rotation index for key modulo n and advances it.
func (e *EnumCache) Next(key string, n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := 0
	if v, ok := e.c.Get(key); ok {
		i = v.(int)
	}
	e.c.Set(key, i+1, cache.NoExpiration)
	if n <= 0 {
		return 0
	}
	return i % n
}

// Len returns the number of tracked keys.
func (e *EnumCache) Len() int { return e.c.ItemCount() }

// Reset drops every counter.
func (e *EnumCache) Reset() { e.c.Flush() }

package dispatch

import (
	"sync"

	"github.com/wippyai/genfun"
)

// DefaultMaxCacheSize is the number of signatures a cache holds before it
// goes megamorphic.
const DefaultMaxCacheSize = 32

// CacheState tracks how many signatures a generic function has seen since
// its last registration.
type CacheState uint8

const (
	Uninitialized CacheState = iota
	Monomorphic
	Polymorphic
	Megamorphic
)

func (s CacheState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Monomorphic:
		return "monomorphic"
	case Polymorphic:
		return "polymorphic"
	case Megamorphic:
		return "megamorphic"
	default:
		return "unknown"
	}
}

type cacheEntry struct {
	key     []genfun.Handle
	methods []*Method
}

// Cache is an inline cache from argument type signatures to sorted
// applicable-method lists. Once megamorphic it stops storing and answering
// until Reset.
type Cache struct {
	entries []cacheEntry
	max     int
	state   CacheState
	mu      sync.RWMutex
}

// NewCache creates a cache holding at most max signatures.
// A non-positive max selects DefaultMaxCacheSize.
func NewCache(max int) *Cache {
	if max <= 0 {
		max = DefaultMaxCacheSize
	}
	return &Cache{max: max}
}

// Lookup returns the methods stored for key. Newest entries are checked first.
func (c *Cache) Lookup(key []genfun.Handle) ([]*Method, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state == Uninitialized || c.state == Megamorphic {
		return nil, false
	}
	for i := range c.entries {
		if sameKey(c.entries[i].key, key) {
			return c.entries[i].methods, true
		}
	}
	return nil, false
}

// Store prepends an entry and advances the state. It returns the state
// before and after the store so callers can report transitions.
func (c *Cache) Store(key []genfun.Handle, methods []*Method) (from, to CacheState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from = c.state
	if c.state == Megamorphic {
		return from, from
	}
	for i := range c.entries {
		if sameKey(c.entries[i].key, key) {
			return from, from
		}
	}

	entries := make([]cacheEntry, 0, len(c.entries)+1)
	entries = append(entries, cacheEntry{key: key, methods: methods})
	c.entries = append(entries, c.entries...)

	switch n := len(c.entries); {
	case n >= c.max:
		c.state = Megamorphic
		// entries are never consulted again until Reset
		c.entries = nil
	case n == 1:
		c.state = Monomorphic
	default:
		c.state = Polymorphic
	}
	return from, c.state
}

// Reset empties the cache and returns it to Uninitialized.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = nil
	c.state = Uninitialized
	c.mu.Unlock()
}

// State returns the current cache state.
func (c *Cache) State() CacheState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func sameKey(a, b []genfun.Handle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package cache

import (
	"context"
	"sync"
	"time"
)

// DescendantCache stores self-and-descendant id sets keyed by root category id.
//
// Entries belong to a generation and Purge starts a new one. A reader takes
// the generation before resolving a set from the store and passes it to Set,
// so a set resolved before a purge is never served after it.
type DescendantCache interface {
	// Generation returns the current generation
	Generation(ctx context.Context) (uint64, error)
	// Get returns the set cached for rootID in generation and whether it was present
	Get(ctx context.Context, generation, rootID uint64) ([]uint64, bool, error)
	// Set stores the set for rootID unless generation is no longer current
	Set(ctx context.Context, generation, rootID uint64, ids []uint64) error
	// Purge starts a new generation, dropping every cached set
	Purge(ctx context.Context) error
	// Close releases resources held by the cache
	Close() error
}

type memoryEntry struct {
	ids       []uint64
	expiresAt time.Time
}

// InMemoryDescendantCache keeps descendant sets in process memory.
// Expired entries are dropped lazily on read.
type InMemoryDescendantCache struct {
	mu         sync.RWMutex
	ttl        time.Duration
	generation uint64
	entries    map[uint64]memoryEntry
	now        func() time.Time
}

// NewInMemoryDescendantCache creates an in-memory cache; ttl <= 0 means no expiry
func NewInMemoryDescendantCache(ttl time.Duration) *InMemoryDescendantCache {
	return &InMemoryDescendantCache{
		ttl:     ttl,
		entries: make(map[uint64]memoryEntry),
		now:     time.Now,
	}
}

// Generation implements DescendantCache
func (c *InMemoryDescendantCache) Generation(ctx context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation, nil
}

// Get returns a copy of the cached set
func (c *InMemoryDescendantCache) Get(ctx context.Context, generation, rootID uint64) ([]uint64, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[rootID]
	current := c.generation
	c.mu.RUnlock()
	if !ok || generation != current {
		return nil, false, nil
	}

	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.mu.Lock()
		if c.generation == current {
			delete(c.entries, rootID)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	return append([]uint64(nil), e.ids...), true, nil
}

// Set stores a copy of ids. Sets from an old generation are dropped.
func (c *InMemoryDescendantCache) Set(ctx context.Context, generation, rootID uint64, ids []uint64) error {
	e := memoryEntry{ids: append([]uint64(nil), ids...)}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return nil
	}
	c.entries[rootID] = e
	return nil
}

// Purge drops every entry and starts a new generation
func (c *InMemoryDescendantCache) Purge(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	c.entries = make(map[uint64]memoryEntry)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *InMemoryDescendantCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close implements DescendantCache
func (c *InMemoryDescendantCache) Close() error {
	return nil
}

// NopDescendantCache never stores anything
type NopDescendantCache struct{}

func (NopDescendantCache) Generation(context.Context) (uint64, error)                  { return 0, nil }
func (NopDescendantCache) Get(context.Context, uint64, uint64) ([]uint64, bool, error) { return nil, false, nil }
func (NopDescendantCache) Set(context.Context, uint64, uint64, []uint64) error         { return nil }
func (NopDescendantCache) Purge(context.Context) error                                 { return nil }
func (NopDescendantCache) Close() error                                                { return nil }

var (
	_ DescendantCache = (*InMemoryDescendantCache)(nil)
	_ DescendantCache = NopDescendantCache{}
)

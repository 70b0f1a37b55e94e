// Package cache implements the optional chunk cache: an LRU wrapper around
// a readable array's chunk retrieval, either chunk-count-limited or
// byte-size-limited, storing either encoded or decoded chunk bytes, with
// single-flight insertion so concurrent requests for the same missing chunk
// deduplicate to one storage/decode call.
//
// The chunk-count variant rides github.com/hashicorp/golang-lru/v2; the
// byte-limited variant tracks sizes itself since golang-lru/v2 has no
// weigher hook.
package cache

import (
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Key identifies a cached chunk by its grid indices.
type Key = string

// IndicesKey turns chunk grid indices into a Key.
func IndicesKey(indices []uint64) Key {
	parts := make([]string, len(indices))
	for i, v := range indices {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, "/")
}

// Entry is one cached chunk: either its encoded bytes fetched from storage,
// or its decoded ArrayBytes payload, left opaque to this package; the
// chunk router / array type decides which it stores.
type Entry struct {
	Value []byte
	Size  uint64
}

// ChunkLimit is a chunk-count-limited LRU cache.
type ChunkLimit struct {
	cache *lru.Cache[Key, *Entry]
	group singleflight.Group
}

// NewChunkLimit builds a cache holding at most capacity chunks.
func NewChunkLimit(capacity int) (*ChunkLimit, error) {
	if capacity < 1 {
		capacity = 1
	}
	c, err := lru.New[Key, *Entry](capacity)
	if err != nil {
		return nil, err
	}
	return &ChunkLimit{cache: c}, nil
}

// Get returns the cached entry for key, if present.
func (c *ChunkLimit) Get(key Key) (*Entry, bool) {
	return c.cache.Get(key)
}

// Insert stores chunk under key, evicting the least-recently-used entry if
// at capacity.
func (c *ChunkLimit) Insert(key Key, e *Entry) {
	c.cache.Add(key, e)
}

// GetOrInsert consults the cache, and on a miss calls fn exactly once even
// under concurrent callers for the same key (single-flight), storing and
// returning its result.
func (c *ChunkLimit) GetOrInsert(key Key, fn func() (*Entry, error)) (*Entry, error) {
	if e, ok := c.cache.Get(key); ok {
		return e, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if e, ok := c.cache.Get(key); ok {
			return e, nil
		}
		e, err := fn()
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, e)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Len returns the number of chunks currently cached.
func (c *ChunkLimit) Len() int { return c.cache.Len() }

// Purge empties the cache.
func (c *ChunkLimit) Purge() { c.cache.Purge() }

// SizeLimit is a byte-size-limited LRU cache: entries are tracked in an
// ordered map and the least-recently-used ones are evicted until total
// bytes fits within capacity. The most recently inserted entry is never
// evicted, so a single entry larger than capacity stays cached alone.
type SizeLimit struct {
	mu       sync.Mutex
	capacity uint64
	size     uint64
	order    []Key // least-recently-used first
	entries  map[Key]*Entry
	group    singleflight.Group
}

// NewSizeLimit builds a cache holding chunks up to capacity bytes total.
func NewSizeLimit(capacity uint64) *SizeLimit {
	return &SizeLimit{capacity: capacity, entries: make(map[Key]*Entry)}
}

func (c *SizeLimit) touch(key Key) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, key)
}

// Get returns the cached entry for key, if present, and marks it
// most-recently-used.
func (c *SizeLimit) Get(key Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if ok {
		c.touch(key)
	}
	return e, ok
}

// Insert stores chunk under key, evicting least-recently-used entries until
// the cache fits within its byte capacity or only the new entry is left.
func (c *SizeLimit) Insert(key Key, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(key, e)
}

func (c *SizeLimit) insertLocked(key Key, e *Entry) {
	if old, ok := c.entries[key]; ok {
		c.size -= old.Size
	} else {
		c.order = append(c.order, key)
	}
	c.entries[key] = e
	c.size += e.Size
	c.touch(key)

	for c.size > c.capacity && len(c.order) > 1 {
		lruKey := c.order[0]
		c.order = c.order[1:]
		if victim, ok := c.entries[lruKey]; ok {
			c.size -= victim.Size
			delete(c.entries, lruKey)
		}
	}
}

// GetOrInsert consults the cache, and on a miss calls fn exactly once even
// under concurrent callers for the same key.
func (c *SizeLimit) GetOrInsert(key Key, fn func() (*Entry, error)) (*Entry, error) {
	if e, ok := c.Get(key); ok {
		return e, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if e, ok := c.Get(key); ok {
			return e, nil
		}
		e, err := fn()
		if err != nil {
			return nil, err
		}
		c.Insert(key, e)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Len returns the number of chunks currently cached.
func (c *SizeLimit) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge empties the cache.
func (c *SizeLimit) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*Entry)
	c.order = nil
	c.size = 0
}

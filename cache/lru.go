package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/fgilic/entwine/resource"
)

// LRUBlockCache is a BlockCache bounded by both a local soft byte limit
// and a global resource.Controller memory limit shared across every
// other memory consumer in the process (the builder's node pool, other
// caches, ...). When the local limit would be exceeded, the least
// recently used unpinned entries are evicted until there is room. The
// global limit causes no eviction: if the controller cannot reserve the
// bytes, Set silently declines to cache rather than blocking a read path.
type LRUBlockCache struct {
	mu      sync.Mutex
	limit   int64
	size    int64
	entries map[Key]*list.Element
	order   *list.List // front = most recently used
	rc      *resource.Controller

	// pinned reports whether a key is currently reserved by a Block and
	// must survive eviction pressure. Nil means nothing is ever pinned.
	pinned func(Key) bool
}

type lruEntry struct {
	key  Key
	data []byte
}

// NewLRUBlockCache returns a cache that holds at most limitBytes of
// chunk data, additionally bounded by rc's global memory accounting.
func NewLRUBlockCache(limitBytes int64, rc *resource.Controller) *LRUBlockCache {
	return &LRUBlockCache{
		limit:   limitBytes,
		entries: make(map[Key]*list.Element),
		order:   list.New(),
		rc:      rc,
	}
}

// SetPinned installs the predicate used to exempt reserved keys from
// eviction.
func (c *LRUBlockCache) SetPinned(fn func(Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = fn
}

// Size returns the current total size, in bytes, of cached entries.
func (c *LRUBlockCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Get returns the cached body for key, if present, and marks it as
// recently used.
func (c *LRUBlockCache) Get(_ context.Context, key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).data, true
}

// Set caches b under key, evicting least-recently-used entries as
// needed to stay within the local limit, and reserving the added bytes
// against the shared resource.Controller. If the controller cannot
// grant the reservation even after local eviction, the value is not
// cached.
func (c *LRUBlockCache) Set(_ context.Context, key Key, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		old := el.Value.(*lruEntry)
		c.order.Remove(el)
		delete(c.entries, key)
		c.size -= int64(len(old.data))
		c.rc.ReleaseMemory(int64(len(old.data)))
	}

	size := int64(len(b))
	for c.limit > 0 && c.size+size > c.limit && c.evictOldest() {
	}

	if !c.rc.TryAcquireMemory(size) {
		return
	}

	entry := &lruEntry{key: key, data: b}
	el := c.order.PushFront(entry)
	c.entries[key] = el
	c.size += size
}

// evictOldest removes the least-recently-used unpinned entry. It
// returns false if there was nothing left that could be evicted,
// either because the cache is empty or because every remaining entry is
// pinned by an active Block.
func (c *LRUBlockCache) evictOldest() bool {
	for el := c.order.Back(); el != nil; el = el.Prev() {
		entry := el.Value.(*lruEntry)
		if c.pinned != nil && c.pinned(entry.key) {
			continue
		}
		c.order.Remove(el)
		delete(c.entries, entry.key)
		c.size -= int64(len(entry.data))
		c.rc.ReleaseMemory(int64(len(entry.data)))
		return true
	}
	return false
}

package cache

import (
	"context"
	"fmt"

	"github.com/fgilic/entwine/chunk"
	"github.com/fgilic/entwine/resource"
	"github.com/fgilic/entwine/schema"
	"github.com/fgilic/entwine/spatial"
)

// Source fetches the raw, possibly-compressed bytes of a chunk from
// wherever it is persisted. Satisfied by storage.Endpoint.
type Source interface {
	Get(key string) ([]byte, error)
}

// Cache is the read path's single entry point for chunk data: it checks
// the LRU, and on a miss fetches through Source, decodes, caches, and
// returns the result. It implements query.ChunkSource.
type Cache struct {
	blocks    *LRUBlockCache
	src       Source
	prefixIds bool
	pins      *pinSet
}

// New returns a Cache backed by src, bounded by limitBytes of resident
// chunk data and by rc's global memory accounting.
func New(src Source, limitBytes int64, rc *resource.Controller, prefixIds bool) *Cache {
	c := &Cache{
		blocks:    NewLRUBlockCache(limitBytes, rc),
		src:       src,
		prefixIds: prefixIds,
		pins:      newPinSet(),
	}
	c.blocks.SetPinned(c.pins.pinned)
	return c
}

// Fetch implements query.ChunkSource.
func (c *Cache) Fetch(ctx context.Context, id spatial.Id, depth uint64, bounds spatial.BBox, s *schema.Schema) (*chunk.Chunk, error) {
	key := Key{Id: id}
	if b, ok := c.blocks.Get(ctx, key); ok {
		return chunk.Decode(id, depth, bounds, s, b)
	}

	storageKey := chunk.Key(id, depth, c.prefixIds)
	raw, err := c.src.Get(storageKey)
	if err != nil {
		return nil, fmt.Errorf("cache: fetch chunk %s: %w", id.String(), err)
	}

	c.blocks.Set(ctx, key, raw)
	return chunk.Decode(id, depth, bounds, s, raw)
}

// NewBlock returns a Block that can pin chunks fetched through c for the
// duration of one query, keeping them resident even under eviction
// pressure from unrelated concurrent reads.
func (c *Cache) NewBlock() *Block {
	return &Block{cache: c, keys: make(map[Key]struct{})}
}

func (c *Cache) pin(key Key)   { c.pins.add(key) }
func (c *Cache) unpin(key Key) { c.pins.remove(key) }

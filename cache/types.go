// Package cache implements the chunk cache sitting between a Query and
// a storage endpoint: an LRU of encoded chunk bytes bounded by a soft
// resident-byte cap, plus a per-query pinned reservation ("Block") that
// keeps chunks a query is actively using from being evicted out from
// under it. Grounded on the host application's resource.Controller
// (semaphore-based memory accounting) and BlockCache/CacheKey
// abstraction, generalized from a single segment/offset key to a tree
// Id + tick key.
package cache

import (
	"context"

	"github.com/fgilic/entwine/spatial"
)

// Key identifies one cached chunk: the tree node it belongs to, and for
// tubular structures, the vertical tick within that node's tube.
// Distinct keys never alias the same bytes.
type Key struct {
	Id   spatial.Id
	Tick uint64
}

// BlockCache is a byte-oriented cache for immutable chunk bodies.
// Returned slices must be treated as read-only: callers that want to
// mutate must copy first.
type BlockCache interface {
	// Get returns a cached chunk body. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a chunk body. Implementations may copy or retain;
	// callers must treat b as immutable afterward.
	Set(ctx context.Context, key Key, b []byte)
}

// AdmissionPolicy decides whether a value should be cached at all,
// ahead of the LRU's own size-based eviction.
type AdmissionPolicy interface {
	Admit(key Key, sizeBytes int) bool
}

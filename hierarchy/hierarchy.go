package hierarchy

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/fgilic/entwine/spatial"
	"github.com/fgilic/entwine/structure"
)

// indexKey names the blob listing every cold-region block Save wrote, so
// Load knows what to read back without the storage endpoint supporting
// key enumeration.
const indexKey = "h-index"

type indexEntry struct {
	Key   string `json:"key"`
	Id    string `json:"id"`
	Depth uint64 `json:"depth"`
}

// blockKey identifies one cold-region hierarchy block by its root id.
func blockKey(id spatial.Id, prefixIds bool, depth uint64) string {
	if prefixIds {
		return fmt.Sprintf("h-%d-%s", depth, id.String())
	}
	return "h-" + id.String()
}

// Hierarchy is the full counting tree for one point-cloud tree: a dense
// ContiguousBlock for the base region plus lazily created Blocks (sparse
// past Structure.SparseDepthBegin, contiguous otherwise) for the cold
// region. Grounded on entwine's Hierarchy class, including its own
// derived Structure (see structure.Structure.HierarchyStructure).
type Hierarchy struct {
	st structure.Structure

	base *ContiguousBlock

	mu     sync.RWMutex
	blocks map[string]Block
	ids    map[string]spatial.Id
	depths map[string]uint64
}

// New creates an empty hierarchy for the covering tree structure st. The
// hierarchy computes its own structure via st.HierarchyStructure: a base
// region at least 12 levels deep, with a sparse boundary six levels
// shallower than st's when st has one.
func New(st structure.Structure) *Hierarchy {
	hst := st.HierarchyStructure()
	baseSize := uint64(1) << uint(hst.BaseDepthEnd*uint64(dimsShift(hst.Dimensions)))
	return &Hierarchy{
		st:     hst,
		base:   NewContiguousBlock(spatial.RootId, hst.Dimensions, baseSize),
		blocks: make(map[string]Block),
		ids:    make(map[string]spatial.Id),
		depths: make(map[string]uint64),
	}
}

func dimsShift(dims int) int {
	if dims > 2 {
		return 3
	}
	return 2
}

func (h *Hierarchy) blockFor(id spatial.Id, depth uint64, create bool) Block {
	if depth < h.st.BaseDepthEnd {
		return h.base
	}

	key := blockKey(id, h.st.PrefixIds, depth)
	h.mu.RLock()
	b, ok := h.blocks[key]
	h.mu.RUnlock()
	if ok || !create {
		return b
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok = h.blocks[key]; ok {
		return b
	}
	if h.st.IsSparse(depth) {
		b = NewSparseBlock(h.st.Dimensions)
	} else {
		b = NewContiguousBlock(id, h.st.Dimensions, h.st.PointsPerChunk(depth))
	}
	h.blocks[key] = b
	h.ids[key] = id
	h.depths[key] = depth
	return b
}

// Increment adds delta to the count of node id (at depth, for the
// tubular tick) and returns the new value.
func (h *Hierarchy) Increment(id spatial.Id, depth, tick uint64, delta int64) uint64 {
	return h.blockFor(id, depth, true).Increment(id, tick, delta)
}

// Count is shorthand for Increment(id, depth, tick, 1), the common path
// taken while building.
func (h *Hierarchy) Count(id spatial.Id, depth, tick uint64) uint64 {
	return h.Increment(id, depth, tick, 1)
}

// Get returns the count of node id without mutating it. Returns 0 for a
// node that has never been touched.
func (h *Hierarchy) Get(id spatial.Id, depth, tick uint64) uint64 {
	b := h.blockFor(id, depth, false)
	if b == nil {
		return 0
	}
	return b.Get(id, tick)
}

// Save persists every block through w. The base block is always
// saved under a fixed key; cold blocks are saved under their own key,
// and an index listing those keys (plus the id/depth needed to
// reconstruct each block's shape) is saved alongside so Load can find
// them again without the storage endpoint supporting key enumeration.
func (h *Hierarchy) Save(w Writer) error {
	if err := h.base.Save(w, "h-base"); err != nil {
		return fmt.Errorf("hierarchy: save base block: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	entries := make([]indexEntry, 0, len(h.blocks))
	for key, b := range h.blocks {
		if err := b.Save(w, key); err != nil {
			return fmt.Errorf("hierarchy: save block %q: %w", key, err)
		}
		entries = append(entries, indexEntry{Key: key, Id: h.ids[key].String(), Depth: h.depths[key]})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("hierarchy: marshal block index: %w", err)
	}
	if err := w.Put(indexKey, data); err != nil {
		return fmt.Errorf("hierarchy: save block index: %w", err)
	}
	return nil
}

// Load rehydrates a Hierarchy previously written by Save, for the
// covering tree structure st.
func Load(r Reader, st structure.Structure) (*Hierarchy, error) {
	hst := st.HierarchyStructure()
	baseSize := uint64(1) << uint(hst.BaseDepthEnd*uint64(dimsShift(hst.Dimensions)))

	base, err := LoadContiguousBlock(r, "h-base", spatial.RootId, hst.Dimensions, baseSize)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: load base block: %w", err)
	}

	h := &Hierarchy{
		st:     hst,
		base:   base,
		blocks: make(map[string]Block),
		ids:    make(map[string]spatial.Id),
		depths: make(map[string]uint64),
	}

	indexData, err := r.Get(indexKey)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: load block index: %w", err)
	}
	var entries []indexEntry
	if err := json.Unmarshal(indexData, &entries); err != nil {
		return nil, fmt.Errorf("hierarchy: parse block index: %w", err)
	}

	for _, e := range entries {
		idv, ok := new(big.Int).SetString(e.Id, 10)
		if !ok {
			return nil, fmt.Errorf("hierarchy: block index entry %q has malformed id %q", e.Key, e.Id)
		}
		id := spatial.NewIdFromBig(idv)

		var b Block
		if hst.IsSparse(e.Depth) {
			b, err = LoadSparseBlock(r, e.Key, hst.Dimensions)
		} else {
			b, err = LoadContiguousBlock(r, e.Key, id, hst.Dimensions, hst.PointsPerChunk(e.Depth))
		}
		if err != nil {
			return nil, fmt.Errorf("hierarchy: load block %q: %w", e.Key, err)
		}
		h.blocks[e.Key] = b
		h.ids[e.Key] = id
		h.depths[e.Key] = e.Depth
	}
	return h, nil
}

// QueryResult is one row of a hierarchy query: the id of a node whose
// bounds overlap the query and the node's own point count, summed over
// all of its ticks (points held by its descendants are not included).
type QueryResult struct {
	Id     spatial.Id
	Depth  uint64
	Bounds spatial.BBox
	Count  uint64
}

// Query walks the hierarchy from the root, visiting every node whose
// bounding box overlaps qbox and whose depth is within [depthBegin,
// depthEnd), and reports its point count. A node whose count is zero is
// neither reported nor descended into, so a populated node is found only
// if every ancestor on its path is populated too. It is the mechanism a Query
// (package query) uses to decide which chunks are worth fetching
// without reading any chunk data.
func (h *Hierarchy) Query(bounds spatial.BBox, qbox spatial.BBox, depthBegin, depthEnd uint64) []QueryResult {
	var out []QueryResult
	var walk func(id spatial.Id, depth uint64, box spatial.BBox)
	walk = func(id spatial.Id, depth uint64, box spatial.BBox) {
		if depthEnd != 0 && depth >= depthEnd {
			return
		}
		if !box.Overlaps(qbox, h.st.Dimensions) {
			return
		}
		count := h.sumTicks(id, depth)
		if count == 0 {
			return
		}
		if depth >= depthBegin {
			out = append(out, QueryResult{Id: id, Depth: depth, Bounds: box, Count: count})
		}
		for d := Dir(0); int(d) < numDirs(h.st.Dimensions); d++ {
			walk(id.Climb(spatial.Dir(d), h.st.NumDirs()), depth+1, box.Go(spatial.Dir(d), h.st.Tubular))
		}
	}
	walk(spatial.RootId, 0, bounds)
	return out
}

// Dir is a local alias kept for readability inside the query loop.
type Dir = uint8

func numDirs(dims int) int {
	if dims > 2 {
		return 8
	}
	return 4
}

func (h *Hierarchy) sumTicks(id spatial.Id, depth uint64) uint64 {
	b := h.blockFor(id, depth, false)
	if b == nil {
		return 0
	}
	return b.Total(id)
}

// Merge folds other into h, summing overlapping node counts. This
// implements the original design's Hierarchy::merge, left as an empty
// stub upstream; here it walks both hierarchies' blocks and adds counts
// cell-wise, which is safe because Hierarchy counts are commutative and
// have no other state to reconcile.
func (h *Hierarchy) Merge(other *Hierarchy) {
	other.base.mu.RLock()
	otherTubes := make(map[uint64]*Tube, len(other.base.tubes))
	for off, t := range other.base.tubes {
		otherTubes[off] = t
	}
	other.base.mu.RUnlock()
	for off, t := range otherTubes {
		h.base.tubeFor(off, true).Merge(t)
	}

	other.mu.RLock()
	defer other.mu.RUnlock()
	for key, ob := range other.blocks {
		h.mu.Lock()
		b, ok := h.blocks[key]
		if !ok {
			h.blocks[key] = ob
			h.ids[key] = other.ids[key]
			h.depths[key] = other.depths[key]
			h.mu.Unlock()
			continue
		}
		h.mu.Unlock()
		mergeBlocks(b, ob)
	}
}

func mergeBlocks(dst, src Block) {
	switch s := src.(type) {
	case *ContiguousBlock:
		s.mu.RLock()
		defer s.mu.RUnlock()
		base := s.baseId.Uint64()
		for off, t := range s.tubes {
			id := spatial.NewId(int64(base + off))
			t.Each(func(tick, count uint64) {
				dst.Increment(id, tick, int64(count))
			})
		}
	case *SparseBlock:
		s.mu.RLock()
		defer s.mu.RUnlock()
		for idKey, t := range s.tubes {
			id := spatial.NewIdFromBig(new(big.Int).SetBytes([]byte(idKey)))
			t.Each(func(tick, count uint64) {
				dst.Increment(id, tick, int64(count))
			})
		}
	}
}

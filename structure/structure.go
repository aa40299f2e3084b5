// Package structure holds the immutable geometric parameters of a tree:
// its depth range, chunking policy, and dimensionality. A Structure is
// computed once when a tree is created and never changes afterward;
// every other package (chunk, hierarchy, query, builder) derives its
// addressing math from it.
package structure

import (
	"fmt"

	"github.com/fgilic/entwine/spatial"
)

// Structure describes how a tree subdivides space and groups points into
// chunks. It is grounded on entwine's tree Structure: a nullDepth below
// which nothing is stored, a base region held as a single dense chunk
// tree, and a cold region beyond it whose chunk size grows by Factor
// every LOD level until dynamic chunking is disabled.
type Structure struct {
	// NullDepth is the shallowest depth actually stored; depths above it
	// are skipped (used to avoid tiny, near-empty top-level chunks).
	NullDepth uint64 `json:"null_depth"`
	// BaseDepthBegin/End bound the "base" region: a single contiguous
	// hierarchy block and a fixed points-per-chunk budget.
	BaseDepthBegin uint64 `json:"base_depth_begin"`
	BaseDepthEnd   uint64 `json:"base_depth_end"`
	// CoveredDepthEnd is the maximum depth the tree is allowed to grow
	// to; zero means unbounded.
	CoveredDepthEnd uint64 `json:"covered_depth_end"`
	// BasePointsPerChunk is the point budget of every chunk in the base
	// region.
	BasePointsPerChunk uint64 `json:"base_points_per_chunk"`
	// Factor is the per-level growth multiplier applied to chunk point
	// budgets in the cold region, when DynamicChunks is true.
	Factor uint64 `json:"factor"`
	// Dimensions is 2 for a quadtree, 3 for an octree.
	Dimensions int `json:"dimensions"`
	// Tubular indicates the tree subdivides X/Y only; Z accumulates
	// without ever being split, producing unbounded vertical "tubes"
	// addressed by a secondary tick index (see package hierarchy).
	Tubular bool `json:"tubular"`
	// DynamicChunks enables Factor-based chunk growth in the cold
	// region; when false every cold chunk has the same point budget as
	// the base region.
	DynamicChunks bool `json:"dynamic_chunks"`
	// PrefixIds, when true, causes on-disk chunk keys to carry a
	// human-readable depth prefix ("6-...") ahead of the numeric Id,
	// matching a convention some storage backends use to keep directory
	// listings sorted by depth. Hierarchy block keys never carry it,
	// since HierarchyStructure always clears this flag.
	PrefixIds bool `json:"prefix_ids"`
	// SparseDepthBegin is the depth at which hierarchy addressing
	// switches from dense per-node counters to a sparse map keyed by
	// full Id, because the number of possible nodes at that depth
	// exceeds what a dense array can hold. Zero means never.
	SparseDepthBegin uint64 `json:"sparse_depth_begin"`
	// NumPointsHint is an estimate of the total point count, used only
	// to size initial allocations; it does not affect correctness.
	NumPointsHint uint64 `json:"num_points_hint"`
	// Bounds is the cubeified bounding box of the whole tree.
	Bounds spatial.BBox `json:"bounds"`
}

// NumDirs returns the branching factor implied by Dimensions.
func (s Structure) NumDirs() int {
	if s.Dimensions > 2 {
		return spatial.NumDirs3d
	}
	return spatial.NumDirs2d
}

// IsWithinBase reports whether depth falls in the base region.
func (s Structure) IsWithinBase(depth uint64) bool {
	return depth >= s.BaseDepthBegin && depth < s.BaseDepthEnd
}

// IsSparse reports whether depth is addressed as a sparse hierarchy
// block. SparseDepthBegin == 0 disables sparse addressing entirely.
func (s Structure) IsSparse(depth uint64) bool {
	return s.SparseDepthBegin != 0 && depth >= s.SparseDepthBegin
}

// PointsPerChunk returns the point budget of a chunk at depth, applying
// Factor growth in the cold region when DynamicChunks is set.
func (s Structure) PointsPerChunk(depth uint64) uint64 {
	if depth < s.BaseDepthEnd {
		return s.BasePointsPerChunk
	}
	if !s.DynamicChunks {
		return s.BasePointsPerChunk
	}
	levels := depth - s.BaseDepthEnd + 1
	budget := s.BasePointsPerChunk
	for i := uint64(0); i < levels; i++ {
		budget *= s.Factor
	}
	return budget
}

// NominalChunkDepth returns the shallowest depth at which chunk
// granularity starts, i.e. BaseDepthEnd.
func (s Structure) NominalChunkDepth() uint64 {
	return s.BaseDepthEnd
}

// Validate reports whether the structure is internally consistent.
func (s Structure) Validate() error {
	if s.Dimensions != 2 && s.Dimensions != 3 {
		return fmt.Errorf("structure: dimensions must be 2 or 3, got %d", s.Dimensions)
	}
	if s.BaseDepthEnd <= s.BaseDepthBegin {
		return fmt.Errorf("structure: baseDepthEnd (%d) must exceed baseDepthBegin (%d)", s.BaseDepthEnd, s.BaseDepthBegin)
	}
	if s.BasePointsPerChunk == 0 {
		return fmt.Errorf("structure: basePointsPerChunk must be positive")
	}
	if s.DynamicChunks && s.Factor < 2 {
		return fmt.Errorf("structure: factor must be >= 2 when dynamic chunking is enabled")
	}
	if s.CoveredDepthEnd != 0 && s.CoveredDepthEnd < s.BaseDepthEnd {
		return fmt.Errorf("structure: coveredDepthEnd (%d) must be >= baseDepthEnd (%d)", s.CoveredDepthEnd, s.BaseDepthEnd)
	}
	if s.SparseDepthBegin != 0 && s.SparseDepthBegin < s.BaseDepthEnd {
		return fmt.Errorf("structure: sparseDepthBegin (%d) must be >= baseDepthEnd (%d)", s.SparseDepthBegin, s.BaseDepthEnd)
	}
	return nil
}

// HierarchyStructure derives the Structure used by the hierarchy's own
// parallel tree, which tracks per-node point counts rather than points
// themselves. It is always dense down to at least depth 12 (or the
// covering tree's own base depth, if deeper), never grows a cold region,
// and shifts its sparse boundary back by the six levels the hierarchy
// tree skips relative to the point tree's root.
func (s Structure) HierarchyStructure() Structure {
	const hierarchyStartDepth = 6

	baseEnd := s.BaseDepthEnd
	if baseEnd < 12 {
		baseEnd = 12
	}

	sparse := uint64(0)
	if s.SparseDepthBegin > hierarchyStartDepth {
		sparse = s.SparseDepthBegin - hierarchyStartDepth
	}

	return Structure{
		NullDepth:          0,
		BaseDepthBegin:      0,
		BaseDepthEnd:        baseEnd,
		BasePointsPerChunk:  s.BasePointsPerChunk,
		Dimensions:          s.Dimensions,
		NumPointsHint:       s.NumPointsHint,
		Tubular:             s.Tubular,
		DynamicChunks:       true,
		PrefixIds:           false,
		SparseDepthBegin:    sparse,
		Bounds:              s.Bounds,
	}
}

// Package query implements traversal of a built tree in answer to a
// spatial + depth-bounded read: walking the hierarchy to find which
// chunks overlap the query box, fetching those chunks through the
// cache, and streaming out the points that pass the box test. Grounded
// on entwine's reader/query.hpp: ChunkState and Query.
package query

import (
	"fmt"

	"github.com/fgilic/entwine/spatial"
	"github.com/fgilic/entwine/structure"
)

// ChunkState tracks the identity of "the chunk currently being
// descended into" as a traversal climbs the tree: its id, depth,
// bounding box and point-per-chunk budget. It advances one node at a
// time via Climb, so a caller doing a full depth-first walk allocates
// exactly one ChunkState and mutates a copy per branch.
type ChunkState struct {
	st             structure.Structure
	depth          uint64
	bbox           spatial.BBox
	chunkId        spatial.Id
	pointsPerChunk uint64
}

// NewChunkState returns a ChunkState with the root id and st's full
// bounds, at depth st.NominalChunkDepth() (BaseDepthEnd).
func NewChunkState(st structure.Structure) ChunkState {
	return ChunkState{
		st:             st,
		depth:          st.NominalChunkDepth(),
		bbox:           st.Bounds,
		chunkId:        spatial.RootId,
		pointsPerChunk: st.BasePointsPerChunk,
	}
}

// Depth, Bounds, Id and PointsPerChunk expose the current state.
func (c ChunkState) Depth() uint64            { return c.depth }
func (c ChunkState) Bounds() spatial.BBox     { return c.bbox }
func (c ChunkState) Id() spatial.Id           { return c.chunkId }
func (c ChunkState) PointsPerChunk() uint64   { return c.pointsPerChunk }

// allDirections reports whether the state is still at or above the
// sparse boundary's parent level (always true when SparseDepthBegin is
// zero). Climb reports a *ConfigError when such a state steps onto the
// boundary; below the boundary Climb grows the chunk budget by Factor
// on every level instead.
func (c ChunkState) allDirections() bool {
	return c.st.SparseDepthBegin == 0 || c.depth+1 <= c.st.SparseDepthBegin
}

// Climb advances the chunk state to the child selected by dir. If the
// resulting depth would reach the sparse boundary from above, in a way the
// tree's addressing cannot represent, it reports a *ConfigError rather
// than silently producing a bad chunk id -- the original implementation
// throws here; this is the resolution SPEC_FULL.md calls for.
func (c ChunkState) Climb(dir spatial.Dir) (ChunkState, error) {
	next := c
	next.depth++
	next.bbox = c.bbox.Go(dir, c.st.Tubular)

	if c.allDirections() {
		next.chunkId = c.chunkId.Climb(dir, c.st.NumDirs())
		if c.st.SparseDepthBegin != 0 && next.depth >= c.st.SparseDepthBegin {
			return ChunkState{}, &ConfigError{Depth: next.depth, SparseDepthBegin: c.st.SparseDepthBegin}
		}
		return next, nil
	}

	next.chunkId = c.chunkId.Climb(dir, c.st.NumDirs())
	next.pointsPerChunk = c.pointsPerChunk * c.st.Factor
	return next, nil
}

// ConfigError reports an attempt to climb past the depth the tree's
// chunk addressing was configured to support.
type ConfigError struct {
	Depth            uint64
	SparseDepthBegin uint64
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("query: depth %d crosses sparse boundary at depth %d", e.Depth, e.SparseDepthBegin)
}

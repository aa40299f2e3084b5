// Package hierarchy implements the parallel counting tree that tracks,
// for every node of the point tree, how many points it holds without
// requiring the corresponding chunk to be loaded. It is what lets a
// query decide which chunks are worth fetching before touching any
// point data. Grounded on entwine's tree/hierarchy.hpp: HierarchyCell,
// HierarchyTube, HierarchyBlock (Contiguous/Sparse), and Hierarchy.
package hierarchy

import "sync/atomic"

// Cell holds the point count of a single tree node at a single tick.
// Corresponds to HierarchyCell in the original design, whose count is
// mutated under a spinlock; here the same effect is achieved lock-free
// with an atomic counter since a single count is a single machine word.
type Cell struct {
	count atomic.Uint64
}

// Increment adds delta to the cell's count and returns the new value.
// delta may be negative, which subtracts from the count.
func (c *Cell) Increment(delta int64) uint64 {
	if delta >= 0 {
		return c.count.Add(uint64(delta))
	}
	return c.count.Add(^uint64(-delta-1)) // two's-complement subtraction
}

// Count returns the current value without mutating it.
func (c *Cell) Count() uint64 {
	return c.count.Load()
}

// Empty reports whether the cell currently holds no points.
func (c *Cell) Empty() bool {
	return c.count.Load() == 0
}

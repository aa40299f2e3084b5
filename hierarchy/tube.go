package hierarchy

import "sync"

// Tube is the set of Cells belonging to one X/Y tree node, indexed by
// tick. Non-tubular structures only ever populate tick 0. Corresponds
// to HierarchyTube (std::map<uint64_t, HierarchyCell> in the original).
type Tube struct {
	mu    sync.RWMutex
	cells map[uint64]*Cell
}

// NewTube returns an empty Tube.
func NewTube() *Tube {
	return &Tube{cells: make(map[uint64]*Cell)}
}

// Increment adds delta to the cell at tick, creating it if absent, and
// returns the new count.
func (t *Tube) Increment(tick uint64, delta int64) uint64 {
	t.mu.RLock()
	c, ok := t.cells[tick]
	t.mu.RUnlock()
	if !ok {
		t.mu.Lock()
		c, ok = t.cells[tick]
		if !ok {
			c = &Cell{}
			t.cells[tick] = c
		}
		t.mu.Unlock()
	}
	return c.Increment(delta)
}

// Get returns the count at tick, or 0 if the tick has never been
// touched.
func (t *Tube) Get(tick uint64) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if c, ok := t.cells[tick]; ok {
		return c.Count()
	}
	return 0
}

// Total returns the sum of every tick's count.
func (t *Tube) Total() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var sum uint64
	for _, c := range t.cells {
		sum += c.Count()
	}
	return sum
}

// Each calls fn for every non-empty (tick, count) pair, in unspecified
// order.
func (t *Tube) Each(fn func(tick uint64, count uint64)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for tick, c := range t.cells {
		if n := c.Count(); n != 0 {
			fn(tick, n)
		}
	}
}

// Merge folds other into t, summing overlapping ticks.
func (t *Tube) Merge(other *Tube) {
	other.Each(func(tick uint64, count uint64) {
		t.Increment(tick, int64(count))
	})
}

package hierarchy

import (
	"testing"

	"github.com/fgilic/entwine/spatial"
	"github.com/fgilic/entwine/storage"
	"github.com/fgilic/entwine/structure"
)

func TestTickMonotonicWithinRange(t *testing.T) {
	if got := Tick(0, 4, 0, 0); got != 0 {
		t.Fatalf("degenerate Z range should always tick 0, got %d", got)
	}
	low := Tick(1, 4, 0, 100)
	high := Tick(99, 4, 0, 100)
	if high <= low {
		t.Fatalf("Tick should increase with Z: low=%d high=%d", low, high)
	}
}

func TestTickClampsAtUpperBound(t *testing.T) {
	tick := Tick(100, 3, 0, 100)
	maxTick := uint64(1<<3) - 1
	if tick != maxTick {
		t.Fatalf("Tick at zMax should clamp to last slice %d, got %d", maxTick, tick)
	}
}

func TestCellIncrementAndDecrement(t *testing.T) {
	var c Cell
	c.Increment(5)
	c.Increment(-2)
	if got := c.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}
	if c.Empty() {
		t.Fatal("cell with count 3 should not be empty")
	}
}

func TestTubeIncrementAndTotal(t *testing.T) {
	tube := NewTube()
	tube.Increment(0, 3)
	tube.Increment(1, 4)
	if got := tube.Total(); got != 7 {
		t.Fatalf("Total() = %d, want 7", got)
	}
	if got := tube.Get(0); got != 3 {
		t.Fatalf("Get(0) = %d, want 3", got)
	}
}

func TestTubeMerge(t *testing.T) {
	a := NewTube()
	a.Increment(0, 1)
	b := NewTube()
	b.Increment(0, 2)
	b.Increment(1, 5)

	a.Merge(b)
	if got := a.Get(0); got != 3 {
		t.Fatalf("merged tick 0 = %d, want 3", got)
	}
	if got := a.Get(1); got != 5 {
		t.Fatalf("merged tick 1 = %d, want 5", got)
	}
}

func TestContiguousBlockLazyAllocationHandlesHugeSize(t *testing.T) {
	// A size representative of a deep base region; if this ever allocates
	// eagerly the test will exhaust memory rather than fail cleanly.
	const huge = uint64(1) << 40
	block := NewContiguousBlock(spatial.RootId, 3, huge)
	id := spatial.RootId.Climb(spatial.DirNeu, 8)
	if got := block.Increment(id, 0, 1); got != 1 {
		t.Fatalf("Increment on lazily-created tube = %d, want 1", got)
	}
	if got := block.Total(id); got != 1 {
		t.Fatalf("Total() = %d, want 1", got)
	}
}

func TestContiguousBlockSaveLoadRoundTrip(t *testing.T) {
	base := spatial.RootId
	block := NewContiguousBlock(base, 3, 1<<20)
	id1 := base.Climb(spatial.DirSwd, 8)
	id2 := base.Climb(spatial.DirNeu, 8)
	block.Increment(id1, 0, 3)
	block.Increment(id2, 0, 7)

	mem := storage.NewMemoryEndpoint()
	if err := block.Save(mem, "h-base"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadContiguousBlock(mem, "h-base", base, 3, 1<<20)
	if err != nil {
		t.Fatalf("LoadContiguousBlock: %v", err)
	}
	if got := loaded.Total(id1); got != 3 {
		t.Fatalf("loaded id1 total = %d, want 3", got)
	}
	if got := loaded.Total(id2); got != 7 {
		t.Fatalf("loaded id2 total = %d, want 7", got)
	}
}

func TestSparseBlockSaveLoadRoundTrip(t *testing.T) {
	block := NewSparseBlock(3)
	id := spatial.RootId
	for i := 0; i < 20; i++ {
		id = id.Climb(spatial.DirNeu, 8)
	}
	block.Increment(id, 0, 42)

	mem := storage.NewMemoryEndpoint()
	if err := block.Save(mem, "h-sparse"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadSparseBlock(mem, "h-sparse", 3)
	if err != nil {
		t.Fatalf("LoadSparseBlock: %v", err)
	}
	if got := loaded.Total(id); got != 42 {
		t.Fatalf("loaded total = %d, want 42", got)
	}
}

func testHierarchyStructure() structure.Structure {
	return structure.Structure{
		BaseDepthBegin:     0,
		BaseDepthEnd:       4,
		BasePointsPerChunk: 100,
		Dimensions:         3,
		Bounds:             spatial.NewBBox(spatial.Point{}, spatial.Point{X: 100, Y: 100, Z: 100}),
	}
}

func TestHierarchyCountAndGet(t *testing.T) {
	h := New(testHierarchyStructure())
	id := spatial.RootId.Climb(spatial.DirNeu, 8)
	h.Count(id, 1, 0)
	h.Count(id, 1, 0)
	if got := h.Get(id, 1, 0); got != 2 {
		t.Fatalf("Get() = %d, want 2", got)
	}
}

func TestHierarchyQueryFindsOverlappingNodes(t *testing.T) {
	h := New(testHierarchyStructure())
	bounds := testHierarchyStructure().Bounds
	id := spatial.RootId.Climb(spatial.DirSwd, 8)
	childBox := bounds.Go(spatial.DirSwd, false)
	// The root holds a point too, as it would after a build: Query does
	// not descend below an empty node.
	h.Count(spatial.RootId, 0, 0)
	h.Count(id, 1, 0)

	results := h.Query(bounds, childBox, 0, 10)
	found := false
	for _, r := range results {
		if r.Id.Equal(id) {
			found = true
			if r.Count != 1 {
				t.Fatalf("found node count = %d, want 1", r.Count)
			}
		}
	}
	if !found {
		t.Fatal("query should have found the populated node")
	}
}

func TestHierarchyQuerySkipsNonOverlappingRegions(t *testing.T) {
	h := New(testHierarchyStructure())
	bounds := testHierarchyStructure().Bounds
	swId := spatial.RootId.Climb(spatial.DirSwd, 8)
	h.Count(swId, 1, 0)

	// query box confined to the opposite (Ne) octant only
	neBox := bounds.Go(spatial.DirNeu, false)
	results := h.Query(bounds, neBox, 0, 10)
	for _, r := range results {
		if r.Id.Equal(swId) {
			t.Fatal("query restricted to Ne octant should not surface the Sw node")
		}
	}
}

func TestHierarchyMergeSumsCounts(t *testing.T) {
	st := testHierarchyStructure()
	a := New(st)
	b := New(st)

	id := spatial.RootId.Climb(spatial.DirNeu, 8)
	a.Count(id, 1, 0)
	b.Count(id, 1, 0)
	b.Count(id, 1, 0)

	a.Merge(b)
	if got := a.Get(id, 1, 0); got != 3 {
		t.Fatalf("merged count = %d, want 3", got)
	}
}

func TestHierarchySaveLoadRoundTripIncludingColdBlocks(t *testing.T) {
	st := testHierarchyStructure()
	st.SparseDepthBegin = st.BaseDepthEnd + 2
	h := New(st)

	baseId := spatial.RootId.Climb(spatial.DirNeu, 8)
	h.Count(baseId, 1, 0)

	coldId := baseId
	depth := uint64(1)
	for depth < h.st.BaseDepthEnd {
		coldId = coldId.Climb(spatial.DirSwd, 8)
		depth++
	}
	h.Count(coldId, depth, 0)
	h.Count(coldId, depth, 0)

	mem := storage.NewMemoryEndpoint()
	if err := h.Save(mem); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(mem, st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.Get(baseId, 1, 0); got != 1 {
		t.Fatalf("loaded base count = %d, want 1", got)
	}
	if got := loaded.Get(coldId, depth, 0); got != 2 {
		t.Fatalf("loaded cold block count = %d, want 2", got)
	}
}

func TestHierarchySaveWritesBaseBlock(t *testing.T) {
	h := New(testHierarchyStructure())
	id := spatial.RootId.Climb(spatial.DirNeu, 8)
	h.Count(id, 1, 0)

	mem := storage.NewMemoryEndpoint()
	if err := h.Save(mem); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, exists, _ := mem.TryGetSize("h-base"); !exists {
		t.Fatal("Save should have written the base block under key h-base")
	}
}

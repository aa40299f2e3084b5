package cache

import (
	"context"
	"testing"

	"github.com/fgilic/entwine/chunk"
	"github.com/fgilic/entwine/resource"
	"github.com/fgilic/entwine/schema"
	"github.com/fgilic/entwine/spatial"
)

type memSource struct {
	data map[string][]byte
	gets int
}

func (s *memSource) Get(key string) ([]byte, error) {
	s.gets++
	return s.data[key], nil
}

func testSchema() *schema.Schema {
	return schema.New([]schema.Dimension{
		{Name: "X", Type: schema.Float64},
		{Name: "Y", Type: schema.Float64},
		{Name: "Z", Type: schema.Float64},
	})
}

func TestCacheFetchCachesAfterFirstMiss(t *testing.T) {
	s := testSchema()
	table := schema.MakePointTable(s, 1)
	id := spatial.RootId
	c := chunk.New(id, 0, spatial.BBox{}, s, table)
	data, err := chunk.Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	src := &memSource{data: map[string][]byte{chunk.Key(id, 0, false): data}}
	rc := resource.NewController(resource.Config{})
	cache := New(src, 1<<20, rc, false)

	if _, err := cache.Fetch(context.Background(), id, 0, spatial.BBox{}, s); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	if _, err := cache.Fetch(context.Background(), id, 0, spatial.BBox{}, s); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if src.gets != 1 {
		t.Fatalf("source.Get called %d times, want 1 (second Fetch should hit the cache)", src.gets)
	}
}

func TestCacheBlockPinsAgainstEviction(t *testing.T) {
	s := testSchema()
	table := schema.MakePointTable(s, 1)

	make_ := func(id spatial.Id) []byte {
		c := chunk.New(id, 0, spatial.BBox{}, s, table)
		data, _ := chunk.Encode(c)
		return data
	}

	idA := spatial.RootId.Climb(spatial.DirSwd, 8)
	idB := spatial.RootId.Climb(spatial.DirNeu, 8)
	dataA := make_(idA)
	dataB := make_(idB)

	src := &memSource{data: map[string][]byte{
		chunk.Key(idA, 0, false): dataA,
		chunk.Key(idB, 0, false): dataB,
	}}
	rc := resource.NewController(resource.Config{})
	// A tight limit that can only ever hold one chunk body at a time.
	cache := New(src, int64(len(dataA)), rc, false)

	block := cache.NewBlock()
	block.Reserve(Key{Id: idA})

	if _, err := cache.Fetch(context.Background(), idA, 0, spatial.BBox{}, s); err != nil {
		t.Fatalf("Fetch idA: %v", err)
	}
	if _, err := cache.Fetch(context.Background(), idB, 0, spatial.BBox{}, s); err != nil {
		t.Fatalf("Fetch idB: %v", err)
	}

	if _, ok := cache.blocks.Get(context.Background(), Key{Id: idA}); !ok {
		t.Fatal("pinned chunk idA should still be resident after fetching idB under a tight limit")
	}

	block.Release()
}

package query

import (
	"context"
	"testing"

	"github.com/fgilic/entwine/chunk"
	"github.com/fgilic/entwine/hierarchy"
	"github.com/fgilic/entwine/schema"
	"github.com/fgilic/entwine/spatial"
	"github.com/fgilic/entwine/structure"
)

func testStructure() structure.Structure {
	return structure.Structure{
		BaseDepthBegin:     0,
		BaseDepthEnd:       6,
		BasePointsPerChunk: 100,
		Dimensions:         3,
		Bounds:             spatial.NewBBox(spatial.Point{}, spatial.Point{X: 100, Y: 100, Z: 100}),
	}
}

func testSchema() *schema.Schema {
	return schema.New([]schema.Dimension{
		{Name: "X", Type: schema.Float64},
		{Name: "Y", Type: schema.Float64},
		{Name: "Z", Type: schema.Float64},
	})
}

func TestChunkStateClimbTracksDepthAndBounds(t *testing.T) {
	st := testStructure()
	cs := NewChunkState(st)
	next, err := cs.Climb(spatial.DirNeu)
	if err != nil {
		t.Fatalf("Climb: %v", err)
	}
	if next.Depth() != cs.Depth()+1 {
		t.Fatalf("Depth() = %d, want %d", next.Depth(), cs.Depth()+1)
	}
	if !cs.Bounds().Contains2d(next.Bounds()) {
		t.Fatalf("child bounds %v should be contained within parent %v", next.Bounds(), cs.Bounds())
	}
}

func TestChunkStateClimbReturnsConfigErrorPastSparseBoundary(t *testing.T) {
	st := testStructure()
	st.SparseDepthBegin = st.BaseDepthEnd + 1
	cs := NewChunkState(st)

	for i := uint64(0); i < st.SparseDepthBegin-st.BaseDepthEnd; i++ {
		var err error
		cs, err = cs.Climb(spatial.DirNeu)
		if err != nil {
			if _, ok := err.(*ConfigError); !ok {
				t.Fatalf("expected *ConfigError, got %T: %v", err, err)
			}
			return
		}
	}
	t.Fatal("expected a ConfigError before exhausting the loop")
}

// fakeSource serves chunks straight out of memory without going through
// a cache or storage.Endpoint, to isolate Query's traversal logic.
type fakeSource struct {
	chunks map[string]*chunk.Chunk
}

func (f *fakeSource) Fetch(ctx context.Context, id spatial.Id, depth uint64, bounds spatial.BBox, s *schema.Schema) (*chunk.Chunk, error) {
	return f.chunks[id.String()], nil
}

func TestQueryStreamsOnlyPointsWithinBounds(t *testing.T) {
	st := testStructure()
	s := testSchema()
	h := hierarchy.New(st)

	id := spatial.RootId
	table := schema.MakePointTable(s, 2)
	table.SetFloat64(0, 0, 10) // inside [0,50)
	table.SetFloat64(0, 1, 10)
	table.SetFloat64(1, 0, 90) // outside qbox
	table.SetFloat64(1, 1, 90)

	c := chunk.New(id, 0, st.Bounds, s, table)
	h.Count(id, 0, 0)
	h.Count(id, 0, 0)

	src := &fakeSource{chunks: map[string]*chunk.Chunk{id.String(): c}}

	qbox := spatial.NewBBox(spatial.Point{}, spatial.Point{X: 50, Y: 50, Z: 100})
	q := New(src, h, st, s, qbox, 0, 10)

	out := schema.MakePointTable(s, 10)
	n, err := q.Next(context.Background(), out)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if n != 1 {
		t.Fatalf("Next() wrote %d points, want 1 (only the in-bounds point)", n)
	}
	if got := out.GetFloat64(0, 0); got != 10 {
		t.Fatalf("streamed point X = %v, want 10", got)
	}
}

func TestQueryDoneAfterExhaustion(t *testing.T) {
	st := testStructure()
	s := testSchema()
	h := hierarchy.New(st)
	src := &fakeSource{chunks: map[string]*chunk.Chunk{}}

	q := New(src, h, st, s, st.Bounds, 0, 10)
	out := schema.MakePointTable(s, 4)
	n, err := q.Next(context.Background(), out)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if n != 0 {
		t.Fatalf("Next() on an empty tree wrote %d points, want 0", n)
	}
	if !q.Done() {
		t.Fatal("Done() should be true once every candidate chunk is exhausted")
	}
}

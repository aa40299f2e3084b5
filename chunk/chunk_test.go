package chunk

import (
	"sync"
	"testing"

	"github.com/fgilic/entwine/schema"
	"github.com/fgilic/entwine/spatial"
)

func testSchema() *schema.Schema {
	return schema.New([]schema.Dimension{
		{Name: "X", Type: schema.Float64},
		{Name: "Y", Type: schema.Float64},
		{Name: "Z", Type: schema.Float64},
	})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := testSchema()
	table := schema.MakePointTable(s, 4)
	for i := uint64(0); i < 4; i++ {
		table.SetFloat64(i, 0, float64(i))
		table.SetFloat64(i, 1, float64(i)*2)
		table.SetFloat64(i, 2, float64(i)*3)
	}

	id := spatial.RootId.Climb(spatial.DirNeu, 8)
	bounds := spatial.NewBBox(spatial.Point{}, spatial.Point{X: 10, Y: 10, Z: 10})
	c := New(id, 1, bounds, s, table)

	data, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(id, 1, bounds, s, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.NumPoints() != 4 {
		t.Fatalf("NumPoints() = %d, want 4", decoded.NumPoints())
	}
	for i := uint64(0); i < 4; i++ {
		if got := decoded.Table.GetFloat64(i, 0); got != float64(i) {
			t.Fatalf("point %d X = %v, want %v", i, got, float64(i))
		}
	}
}

func TestDecodeRejectsSchemaMismatch(t *testing.T) {
	s := testSchema()
	table := schema.MakePointTable(s, 1)
	id := spatial.RootId
	bounds := spatial.NewBBox(spatial.Point{}, spatial.Point{X: 1, Y: 1, Z: 1})
	c := New(id, 0, bounds, s, table)

	data, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	otherSchema := schema.New([]schema.Dimension{{Name: "X", Type: schema.Float32}})
	if _, err := Decode(id, 0, bounds, otherSchema, data); err == nil {
		t.Fatal("expected error decoding with mismatched schema point size")
	}
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	if _, err := Decode(spatial.RootId, 0, spatial.BBox{}, testSchema(), []byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated header")
	}
}

func TestEncodeFromConcurrentGoroutines(t *testing.T) {
	s := testSchema()
	bounds := spatial.NewBBox(spatial.Point{}, spatial.Point{X: 10, Y: 10, Z: 10})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			table := schema.MakePointTable(s, 2)
			table.SetFloat64(0, 0, float64(i))
			c := New(spatial.RootId, 0, bounds, s, table)
			if _, err := Encode(c); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Encode from concurrent goroutine: %v", err)
	}
}

func TestKeyWithAndWithoutPrefix(t *testing.T) {
	id := spatial.RootId.Climb(spatial.DirSed, 8)
	if got, want := Key(id, 3, false), id.String(); got != want {
		t.Fatalf("Key without prefix = %q, want %q", got, want)
	}
	if got, want := Key(id, 3, true), "3-"+id.String(); got != want {
		t.Fatalf("Key with prefix = %q, want %q", got, want)
	}
}
